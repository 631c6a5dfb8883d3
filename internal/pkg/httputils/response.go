// Package httputils provides HTTP utility functions.
package httputils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/pkg/utils/errors"
)

// ErrorBody 所有失败响应的统一形状。
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteResponse writes data on success, or {"error": msg} on failure.
func WriteResponse(c *gin.Context, err error, data interface{}) {
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// WriteError maps err to a status code and writes {"error": msg}.
// 非 Errno 错误统一按内部错误处理，不向调用方暴露底层细节。
func WriteError(c *gin.Context, err error) {
	status, msg := Describe(err)
	code := errors.GetCode(err)
	switch {
	case code < 0 || errors.IsServerError(code):
		logger.Errorw("request failed",
			"path", c.FullPath(),
			"status", status,
			"code", code,
			"error", err.Error(),
		)
	case errors.IsClientError(code):
		logger.Debugw("request rejected",
			"path", c.FullPath(),
			"status", status,
			"code", code,
			"error", err.Error(),
		)
	}
	c.AbortWithStatusJSON(status, ErrorBody{Error: msg})
}

// Describe returns the HTTP status and user-facing message for err.
func Describe(err error) (int, string) {
	if e := errors.FromError(err); e != nil {
		return e.HTTPStatus(), e.Message("en")
	}
	return http.StatusInternalServerError, errors.ErrInternal.Message("en")
}
