package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/oklog/ulid/v2"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"

	slowRequestThreshold = 10 * time.Second
)

// requestID 透传或生成请求 ID，并写回响应头。
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = ulid.Make().String()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// requestLogger 按状态码选择日志级别。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", status,
			"latency_ms", float64(latency.Nanoseconds()) / 1e6,
			"client_ip", c.ClientIP(),
		}
		if id := c.GetString(ctxRequestID); id != "" {
			fields = append(fields, "request_id", id)
		}

		msg := c.Request.Method + " " + c.Request.URL.Path
		switch {
		case status >= 500:
			logger.Errorw(msg, fields...)
		case status >= 400:
			logger.Warnw(msg, fields...)
		case latency > slowRequestThreshold:
			logger.Warnw(msg+" (slow)", fields...)
		default:
			logger.Debugw(msg, fields...)
		}
	}
}
