package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeCode(t *testing.T) {
	code := MakeCode(ServiceRAG, CategoryRequest, 2)
	assert.Equal(t, 2001002, code)

	assert.Equal(t, CategoryRequest, GetCategory(code))

	assert.True(t, IsClientError(code))
	assert.False(t, IsServerError(code))
	assert.True(t, IsServerError(ErrAgentStuck.Code))
}

func TestErrnoWithCause(t *testing.T) {
	cause := fmt.Errorf("yt-dlp exited 1")
	err := ErrAcquisitionFailed.WithCause(cause)

	assert.True(t, stderrors.Is(err, ErrAcquisitionFailed))
	assert.False(t, stderrors.Is(err, ErrAgentStuck))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "yt-dlp exited 1")

	// 原始错误不应被修改
	assert.Nil(t, ErrAcquisitionFailed.Cause())
}

func TestErrnoWrappedByFmt(t *testing.T) {
	err := fmt.Errorf("ingest video abc: %w", ErrInvalidFilter.WithMessage("bad key"))

	assert.Equal(t, ErrInvalidFilter.Code, GetCode(err))
	assert.Equal(t, "bad key", FromError(err).MessageEN)
}

func TestFromErrorUnknown(t *testing.T) {
	assert.Nil(t, FromError(nil))

	e := FromError(fmt.Errorf("boom"))
	require.NotNil(t, e)
	assert.Equal(t, ErrInternal.Code, e.Code)
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatus())
	assert.Equal(t, -1, GetCode(fmt.Errorf("plain")))
}

func TestDatabaseErr(t *testing.T) {
	assert.Equal(t, CategoryDatabase, GetCategory(ErrLedger.Code))
	assert.True(t, IsServerError(ErrLedger.Code))
	assert.Equal(t, http.StatusInternalServerError, ErrLedger.HTTPStatus())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrInvalidFilter.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, ErrCompanyNotFound.HTTPStatus())
	assert.Equal(t, http.StatusConflict, ErrIngestionRunning.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, New(1, 0, "x", "").HTTPStatus())
}

func TestMessageLanguage(t *testing.T) {
	assert.Equal(t, "元数据过滤条件无效", ErrInvalidFilter.Message("zh-CN"))
	assert.Equal(t, "Invalid metadata filter", ErrInvalidFilter.Message("en"))
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(New(ErrAgentStuck.Code, 500, "dup", ""))
	})
	assert.Equal(t, "Agent could not reach a final answer", ErrAgentStuck.MessageEN)
}

func TestNewErrorValidation(t *testing.T) {
	assert.Panics(t, func() { NewError(100, 1, 1, 400, "x", "") })
	assert.Panics(t, func() { NewError(50, 1, 1000, 400, "x", "") })
	assert.Panics(t, func() { NewError(50, 1, 1, 400, "", "") })
}

func TestFormatVerbose(t *testing.T) {
	err := ErrExtractionMalformed.WithCause(fmt.Errorf("unexpected token"))
	out := fmt.Sprintf("%+v", err)
	assert.Contains(t, out, "HTTP 500")
	assert.Contains(t, out, "caused by: unexpected token")
}
