package handler

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/internal/pkg/httputils"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

// multipartOverhead 为表单边界与 session_id 字段预留的字节数。
const multipartOverhead = 64 << 10

// AskTextRequest is the body of POST /ask-text.
type AskTextRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id"`
}

// AskResponse is returned by both ask endpoints.
type AskResponse struct {
	Transcription string  `json:"transcription,omitempty"`
	Answer        string  `json:"answer"`
	AudioBase64   *string `json:"audio_base64"`
	SessionID     string  `json:"session_id"`
}

// AskText answers a typed question.
func (h *Handler) AskText(c *gin.Context) {
	var req AskTextRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.deps.RequestTimeout)
	defer cancel()

	ans, err := h.deps.Agent.Ask(ctx, req.SessionID, req.Query)
	if err != nil {
		httputils.WriteError(c, err)
		return
	}

	httputils.WriteResponse(c, nil, AskResponse{
		Answer:      ans.Answer,
		AudioBase64: h.speak(ctx, ans.Answer),
		SessionID:   ans.SessionID,
	})
}

// AskAudio transcribes an uploaded recording and answers it.
func (h *Handler) AskAudio(c *gin.Context) {
	if h.deps.Transcriber == nil {
		httputils.WriteError(c, errors.ErrTranscription.WithMessage("speech transcription is not configured"))
		return
	}

	if h.deps.MaxUploadSize > 0 {
		// 多部分表单的其余字段也计入上限。
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.deps.MaxUploadSize+multipartOverhead)
	}
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			httputils.WriteError(c, errors.ErrInvalidRequest.WithMessagef("audio file exceeds %d bytes", h.deps.MaxUploadSize))
			return
		}
		httputils.WriteError(c, errors.ErrInvalidRequest.WithMessage("multipart field \"file\" is required"))
		return
	}
	if h.deps.MaxUploadSize > 0 && file.Size > h.deps.MaxUploadSize {
		httputils.WriteError(c, errors.ErrInvalidRequest.WithMessagef("audio file exceeds %d bytes", h.deps.MaxUploadSize))
		return
	}

	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".mp3"
	}
	tmp, err := os.CreateTemp("", "valuerag-audio-*"+ext)
	if err != nil {
		httputils.WriteError(c, errors.ErrInternal.WithCause(err))
		return
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			logger.Warnw("Failed to remove uploaded audio", "path", tmpPath, "error", err.Error())
		}
	}()

	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		httputils.WriteError(c, errors.ErrInvalidRequest.WithCause(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.deps.RequestTimeout)
	defer cancel()

	text, err := h.deps.Transcriber.Transcribe(ctx, tmpPath)
	if err != nil || text == "" {
		if err != nil {
			logger.Warnw("Audio transcription failed", "file", file.Filename, "error", err.Error())
		}
		httputils.WriteError(c, errors.ErrTranscription)
		return
	}

	ans, err := h.deps.Agent.Ask(ctx, c.PostForm("session_id"), text)
	if err != nil {
		httputils.WriteError(c, err)
		return
	}

	httputils.WriteResponse(c, nil, AskResponse{
		Transcription: text,
		Answer:        ans.Answer,
		AudioBase64:   h.speak(ctx, ans.Answer),
		SessionID:     ans.SessionID,
	})
}
