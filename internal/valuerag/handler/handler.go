// Package handler provides HTTP handlers for the valuerag service.
package handler

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/internal/pkg/httputils"
	"github.com/kart-io/valuerag/internal/valuerag/biz"
	"github.com/kart-io/valuerag/internal/valuerag/biz/agent"
	"github.com/kart-io/valuerag/internal/valuerag/biz/thesis"
	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/internal/valuerag/store"
	"github.com/kart-io/valuerag/pkg/infra/pool"
	"github.com/kart-io/valuerag/pkg/marketdata"
	"github.com/kart-io/valuerag/pkg/speech"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

// Asker answers questions within a session.
type Asker interface {
	Ask(ctx context.Context, sessionID, question string) (*agent.Answer, error)
}

// ThesisService analyzes company theses.
type ThesisService interface {
	Extract(ctx context.Context, company string) (*thesis.Result, error)
	Summary(ctx context.Context, company string) (string, error)
	Chart(ctx context.Context, company string) *thesis.Chart
	Companies() ([]string, error)
}

// IndexStats reports the vector index size.
type IndexStats interface {
	Count(ctx context.Context) (int64, error)
	Collection() string
}

// BatchRunner starts batch ingestion; StartBatch fails with ErrIngestionRunning
// when a batch already holds the ingester.
type BatchRunner interface {
	StartBatch(ctx context.Context, submit biz.Submitter, done func(*model.BatchReport, error)) error
}

// IngestLog lists the latest ingestion outcomes.
type IngestLog interface {
	Recent(ctx context.Context, limit int) ([]store.SourceRecord, error)
}

// Deps 汇总 Handler 的依赖，可选依赖为 nil 时对应功能降级。
type Deps struct {
	Agent       Asker
	Transcriber speech.Transcriber
	Synthesizer speech.Synthesizer
	Thesis      ThesisService
	Index       IndexStats
	Searcher    biz.Searcher
	Ingester    BatchRunner
	IngestLog   IngestLog
	Market      marketdata.Provider
	Symbols     []string
	Workers     *pool.Pool

	MaxUploadSize  int64
	RequestTimeout time.Duration
	// SearchTopK 是 /search 未指定 k 时的默认值。
	SearchTopK int
}

// Handler serves the question answering, thesis and admin endpoints.
type Handler struct {
	deps Deps
}

// New creates a Handler.
func New(deps Deps) *Handler {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 120 * time.Second
	}
	if deps.SearchTopK <= 0 {
		deps.SearchTopK = 4
	}
	return &Handler{deps: deps}
}

// speak 合成语音并编码为 base64，失败或未启用时返回 nil。
func (h *Handler) speak(ctx context.Context, text string) *string {
	if h.deps.Synthesizer == nil || text == "" {
		return nil
	}
	audio, err := h.deps.Synthesizer.Synthesize(ctx, text)
	if err != nil {
		logger.Warnw("Speech synthesis failed", "error", err.Error())
		return nil
	}
	encoded := base64.StdEncoding.EncodeToString(audio)
	return &encoded
}

// bindJSON 绑定并校验请求体，失败时写入 400 并返回 false。
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		httputils.WriteError(c, errors.ErrInvalidRequest.WithMessage(bindMessage(err)).WithCause(err))
		return false
	}
	return true
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return "request body must be valid JSON"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	if fe.Tag() == "required" {
		return field + " is required"
	}
	return fmt.Sprintf("%s fails %q validation", field, fe.Tag())
}
