package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/internal/pkg/httputils"
	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/infra/app"
	"github.com/kart-io/valuerag/pkg/marketdata"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

// recentIngestions 是 /stats 返回的台账条数。
const recentIngestions = 10

// Stats returns the vector count of the index and, with a ledger, the latest
// ingestion outcomes.
func (h *Handler) Stats(c *gin.Context) {
	total, err := h.deps.Index.Count(c.Request.Context())
	if err != nil {
		httputils.WriteError(c, errors.ErrQueryFailed.WithCause(err))
		return
	}
	resp := gin.H{
		"total_vectors": total,
		"collection":    h.deps.Index.Collection(),
	}
	if h.deps.IngestLog != nil {
		recent, err := h.deps.IngestLog.Recent(c.Request.Context(), recentIngestions)
		if err != nil {
			logger.Warnw("Failed to read ingestion ledger", "error", err.Error())
		} else {
			resp["recent_ingestions"] = recent
		}
	}
	httputils.WriteResponse(c, nil, resp)
}

// Ticker returns the ticker tape. 单个代码失败时跳过。
func (h *Handler) Ticker(c *gin.Context) {
	if h.deps.Market == nil {
		httputils.WriteResponse(c, nil, []marketdata.TickerItem{})
		return
	}
	httputils.WriteResponse(c, nil, marketdata.Tape(c.Request.Context(), h.deps.Market, h.deps.Symbols))
}

// Ingest starts a batch ingestion in the background.
func (h *Handler) Ingest(c *gin.Context) {
	if h.deps.Ingester == nil || h.deps.Workers == nil {
		httputils.WriteError(c, errors.ErrInternal.WithMessage("ingestion is not configured"))
		return
	}

	// 批量导入脱离请求生命周期。
	ctx := context.WithoutCancel(c.Request.Context())
	err := h.deps.Ingester.StartBatch(ctx, h.deps.Workers.SubmitWithContext, func(report *model.BatchReport, err error) {
		if err != nil {
			logger.Warnw("Background ingestion not run", "error", err.Error())
			return
		}
		logger.Infow("Background ingestion done",
			"indexed", report.Count(model.StatusIndexed),
			"skipped", report.Count(model.StatusSkipped),
			"failed", report.Count(model.StatusFailed))
	})
	if err != nil {
		httputils.WriteError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// Healthz reports liveness and the build version.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": app.GetVersion()})
}
