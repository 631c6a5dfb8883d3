package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/valuerag/internal/pkg/httputils"
	"github.com/kart-io/valuerag/internal/valuerag/biz/thesis"
)

// AnalyzeThesisRequest is the body of POST /analyze-thesis.
type AnalyzeThesisRequest struct {
	Company string `json:"company" binding:"required"`
}

// AnalyzeThesisResponse 论文分析结果。
type AnalyzeThesisResponse struct {
	Summary       string                  `json:"summary"`
	Graphics      []thesis.GraphicRef     `json:"graphics"`
	FinancialData *thesis.FinancialRecord `json:"financial_data"`
}

// AnalyzeThesis summarizes a company thesis and extracts its financial data.
func (h *Handler) AnalyzeThesis(c *gin.Context) {
	var req AnalyzeThesisRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.deps.RequestTimeout)
	defer cancel()

	res, err := h.deps.Thesis.Extract(ctx, req.Company)
	if err != nil {
		httputils.WriteError(c, err)
		return
	}
	httputils.WriteResponse(c, nil, AnalyzeThesisResponse{
		Summary:       res.Summary,
		Graphics:      res.Graphics,
		FinancialData: res.FinancialData,
	})
}

// Companies lists the companies with a thesis PDF.
func (h *Handler) Companies(c *gin.Context) {
	companies, err := h.deps.Thesis.Companies()
	if err != nil {
		httputils.WriteError(c, err)
		return
	}
	httputils.WriteResponse(c, nil, gin.H{"companies": companies})
}

// CompanySummary returns the thesis summary rendered as HTML.
func (h *Handler) CompanySummary(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.deps.RequestTimeout)
	defer cancel()

	summary, err := h.deps.Thesis.Summary(ctx, c.Param("name"))
	if err != nil {
		httputils.WriteError(c, err)
		return
	}
	httputils.WriteResponse(c, nil, gin.H{"summary": summary})
}

// CompanyChart returns the intrinsic value projection.
func (h *Handler) CompanyChart(c *gin.Context) {
	httputils.WriteResponse(c, nil, h.deps.Thesis.Chart(c.Request.Context(), c.Param("name")))
}
