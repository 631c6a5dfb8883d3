package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/valuerag/internal/pkg/httputils"
	"github.com/kart-io/valuerag/internal/valuerag/biz"
	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

const maxSearchK = 50

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
	// Filter 只支持 doc_type 与 source_id。
	Filter map[string]any `json:"filter"`
}

// SearchResponse lists the matching chunks by descending score.
type SearchResponse struct {
	Results []*model.ScoredChunk `json:"results"`
}

// Search runs a similarity search over the index without the agent.
func (h *Handler) Search(c *gin.Context) {
	if h.deps.Searcher == nil {
		httputils.WriteError(c, errors.ErrInternal.WithMessage("search is not configured"))
		return
	}
	var req SearchRequest
	if !bindJSON(c, &req) {
		return
	}
	filter, err := biz.ParseFilter(req.Filter)
	if err != nil {
		httputils.WriteError(c, err)
		return
	}
	k := req.K
	switch {
	case k < 0:
		httputils.WriteError(c, errors.ErrInvalidRequest.WithMessagef("k must be positive, got %d", k))
		return
	case k == 0:
		k = h.deps.SearchTopK
	case k > maxSearchK:
		k = maxSearchK
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.deps.RequestTimeout)
	defer cancel()

	hits, err := h.deps.Searcher.Search(ctx, req.Query, k, filter)
	if err != nil {
		httputils.WriteError(c, err)
		return
	}
	if hits == nil {
		hits = []*model.ScoredChunk{}
	}
	httputils.WriteResponse(c, nil, SearchResponse{Results: hits})
}
