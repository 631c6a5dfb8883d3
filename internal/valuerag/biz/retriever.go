package biz

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/internal/valuerag/store"
	"github.com/kart-io/valuerag/pkg/llm"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

// 支持的过滤键。
const (
	FilterKeyDocType  = "doc_type"
	FilterKeySourceID = "source_id"
)

// Searcher 抽象相似度检索，供问答、论文抽取和智能体工具共用。
type Searcher interface {
	Search(ctx context.Context, query string, k int, filter model.Filter) ([]*model.ScoredChunk, error)
}

// ParseFilter 校验并转换外部传入的过滤条件。
// 只接受 doc_type / source_id 两个键，值必须是非空字符串，其他形状返回 ErrInvalidFilter。
func ParseFilter(raw map[string]any) (model.Filter, error) {
	var f model.Filter
	for key, val := range raw {
		s, ok := val.(string)
		if !ok {
			return model.Filter{}, errors.ErrInvalidFilter.WithMessagef("filter %q must be a string, got %T", key, val)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return model.Filter{}, errors.ErrInvalidFilter.WithMessagef("filter %q must not be empty", key)
		}
		switch key {
		case FilterKeyDocType:
			f.DocType = model.DocType(s)
		case FilterKeySourceID:
			f.SourceID = s
		default:
			return model.Filter{}, errors.ErrInvalidFilter.WithMessagef("unsupported filter key %q", key)
		}
	}
	if err := validateFilter(f); err != nil {
		return model.Filter{}, err
	}
	return f, nil
}

func validateFilter(f model.Filter) error {
	if f.DocType != "" && !f.DocType.Valid() {
		return errors.ErrInvalidFilter.WithMessagef("unsupported doc_type %q", f.DocType)
	}
	return nil
}

// Retriever 基于向量相似度检索片段。
type Retriever struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	collection    string
}

var _ Searcher = (*Retriever)(nil)

// NewRetriever 创建检索器实例。
func NewRetriever(store store.VectorStore, embedProvider llm.EmbeddingProvider, collection string) *Retriever {
	return &Retriever{store: store, embedProvider: embedProvider, collection: collection}
}

// Search 返回至多 k 个满足过滤条件的片段，按相似度降序。空结果不是错误。
func (r *Retriever) Search(ctx context.Context, query string, k int, filter model.Filter) ([]*model.ScoredChunk, error) {
	if k <= 0 {
		return nil, errors.ErrInvalidRequest.WithMessagef("k must be positive, got %d", k)
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	embedding, err := r.embedProvider.EmbedSingle(ctx, query)
	if err != nil {
		return nil, errors.ErrQueryFailed.WithCause(fmt.Errorf("failed to embed query: %w", err))
	}

	results, err := r.store.Search(ctx, r.collection, embedding, k, filter)
	if err != nil {
		return nil, errors.ErrQueryFailed.WithCause(err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}

	logger.Debugw("retrieval done",
		"k", k,
		"doc_type", string(filter.DocType),
		"source_id", filter.SourceID,
		"hits", len(results),
	)
	return results, nil
}
