// Package store provides the persistence layer: the vector index and the ingestion ledger.
package store

import (
	"context"

	"github.com/kart-io/valuerag/internal/valuerag/model"
)

// Record 待写入向量库的片段及其向量。
type Record struct {
	model.Chunk
	Embedding []float32
	// ContentHash 文本的 sha256，仅用于排查重复，不做去重。
	ContentHash string
	IngestedAt  int64
}

// CollectionConfig 集合配置。
type CollectionConfig struct {
	Name        string
	Description string
	Dimension   int
}

// VectorStore 定义向量存储接口。
type VectorStore interface {
	// EnsureCollection 集合不存在时创建，返回是否新建。
	EnsureCollection(ctx context.Context, config *CollectionConfig) (bool, error)

	// Insert 批量插入，不做去重。
	Insert(ctx context.Context, collection string, records []*Record) (int, error)

	// Search 按相似度降序返回至多 topK 条满足过滤条件的片段。
	Search(ctx context.Context, collection string, embedding []float32, topK int, filter model.Filter) ([]*model.ScoredChunk, error)

	// DeleteBySource 删除某个来源的全部片段。
	DeleteBySource(ctx context.Context, collection, sourceID string) (int64, error)

	// Count 返回集合中的向量总数。
	Count(ctx context.Context, collection string) (int64, error)
}
