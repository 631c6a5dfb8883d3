package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/internal/pkg/textutil"
	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/internal/valuerag/store"
	"github.com/kart-io/valuerag/pkg/llm"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

// IndexerConfig 索引器配置。
type IndexerConfig struct {
	// Collection 集合名称。
	Collection string
	// EmbeddingDim 嵌入向量维度。
	EmbeddingDim int
	// BatchSize 每次调用 embedding 的片段数。
	BatchSize int
}

// Indexer 负责把片段向量化并写入向量库。
type Indexer struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	config        *IndexerConfig
	now           func() time.Time
}

// NewIndexer 创建索引器实例。
func NewIndexer(store store.VectorStore, embedProvider llm.EmbeddingProvider, config *IndexerConfig) *Indexer {
	if config.BatchSize <= 0 {
		config.BatchSize = 64
	}
	return &Indexer{
		store:         store,
		embedProvider: embedProvider,
		config:        config,
		now:           time.Now,
	}
}

// EnsureCollection 集合不存在时以固定维度和余弦相似度创建。
func (i *Indexer) EnsureCollection(ctx context.Context) error {
	created, err := i.store.EnsureCollection(ctx, &store.CollectionConfig{
		Name:        i.config.Collection,
		Description: "video captions and investment thesis chunks",
		Dimension:   i.config.EmbeddingDim,
	})
	if err != nil {
		return errors.ErrIndexFailed.WithCause(fmt.Errorf("ensure collection: %w", err))
	}
	if created {
		logger.Infow("Collection created", "collection", i.config.Collection, "dimension", i.config.EmbeddingDim)
	}
	return nil
}

// Upsert 向量化并写入片段，返回写入条数。不做去重，重复导入会产生重复片段。
func (i *Indexer) Upsert(ctx context.Context, chunks []model.Chunk) (int, error) {
	for idx, c := range chunks {
		if c.SourceID == "" {
			return 0, errors.ErrIndexFailed.WithMessagef("chunk %d has no source_id", idx)
		}
		if !c.DocType.Valid() {
			return 0, errors.ErrIndexFailed.WithMessagef("chunk %d has invalid doc_type %q", idx, c.DocType)
		}
	}

	written := 0
	ingestedAt := i.now().Unix()
	for start := 0; start < len(chunks); start += i.config.BatchSize {
		end := start + i.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for idx, c := range batch {
			texts[idx] = c.Text
		}

		embeddings, err := i.embedProvider.Embed(ctx, texts)
		if err != nil {
			return written, errors.ErrIndexFailed.WithCause(fmt.Errorf("failed to generate embeddings: %w", err))
		}
		if len(embeddings) != len(batch) {
			return written, errors.ErrIndexFailed.WithMessagef("embedding count mismatch: got %d, want %d", len(embeddings), len(batch))
		}

		records := make([]*store.Record, len(batch))
		for idx, c := range batch {
			if i.config.EmbeddingDim > 0 && len(embeddings[idx]) != i.config.EmbeddingDim {
				return written, errors.ErrIndexFailed.WithMessagef("embedding dimension %d, collection expects %d", len(embeddings[idx]), i.config.EmbeddingDim)
			}
			records[idx] = &store.Record{
				Chunk:       c,
				Embedding:   embeddings[idx],
				ContentHash: textutil.HashString(c.Text),
				IngestedAt:  ingestedAt,
			}
		}

		n, err := i.store.Insert(ctx, i.config.Collection, records)
		if err != nil {
			return written, errors.ErrIndexFailed.WithCause(err)
		}
		written += n
	}
	return written, nil
}

// Purge 删除某个来源的全部片段。
func (i *Indexer) Purge(ctx context.Context, sourceID string) (int64, error) {
	n, err := i.store.DeleteBySource(ctx, i.config.Collection, sourceID)
	if err != nil {
		return 0, errors.ErrIndexFailed.WithCause(err)
	}
	logger.Infow("Purged source", "source_id", sourceID, "deleted", n)
	return n, nil
}

// Count 返回集合中的向量总数。
func (i *Indexer) Count(ctx context.Context) (int64, error) {
	return i.store.Count(ctx, i.config.Collection)
}

// Collection returns the collection name.
func (i *Indexer) Collection() string {
	return i.config.Collection
}
