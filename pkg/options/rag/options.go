// Package rag provides retrieval and indexing configuration options.
package rag

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/valuerag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains chunking, indexing and retrieval configuration.
type Options struct {
	// ChunkSize 单个分块的最大字符数。
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap 相邻分块的重叠字符数。
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// MaxChunkTokens 分块的 token 上限 (cl100k)，0 表示不检查。
	MaxChunkTokens int `json:"max-chunk-tokens" mapstructure:"max-chunk-tokens"`

	// TopK 检索返回的分块数量。
	TopK int `json:"top-k" mapstructure:"top-k"`

	// Collection 向量集合名称。
	Collection string `json:"collection" mapstructure:"collection"`

	// EmbeddingDim 向量维度，需与 embedding 模型一致。
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// EmbedBatchSize 单次 embedding 请求的文本数量。
	EmbedBatchSize int `json:"embed-batch-size" mapstructure:"embed-batch-size"`

	// AnswerCacheTTL 问答结果缓存时间，0 表示禁用。
	AnswerCacheTTL time.Duration `json:"answer-cache-ttl" mapstructure:"answer-cache-ttl"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:      1000,
		ChunkOverlap:   150,
		MaxChunkTokens: 2000,
		TopK:           5,
		Collection:     "youtube_rag_index",
		EmbeddingDim:   1536,
		EmbedBatchSize: 64,
		AnswerCacheTTL: 0,
	}
}

// AddFlags adds flags for RAG options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "rag."
	fs.IntVar(&o.ChunkSize, p+"chunk-size", o.ChunkSize, "Maximum characters per chunk.")
	fs.IntVar(&o.ChunkOverlap, p+"chunk-overlap", o.ChunkOverlap, "Characters shared by consecutive chunks.")
	fs.IntVar(&o.MaxChunkTokens, p+"max-chunk-tokens", o.MaxChunkTokens, "Token ceiling per chunk (0 disables).")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Number of chunks retrieved per question.")
	fs.StringVar(&o.Collection, p+"collection", o.Collection, "Vector collection name.")
	fs.IntVar(&o.EmbeddingDim, p+"embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.IntVar(&o.EmbedBatchSize, p+"embed-batch-size", o.EmbedBatchSize, "Texts per embedding request.")
	fs.DurationVar(&o.AnswerCacheTTL, p+"answer-cache-ttl", o.AnswerCacheTTL, "TTL of cached answers (0 disables).")
}

// Validate validates the RAG options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk-overlap must be in [0, chunk-size)"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("rag.top-k must be positive"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("rag.embedding-dim must be positive"))
	}
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("rag.collection is required"))
	}
	return errs
}

// Complete completes the RAG options with defaults.
func (o *Options) Complete() error {
	if o.EmbedBatchSize <= 0 {
		o.EmbedBatchSize = 64
	}
	return nil
}
