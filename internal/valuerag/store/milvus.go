package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/component/milvus"
)

// Milvus 中的标量字段名。
const (
	FieldSourceID    = "source_id"
	FieldDocType     = "doc_type"
	FieldPage        = "page"
	FieldContent     = "content"
	FieldContentHash = "content_hash"
	FieldIngestedAt  = "ingested_at"
)

var outputFields = []string{FieldSourceID, FieldDocType, FieldPage, FieldContent}

// MilvusStore 实现基于 Milvus 的向量存储。
type MilvusStore struct {
	client *milvus.Client
}

var _ VectorStore = (*MilvusStore)(nil)

// NewMilvusStore 创建 Milvus 存储实例。
func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return &MilvusStore{client: client}
}

// EnsureCollection 创建固定名称的集合（余弦相似度）。
func (s *MilvusStore) EnsureCollection(ctx context.Context, config *CollectionConfig) (bool, error) {
	schema := &milvus.CollectionSchema{
		Name:        config.Name,
		Description: config.Description,
		Dimension:   config.Dimension,
		Metric:      entity.COSINE,
		MetaFields: []milvus.MetaField{
			{Name: FieldSourceID, DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: FieldDocType, DataType: entity.FieldTypeVarChar, MaxLen: 16},
			{Name: FieldPage, DataType: entity.FieldTypeInt64},
			{Name: FieldContent, DataType: entity.FieldTypeVarChar, MaxLen: 65535},
			{Name: FieldContentHash, DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: FieldIngestedAt, DataType: entity.FieldTypeInt64},
		},
	}
	return s.client.CreateCollection(ctx, schema)
}

// Insert 批量插入片段到 Milvus。
func (s *MilvusStore) Insert(ctx context.Context, collection string, records []*Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	n := len(records)
	embeddings := make([][]float32, n)
	metadata := map[string][]any{
		FieldSourceID:    make([]any, n),
		FieldDocType:     make([]any, n),
		FieldPage:        make([]any, n),
		FieldContent:     make([]any, n),
		FieldContentHash: make([]any, n),
		FieldIngestedAt:  make([]any, n),
	}

	for i, r := range records {
		embeddings[i] = r.Embedding
		metadata[FieldSourceID][i] = r.SourceID
		metadata[FieldDocType][i] = string(r.DocType)
		metadata[FieldPage][i] = int64(r.Page)
		metadata[FieldContent][i] = r.Text
		metadata[FieldContentHash][i] = r.ContentHash
		metadata[FieldIngestedAt][i] = r.IngestedAt
	}

	ids, err := s.client.Insert(ctx, collection, &milvus.InsertData{
		Embeddings: embeddings,
		Metadata:   metadata,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert into milvus: %w", err)
	}
	if ids == nil {
		return n, nil
	}
	return len(ids), nil
}

// Search 执行带元数据过滤的相似度搜索。
func (s *MilvusStore) Search(ctx context.Context, collection string, embedding []float32, topK int, filter model.Filter) ([]*model.ScoredChunk, error) {
	results, err := s.client.Search(ctx, milvus.SearchRequest{
		Collection:   collection,
		Vector:       embedding,
		TopK:         topK,
		Filter:       FilterExpr(filter),
		OutputFields: outputFields,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	out := make([]*model.ScoredChunk, 0, len(results))
	for _, r := range results {
		out = append(out, toScoredChunk(r))
	}
	return out, nil
}

func toScoredChunk(r milvus.SearchResult) *model.ScoredChunk {
	c := &model.ScoredChunk{Score: r.Score}
	if v, ok := r.Metadata[FieldContent].(string); ok {
		c.Text = v
	}
	if v, ok := r.Metadata[FieldSourceID].(string); ok {
		c.SourceID = v
	}
	if v, ok := r.Metadata[FieldDocType].(string); ok {
		c.DocType = model.DocType(v)
	}
	if v, ok := r.Metadata[FieldPage].(int64); ok {
		c.Page = int(v)
	}
	return c
}

// DeleteBySource 删除某个来源的全部片段。
func (s *MilvusStore) DeleteBySource(ctx context.Context, collection, sourceID string) (int64, error) {
	if sourceID == "" {
		return 0, fmt.Errorf("source id is required")
	}
	return s.client.DeleteByExpr(ctx, collection, FilterExpr(model.Filter{SourceID: sourceID}))
}

// Count 返回集合中的向量总数。
func (s *MilvusStore) Count(ctx context.Context, collection string) (int64, error) {
	return s.client.GetCollectionStats(ctx, collection)
}

// FilterExpr 将过滤条件转换为 Milvus 布尔表达式，空过滤返回空串。
func FilterExpr(f model.Filter) string {
	var parts []string
	if f.DocType != "" {
		parts = append(parts, fmt.Sprintf(`%s == "%s"`, FieldDocType, escapeString(string(f.DocType))))
	}
	if f.SourceID != "" {
		parts = append(parts, fmt.Sprintf(`%s == "%s"`, FieldSourceID, escapeString(f.SourceID)))
	}
	return strings.Join(parts, " && ")
}

var exprEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeString(s string) string {
	return exprEscaper.Replace(s)
}
