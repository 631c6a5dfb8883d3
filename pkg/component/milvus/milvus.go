// Package milvus wraps the Milvus v2 SDK for a single-vector collection with
// scalar metadata fields.
package milvus

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/valuerag/pkg/options/milvus"
)

const (
	// PrimaryField 自增主键字段名。
	PrimaryField = "id"
	// VectorField 向量字段名。
	VectorField = "embedding"
)

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New creates a new Milvus client.
func New(opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{client: c, opts: opts}, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// CollectionSchema defines the schema for a vector collection.
type CollectionSchema struct {
	Name        string
	Description string
	Dimension   int
	// Metric 相似度度量，默认 COSINE。
	Metric     entity.MetricType
	MetaFields []MetaField
}

// MetaField defines a scalar metadata field.
type MetaField struct {
	Name     string
	DataType entity.FieldType
	MaxLen   int // VARCHAR 长度上限
}

// HasCollection reports whether the collection exists.
func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// CreateCollection creates the collection when it does not exist, builds the
// vector index and loads it. It returns true when a collection was created.
func (c *Client) CreateCollection(ctx context.Context, schema *CollectionSchema) (bool, error) {
	exists, err := c.HasCollection(ctx, schema.Name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, c.load(ctx, schema.Name)
	}

	collSchema := entity.NewSchema().
		WithName(schema.Name).
		WithDescription(schema.Description).
		WithAutoID(true)

	collSchema.WithField(
		entity.NewField().
			WithName(PrimaryField).
			WithDataType(entity.FieldTypeInt64).
			WithIsPrimaryKey(true).
			WithIsAutoID(true),
	)
	collSchema.WithField(
		entity.NewField().
			WithName(VectorField).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(schema.Dimension)),
	)
	for _, f := range schema.MetaFields {
		field := entity.NewField().
			WithName(f.Name).
			WithDataType(f.DataType)
		if f.DataType == entity.FieldTypeVarChar && f.MaxLen > 0 {
			field.WithMaxLength(int64(f.MaxLen))
		}
		collSchema.WithField(field)
	}

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(schema.Name, collSchema)); err != nil {
		return false, fmt.Errorf("failed to create collection: %w", err)
	}

	metric := schema.Metric
	if metric == "" {
		metric = entity.COSINE
	}
	createIdxTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(schema.Name, VectorField, index.NewIvfFlatIndex(metric, 128)))
	if err != nil {
		return false, fmt.Errorf("failed to create index: %w", err)
	}
	if err := createIdxTask.Await(ctx); err != nil {
		return false, fmt.Errorf("failed to wait for index creation: %w", err)
	}

	return true, c.load(ctx, schema.Name)
}

func (c *Client) load(ctx context.Context, name string) error {
	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// InsertData is a column-oriented batch.
// Metadata 中每一列的长度必须与 Embeddings 相同，值类型为 string 或 int64。
type InsertData struct {
	Embeddings [][]float32
	Metadata   map[string][]any
}

func buildColumns(data *InsertData) ([]column.Column, error) {
	if data == nil || len(data.Embeddings) == 0 {
		return nil, fmt.Errorf("insert data is empty")
	}
	rows := len(data.Embeddings)
	dim := len(data.Embeddings[0])

	columns := make([]column.Column, 0, len(data.Metadata)+1)
	columns = append(columns, column.NewColumnFloatVector(VectorField, dim, data.Embeddings))

	names := make([]string, 0, len(data.Metadata))
	for name := range data.Metadata {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		values := data.Metadata[name]
		if len(values) != rows {
			return nil, fmt.Errorf("field %s has %d values, want %d", name, len(values), rows)
		}
		switch values[0].(type) {
		case string:
			vals := make([]string, rows)
			for i, v := range values {
				s, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("field %s row %d: expected string, got %T", name, i, v)
				}
				vals[i] = s
			}
			columns = append(columns, column.NewColumnVarChar(name, vals))
		case int64:
			vals := make([]int64, rows)
			for i, v := range values {
				n, ok := v.(int64)
				if !ok {
					return nil, fmt.Errorf("field %s row %d: expected int64, got %T", name, i, v)
				}
				vals[i] = n
			}
			columns = append(columns, column.NewColumnInt64(name, vals))
		default:
			return nil, fmt.Errorf("unsupported metadata type: %T for field %s", values[0], name)
		}
	}
	return columns, nil
}

// Insert writes a batch and flushes it so that it is searchable.
func (c *Client) Insert(ctx context.Context, collectionName string, data *InsertData) ([]int64, error) {
	columns, err := buildColumns(data)
	if err != nil {
		return nil, err
	}

	result, err := c.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(collectionName, columns...))
	if err != nil {
		return nil, fmt.Errorf("failed to insert data: %w", err)
	}

	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collectionName))
	if err != nil {
		return nil, fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for flush: %w", err)
	}

	if ids, ok := result.IDs.(*column.ColumnInt64); ok {
		return ids.Data(), nil
	}
	return nil, nil
}

// SearchRequest describes a similarity search.
type SearchRequest struct {
	Collection   string
	Vector       []float32
	TopK         int
	Filter       string // 布尔表达式，为空表示不过滤
	OutputFields []string
}

// SearchResult represents a single search hit.
type SearchResult struct {
	ID       int64
	Score    float32
	Metadata map[string]any
}

// Search performs a filtered vector similarity search.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	opt := milvusclient.NewSearchOption(
		req.Collection,
		req.TopK,
		[]entity.Vector{entity.FloatVector(req.Vector)},
	).WithANNSField(VectorField).
		WithSearchParam("nprobe", "16").
		WithOutputFields(req.OutputFields...)
	if req.Filter != "" {
		opt = opt.WithFilter(req.Filter)
	}

	results, err := c.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(results) == 0 {
		return []SearchResult{}, nil
	}

	rs := results[0]
	out := make([]SearchResult, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		hit := SearchResult{
			Score:    rs.Scores[i],
			Metadata: make(map[string]any, len(rs.Fields)),
		}
		if idCol, ok := rs.IDs.(*column.ColumnInt64); ok {
			hit.ID = idCol.Data()[i]
		}
		for _, field := range rs.Fields {
			switch col := field.(type) {
			case *column.ColumnVarChar:
				hit.Metadata[col.Name()] = col.Data()[i]
			case *column.ColumnInt64:
				hit.Metadata[col.Name()] = col.Data()[i]
			}
		}
		out = append(out, hit)
	}
	return out, nil
}

// DeleteByExpr deletes all entities matching a boolean expression.
func (c *Client) DeleteByExpr(ctx context.Context, collectionName, expr string) (int64, error) {
	if expr == "" {
		return 0, fmt.Errorf("delete expression is empty")
	}
	res, err := c.client.Delete(ctx, milvusclient.NewDeleteOption(collectionName).WithExpr(expr))
	if err != nil {
		return 0, fmt.Errorf("failed to delete by expr: %w", err)
	}
	return res.DeleteCount, nil
}

// DropCollection drops a collection.
func (c *Client) DropCollection(ctx context.Context, collectionName string) error {
	if err := c.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(collectionName)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// GetCollectionStats returns the number of entities in a collection.
func (c *Client) GetCollectionStats(ctx context.Context, collectionName string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collectionName))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}
	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}
