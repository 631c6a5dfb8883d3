package milvus

import (
	"testing"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildColumns(t *testing.T) {
	cols, err := buildColumns(&InsertData{
		Embeddings: [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		Metadata: map[string][]any{
			"source_id": {"a.pdf", "a.pdf"},
			"page":      {int64(1), int64(2)},
		},
	})
	require.NoError(t, err)
	require.Len(t, cols, 3)

	assert.Equal(t, VectorField, cols[0].Name())
	// 元数据列按名称排序
	assert.Equal(t, "page", cols[1].Name())
	assert.Equal(t, "source_id", cols[2].Name())

	pages, ok := cols[1].(*column.ColumnInt64)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2}, pages.Data())
}

func TestBuildColumnsErrors(t *testing.T) {
	_, err := buildColumns(&InsertData{})
	assert.Error(t, err)

	_, err = buildColumns(&InsertData{
		Embeddings: [][]float32{{0.1}, {0.2}},
		Metadata:   map[string][]any{"doc_type": {"pdf"}},
	})
	assert.ErrorContains(t, err, "has 1 values, want 2")

	_, err = buildColumns(&InsertData{
		Embeddings: [][]float32{{0.1}, {0.2}},
		Metadata:   map[string][]any{"doc_type": {"pdf", int64(3)}},
	})
	assert.ErrorContains(t, err, "expected string")

	_, err = buildColumns(&InsertData{
		Embeddings: [][]float32{{0.1}},
		Metadata:   map[string][]any{"score": {1.5}},
	})
	assert.ErrorContains(t, err, "unsupported metadata type")
}
