package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(map[string]any{"doc_type": "pdf", "source_id": "NVIDIA.pdf"})
	require.NoError(t, err)
	assert.Equal(t, model.Filter{DocType: model.DocTypePDF, SourceID: "NVIDIA.pdf"}, f)

	f, err = ParseFilter(nil)
	require.NoError(t, err)
	assert.True(t, f.IsZero())

	bad := []map[string]any{
		{"type": "pdf"},
		{"doc_type": "video"},
		{"doc_type": map[string]any{"$ne": "pdf"}},
		{"source_id": ""},
		{"source_id": 3},
	}
	for _, raw := range bad {
		_, err := ParseFilter(raw)
		assert.ErrorIs(t, err, errors.ErrInvalidFilter, "%v", raw)
	}
}

func seedRetrieval(t *testing.T) (*Retriever, *memoryStore) {
	t.Helper()
	st := newMemoryStore()
	emb := &fakeEmbedder{}
	idx := newTestIndexer(st, emb)
	ctx := context.Background()

	_, err := idx.Upsert(ctx, []model.Chunk{
		{Text: "nvidia revenue grew with data center demand", Metadata: model.Metadata{SourceID: "NVIDIA.pdf", DocType: model.DocTypePDF, Page: 1}},
		{Text: "nvidia revenue from gaming", Metadata: model.Metadata{SourceID: "NVIDIA.pdf", DocType: model.DocTypeOCRPDF, Page: 2}},
		{Text: "apple revenue grew with services", Metadata: model.Metadata{SourceID: "APPLE.pdf", DocType: model.DocTypePDF, Page: 1}},
		{Text: "in this video nvidia revenue is discussed", Metadata: model.Metadata{SourceID: "vid1", DocType: model.DocTypeCaption}},
	})
	require.NoError(t, err)
	return NewRetriever(st, emb, "test"), st
}

func TestRetrieverFilterExactMatch(t *testing.T) {
	r, _ := seedRetrieval(t)

	hits, err := r.Search(context.Background(), "nvidia revenue", 10, model.Filter{DocType: model.DocTypePDF, SourceID: "NVIDIA.pdf"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "NVIDIA.pdf", hits[0].SourceID)
	assert.Equal(t, model.DocTypePDF, hits[0].DocType)
}

func TestRetrieverOrderingAndK(t *testing.T) {
	r, _ := seedRetrieval(t)

	hits, err := r.Search(context.Background(), "nvidia revenue", 2, model.Filter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestRetrieverEmptyResultIsValid(t *testing.T) {
	r, _ := seedRetrieval(t)

	hits, err := r.Search(context.Background(), "anything", 5, model.Filter{SourceID: "TESLA.pdf"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRetrieverRejectsBadInput(t *testing.T) {
	r, _ := seedRetrieval(t)

	_, err := r.Search(context.Background(), "q", 0, model.Filter{})
	assert.ErrorIs(t, err, errors.ErrInvalidRequest)

	_, err = r.Search(context.Background(), "q", 3, model.Filter{DocType: "video"})
	assert.ErrorIs(t, err, errors.ErrInvalidFilter)
}
