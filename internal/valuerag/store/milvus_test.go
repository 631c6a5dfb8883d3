package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/component/milvus"
)

func TestFilterExpr(t *testing.T) {
	tests := []struct {
		name   string
		filter model.Filter
		want   string
	}{
		{"empty", model.Filter{}, ""},
		{"doc type", model.Filter{DocType: model.DocTypeCaption}, `doc_type == "caption"`},
		{"both", model.Filter{DocType: model.DocTypePDF, SourceID: "NVIDIA.pdf"}, `doc_type == "pdf" && source_id == "NVIDIA.pdf"`},
		{"escaped", model.Filter{SourceID: `a"b\c`}, `source_id == "a\"b\\c"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterExpr(tt.filter))
		})
	}
}

func TestToScoredChunk(t *testing.T) {
	c := toScoredChunk(milvus.SearchResult{
		Score: 0.87,
		Metadata: map[string]any{
			FieldContent:  "revenue grew",
			FieldSourceID: "nvidia.pdf",
			FieldDocType:  "ocr_pdf",
			FieldPage:     int64(4),
		},
	})
	assert.Equal(t, "revenue grew", c.Text)
	assert.Equal(t, "nvidia.pdf", c.SourceID)
	assert.Equal(t, model.DocTypeOCRPDF, c.DocType)
	assert.Equal(t, 4, c.Page)
	assert.InDelta(t, 0.87, c.Score, 1e-6)
}
