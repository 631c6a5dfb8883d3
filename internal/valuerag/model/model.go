// Package model defines the domain types shared by the valuerag layers.
package model

import (
	"strings"
	"time"
)

// DocType 文档类型，每个入库片段都必须带有该字段，否则过滤检索会静默漏掉它。
type DocType string

const (
	DocTypeCaption DocType = "caption"
	DocTypePDF     DocType = "pdf"
	DocTypeOCRPDF  DocType = "ocr_pdf"
)

// Valid reports whether t is one of the known document types.
func (t DocType) Valid() bool {
	switch t {
	case DocTypeCaption, DocTypePDF, DocTypeOCRPDF:
		return true
	}
	return false
}

// Metadata is the provenance attached to every segment and chunk.
type Metadata struct {
	SourceID string  `json:"source_id"`
	DocType  DocType `json:"doc_type"`
	// Page 从 1 开始，0 表示无页码（视频）。
	Page int `json:"page,omitempty"`
}

// Segment is a unit of raw text produced by acquisition.
type Segment struct {
	Text string
	Metadata
}

// Chunk is a bounded span of text ready to be embedded.
type Chunk struct {
	Text string `json:"text"`
	Metadata
}

// ScoredChunk is a retrieval hit.
type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}

// Filter is an exact-match conjunction over chunk metadata. Empty fields match anything.
type Filter struct {
	DocType  DocType
	SourceID string
}

// IsZero reports whether the filter restricts nothing.
func (f Filter) IsZero() bool {
	return f.DocType == "" && f.SourceID == ""
}

// Matches reports whether the metadata satisfies the filter.
func (f Filter) Matches(m Metadata) bool {
	if f.DocType != "" && f.DocType != m.DocType {
		return false
	}
	if f.SourceID != "" && f.SourceID != m.SourceID {
		return false
	}
	return true
}

// SourceKind distinguishes the two kinds of source references.
type SourceKind string

const (
	SourceVideo SourceKind = "video"
	SourcePDF   SourceKind = "pdf"
)

// SourceRef identifies a video URL or a PDF file to ingest.
type SourceRef struct {
	Kind SourceKind
	// Location 视频 URL 或 PDF 路径。
	Location string
	// ID 视频 ID 或 PDF 文件名。
	ID string
}

// Ingestion statuses recorded in the ledger.
const (
	StatusIndexed = "indexed"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// IngestResult describes the outcome of ingesting one source.
type IngestResult struct {
	Source   SourceRef     `json:"-"`
	SourceID string        `json:"source_id"`
	Kind     SourceKind    `json:"kind"`
	Strategy string        `json:"strategy,omitempty"`
	Status   string        `json:"status"`
	Chunks   int           `json:"chunks"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// BatchReport summarizes a batch ingestion run.
type BatchReport struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Results    []*IngestResult `json:"results"`
	// Unchanged counts sources an incremental run left alone.
	Unchanged int `json:"unchanged"`
}

// Count returns how many results have the given status.
func (r *BatchReport) Count(status string) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// TotalChunks returns the number of chunks indexed by the batch.
func (r *BatchReport) TotalChunks() int {
	n := 0
	for _, res := range r.Results {
		n += res.Chunks
	}
	return n
}

// Graphic is a figure, chart, table or diagram recognized on a PDF page.
type Graphic struct {
	Type    string `json:"type"`
	Caption string `json:"caption"`
	Content string `json:"content"`
}

// PageAnalysis is the per-page OCR result of a scanned PDF.
type PageAnalysis struct {
	PageNumber int       `json:"page_number"`
	IsReadable bool      `json:"is_readable"`
	MainText   string    `json:"main_text"`
	Graphics   []Graphic `json:"graphics"`
}

// Text flattens the page into indexable text, graphics appended after the body.
func (p *PageAnalysis) Text() string {
	if p == nil || !p.IsReadable {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(p.MainText))
	for _, g := range p.Graphics {
		line := strings.TrimSpace(g.Caption)
		if content := strings.TrimSpace(g.Content); content != "" {
			if line != "" {
				line += ": "
			}
			line += content
		}
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if g.Type != "" {
			b.WriteString("[" + g.Type + "] ")
		}
		b.WriteString(line)
	}
	return b.String()
}
