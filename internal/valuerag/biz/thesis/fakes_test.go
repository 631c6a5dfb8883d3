package thesis

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/llm"
	"github.com/kart-io/valuerag/pkg/marketdata"
	thesisopts "github.com/kart-io/valuerag/pkg/options/thesis"
)

type recordingSearcher struct {
	filters []model.Filter
	ks      []int
	chunks  []*model.ScoredChunk
	err     error
}

func (s *recordingSearcher) Search(_ context.Context, _ string, k int, f model.Filter) ([]*model.ScoredChunk, error) {
	s.filters = append(s.filters, f)
	s.ks = append(s.ks, k)
	return s.chunks, s.err
}

// promptChat 按系统提示词区分摘要与抽取请求。
type promptChat struct {
	summary    string
	extraction string
	err        error
}

func (c *promptChat) Chat(context.Context, []llm.Message) (string, error) { return "", c.err }

func (c *promptChat) Generate(_ context.Context, _ string, system string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if strings.Contains(system, "data extraction") {
		return c.extraction, nil
	}
	return c.summary, nil
}

func (c *promptChat) Name() string { return "prompt" }

type stubMarket struct {
	quotes map[string]*marketdata.Quote
	calls  int
}

func (m *stubMarket) Fetch(_ context.Context, ticker string) (*marketdata.Quote, error) {
	m.calls++
	if q, ok := m.quotes[ticker]; ok {
		return q, nil
	}
	return nil, context.DeadlineExceeded
}

func ptr(v float64) *float64 { return &v }

func newTestOptions(t *testing.T, pdfs ...string) *thesisopts.Options {
	t.Helper()
	opts := thesisopts.NewOptions()
	opts.PDFDir = t.TempDir()
	opts.CacheDir = t.TempDir()
	for _, name := range pdfs {
		require.NoError(t, os.WriteFile(filepath.Join(opts.PDFDir, name), []byte("%PDF"), 0o600))
	}
	return opts
}
