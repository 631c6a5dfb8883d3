package thesis

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/marketdata"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

const nvidiaExtraction = `{"revenue": {"years": [], "values": []},
"net_income": {"years": [], "values": []},
"valuation": {"pe_ratio": 45.0, "ps_ratio": null, "fcf_yield": null, "market_cap": null}}`

func TestExtractBackfillsFromMarketData(t *testing.T) {
	opts := newTestOptions(t, "NVIDIA.pdf")
	searcher := &recordingSearcher{chunks: []*model.ScoredChunk{{Chunk: model.Chunk{Text: "NVIDIA data center growth"}}}}
	chat := &promptChat{summary: "## Growth\nData centers.", extraction: "```json\n" + nvidiaExtraction + "\n```"}
	market := &stubMarket{quotes: map[string]*marketdata.Quote{
		"NVDA": {
			TrailingPE:   ptr(60),
			PriceToSales: ptr(30),
			MarketCap:    ptr(3.2e12),
			Revenue:      marketdata.Series{Years: []string{"2022", "2023", "2024"}, Values: []float64{27, 27, 61}},
			NetIncome:    marketdata.Series{Years: []string{"2022", "2023", "2024"}, Values: []float64{9.7, 4.4, 29.8}},
		},
	}}

	res, err := NewExtractor(searcher, chat, market, opts).Extract(context.Background(), "NVIDIA")
	require.NoError(t, err)

	assert.Equal(t, "NVIDIA", res.Company)
	assert.Equal(t, "## Growth\nData centers.", res.Summary)
	assert.Equal(t, []string{"2022", "2023", "2024"}, res.FinancialData.Revenue.Years)
	assert.Equal(t, []float64{9.7, 4.4, 29.8}, res.FinancialData.NetIncome.Values)
	// 文档中的字段优先于行情数据。
	require.NotNil(t, res.FinancialData.Valuation.PERatio)
	assert.InDelta(t, 45.0, *res.FinancialData.Valuation.PERatio, 1e-9)
	require.NotNil(t, res.FinancialData.Valuation.PSRatio)
	assert.InDelta(t, 30.0, *res.FinancialData.Valuation.PSRatio, 1e-9)
	require.NotNil(t, res.FinancialData.Valuation.MarketCap)
	assert.Equal(t, "3.20T", *res.FinancialData.Valuation.MarketCap)

	require.Len(t, searcher.filters, 2)
	for _, f := range searcher.filters {
		assert.Equal(t, "NVIDIA.pdf", f.SourceID)
	}
	assert.Equal(t, []int{opts.SummaryTopK, opts.FinancialTopK}, searcher.ks)
}

func TestExtractKeepsDocumentSeries(t *testing.T) {
	opts := newTestOptions(t, "Ferrari.pdf")
	chat := &promptChat{
		summary:    "summary",
		extraction: `{"revenue": {"years": ["2022","2023"], "values": [5.1, 5.9]}}`,
	}
	market := &stubMarket{}

	res, err := NewExtractor(&recordingSearcher{}, chat, market, opts).Extract(context.Background(), "Ferrari")
	require.NoError(t, err)
	assert.Equal(t, []float64{5.1, 5.9}, res.FinancialData.Revenue.Values)
	assert.Zero(t, market.calls)
}

func TestExtractErrors(t *testing.T) {
	opts := newTestOptions(t, "ASML.pdf")

	_, err := NewExtractor(&recordingSearcher{}, &promptChat{}, nil, opts).Extract(context.Background(), "Unknown")
	assert.True(t, stderrors.Is(err, errors.ErrCompanyNotFound))

	_, err = NewExtractor(&recordingSearcher{}, &promptChat{err: stderrors.New("down")}, nil, opts).Extract(context.Background(), "ASML")
	assert.True(t, stderrors.Is(err, errors.ErrLLMUnavailable))

	chat := &promptChat{summary: "ok", extraction: `{"revenue": {"years": ["2023"], "values": []}}`}
	_, err = NewExtractor(&recordingSearcher{}, chat, nil, opts).Extract(context.Background(), "ASML")
	assert.True(t, stderrors.Is(err, errors.ErrExtractionMalformed))

	_, err = NewExtractor(&recordingSearcher{}, chat, nil, opts).Extract(context.Background(), "  ")
	assert.True(t, stderrors.Is(err, errors.ErrInvalidRequest))
}

func TestExtractFromCache(t *testing.T) {
	opts := newTestOptions(t)
	cache := `{
  "filename": "TSMC.pdf",
  "summary": "Foundry leader.",
  "pages": [
    {"page_number": 1, "graphics": []},
    {"page_number": 3, "graphics": [{"type": "bar chart", "caption": "Revenue", "content": "2023: 69"}]}
  ],
  "financial_data": {"revenue": {"years": [2023], "values": [69.3]}}
}`
	require.NoError(t, os.WriteFile(filepath.Join(opts.CacheDir, "TSMC.json"), []byte(cache), 0o600))

	chat := &promptChat{err: stderrors.New("must not be called")}
	res, err := NewExtractor(&recordingSearcher{}, chat, nil, opts).Extract(context.Background(), "TSMC")
	require.NoError(t, err)
	assert.Equal(t, "Foundry leader.", res.Summary)
	require.Len(t, res.Graphics, 1)
	assert.Equal(t, 3, res.Graphics[0].Page)
	assert.Equal(t, "bar chart", res.Graphics[0].Type)
	assert.Equal(t, []string{"2023"}, res.FinancialData.Revenue.Years)
}

func TestResolvePDF(t *testing.T) {
	opts := newTestOptions(t, "META_Thesis_INVESTMENT.pdf", "Apple.pdf")
	e := NewExtractor(&recordingSearcher{}, &promptChat{}, nil, opts)

	path, err := e.ResolvePDF("Apple")
	require.NoError(t, err)
	assert.Equal(t, "Apple.pdf", filepath.Base(path))

	path, err = e.ResolvePDF("meta")
	require.NoError(t, err)
	assert.Equal(t, "META_Thesis_INVESTMENT.pdf", filepath.Base(path))

	_, err = e.ResolvePDF("Tesla")
	assert.True(t, stderrors.Is(err, errors.ErrCompanyNotFound))
}

func TestCompanies(t *testing.T) {
	opts := newTestOptions(t, "TSMC.pdf", "ASML.pdf", "notes.txt")
	got, err := NewExtractor(nil, nil, nil, opts).Companies()
	require.NoError(t, err)
	assert.Equal(t, []string{"ASML", "TSMC"}, got)

	opts.PDFDir = filepath.Join(opts.PDFDir, "missing")
	got, err = NewExtractor(nil, nil, nil, opts).Companies()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTicker(t *testing.T) {
	opts := newTestOptions(t)
	opts.Tickers = map[string]string{"nvidia": "NVDA", "Ferrari": "RACE"}
	e := NewExtractor(nil, nil, nil, opts)

	tk, ok := e.Ticker("NVIDIA")
	assert.True(t, ok)
	assert.Equal(t, "NVDA", tk)

	tk, ok = e.Ticker("FERRARI_Thesis_INVESTMENT")
	assert.True(t, ok)
	assert.Equal(t, "RACE", tk)

	_, ok = e.Ticker("Unknown")
	assert.False(t, ok)
}

func TestSummaryRendersHTML(t *testing.T) {
	opts := newTestOptions(t, "ASML.pdf")
	chat := &promptChat{summary: "## Moats\n\n- EUV monopoly"}
	html, err := NewExtractor(&recordingSearcher{}, chat, nil, opts).Summary(context.Background(), "ASML")
	require.NoError(t, err)
	assert.Contains(t, html, "<h2>Moats</h2>")
	assert.Contains(t, html, "<li>EUV monopoly</li>")
}

func TestExtractRejectsPathLikeNames(t *testing.T) {
	opts := newTestOptions(t, "ASML.pdf")
	// 缓存目录之外放一个合法的缓存文件，不应被读取。
	outside := filepath.Dir(opts.CacheDir)
	secret := `{"filename": "secret.pdf", "summary": "leaked"}`
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.json"), []byte(secret), 0o600))
	t.Cleanup(func() { _ = os.Remove(filepath.Join(outside, "secret.json")) })

	chat := &promptChat{err: stderrors.New("must not be called")}
	e := NewExtractor(&recordingSearcher{}, chat, nil, opts)

	for _, name := range []string{
		"../secret",
		"../../secret",
		"..",
		"/etc/passwd",
		`..\secret`,
		"sub/ASML",
		"ASML/..",
	} {
		t.Run(name, func(t *testing.T) {
			res, err := e.Extract(context.Background(), name)
			assert.Nil(t, res)
			assert.True(t, stderrors.Is(err, errors.ErrInvalidRequest), "got %v", err)

			_, err = e.Summary(context.Background(), name)
			assert.True(t, stderrors.Is(err, errors.ErrInvalidRequest))

			_, err = e.ResolvePDF(name)
			assert.True(t, stderrors.Is(err, errors.ErrInvalidRequest))
		})
	}
}
