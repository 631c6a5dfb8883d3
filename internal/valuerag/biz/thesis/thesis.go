// Package thesis summarizes investment-thesis PDFs and extracts their
// financial data, with a market-data fallback and an EV/FCF projection.
package thesis

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/kart-io/logger"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/kart-io/valuerag/internal/pkg/fsutil"
	"github.com/kart-io/valuerag/internal/pkg/textutil"
	"github.com/kart-io/valuerag/internal/valuerag/biz"
	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/llm"
	"github.com/kart-io/valuerag/pkg/marketdata"
	thesisopts "github.com/kart-io/valuerag/pkg/options/thesis"
	"github.com/kart-io/valuerag/pkg/utils/errors"
	"github.com/kart-io/valuerag/pkg/utils/json"
)

const summarySystemPrompt = `You are an expert investment analyst. You receive text extracted from PDF documents about one company.
Write the best possible investment thesis summary using ONLY the provided context. Do not use external knowledge and do not invent facts.
Cover these points, in Markdown with a heading per point:
- Key growth drivers
- Competitive moats
- Risks
If the context does not describe an investment thesis, answer "No investment thesis found in uploaded PDFs."
Respond in English.`

const extractionSystemPrompt = `You are a data extraction assistant. Using ONLY the provided PDF context, extract the financial metrics below.
The text is likely in Spanish: look for terms like "Ventas", "Ingresos", "Beneficio", "Margen", "Precio", "Capitalización".
Return strict JSON only, without markdown, in English, with this structure:
{
  "revenue": {"years": ["2021", "2022", "2023"], "values": [100, 120, 150]},
  "net_income": {"years": ["2021", "2022", "2023"], "values": [10, 15, 20]},
  "valuation": {"pe_ratio": 25.5, "ps_ratio": 10.2, "fcf_yield": 0.03, "market_cap": "1.5T"}
}
years and values must have the same length and values must be numbers. Use null or empty lists for missing data.`

// GraphicRef is a graphic with the page it appears on.
type GraphicRef struct {
	Page int `json:"page"`
	model.Graphic
}

// Result is the thesis analysis of one company.
type Result struct {
	Company       string           `json:"company"`
	Summary       string           `json:"summary"`
	Graphics      []GraphicRef     `json:"graphics"`
	FinancialData *FinancialRecord `json:"financial_data"`
}

// cacheFile is the precomputed {company}.json layout.
type cacheFile struct {
	Filename string `json:"filename"`
	Summary  string `json:"summary"`
	Pages    []struct {
		PageNumber int             `json:"page_number"`
		Graphics   []model.Graphic `json:"graphics"`
	} `json:"pages"`
	FinancialData map[string]any `json:"financial_data"`
}

// Extractor answers thesis questions over the indexed PDFs.
type Extractor struct {
	searcher biz.Searcher
	chat     llm.ChatProvider
	market   marketdata.Provider
	opts     *thesisopts.Options
	markdown goldmark.Markdown
}

// NewExtractor creates an Extractor. market 可以为 nil，此时不做行情回补。
func NewExtractor(searcher biz.Searcher, chat llm.ChatProvider, market marketdata.Provider, opts *thesisopts.Options) *Extractor {
	if opts == nil {
		opts = thesisopts.NewOptions()
	}
	return &Extractor{
		searcher: searcher,
		chat:     chat,
		market:   market,
		opts:     opts,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Extract returns the summary, graphics and financial data of a company.
func (e *Extractor) Extract(ctx context.Context, company string) (*Result, error) {
	company, err := cleanCompany(company)
	if err != nil {
		return nil, err
	}

	if res, ok := e.fromCache(company); ok {
		logger.Infow("Thesis served from cache", "company", company)
		return res, nil
	}

	sourceID, err := e.sourceID(company)
	if err != nil {
		return nil, err
	}

	summary, err := e.summarize(ctx, company, sourceID)
	if err != nil {
		return nil, err
	}

	financial, err := e.extractFinancials(ctx, company, sourceID)
	if err != nil {
		return nil, err
	}

	if financial.Revenue.Empty() {
		e.backfill(ctx, company, financial)
	}

	return &Result{
		Company:       company,
		Summary:       summary,
		Graphics:      []GraphicRef{},
		FinancialData: financial,
	}, nil
}

// Summary renders the thesis summary as HTML.
func (e *Extractor) Summary(ctx context.Context, company string) (string, error) {
	company, err := cleanCompany(company)
	if err != nil {
		return "", err
	}
	var summary string
	if res, ok := e.fromCache(company); ok {
		summary = res.Summary
	} else {
		sourceID, err := e.sourceID(company)
		if err != nil {
			return "", err
		}
		if summary, err = e.summarize(ctx, company, sourceID); err != nil {
			return "", err
		}
	}
	return e.RenderHTML(summary)
}

// RenderHTML converts Markdown to HTML. 模型有时直接返回 HTML，goldmark 默认会转义原始 HTML，因此原样返回。
func (e *Extractor) RenderHTML(md string) (string, error) {
	md = textutil.StripCodeFence(md)
	if strings.HasPrefix(strings.TrimSpace(md), "<") {
		return md, nil
	}
	var buf bytes.Buffer
	if err := e.markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return buf.String(), nil
}

// Companies lists the thesis PDFs by name without extension.
func (e *Extractor) Companies() ([]string, error) {
	if !fsutil.FileExists(e.opts.PDFDir) {
		return []string{}, nil
	}
	files, err := fsutil.FindFiles(e.opts.PDFDir, ".pdf")
	if err != nil {
		return nil, err
	}
	companies := make([]string, 0, len(files))
	for _, f := range files {
		base := filepath.Base(f)
		companies = append(companies, strings.TrimSuffix(base, filepath.Ext(base)))
	}
	sort.Strings(companies)
	return companies, nil
}

// cleanCompany trims a company name and rejects anything that is not a bare file stem.
// 公司名会拼进 PDFDir 与 CacheDir 下的路径。
func cleanCompany(company string) (string, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return "", errors.ErrInvalidRequest.WithMessage("company is required")
	}
	if strings.ContainsAny(company, `/\`) || strings.Contains(company, "..") ||
		filepath.Base(company) != company || filepath.IsAbs(company) {
		return "", errors.ErrInvalidRequest.WithMessagef("invalid company name: %q", company)
	}
	return company, nil
}

// ResolvePDF finds {company}.pdf, else the first PDF whose name contains the company.
func (e *Extractor) ResolvePDF(company string) (string, error) {
	company, err := cleanCompany(company)
	if err != nil {
		return "", err
	}
	exact := filepath.Join(e.opts.PDFDir, company+".pdf")
	if fsutil.FileExists(exact) {
		return exact, nil
	}

	files, err := fsutil.FindFiles(e.opts.PDFDir, ".pdf")
	if err == nil {
		needle := strings.ToLower(company)
		for _, f := range files {
			if strings.Contains(strings.ToLower(filepath.Base(f)), needle) {
				return f, nil
			}
		}
	}
	return "", errors.ErrCompanyNotFound.WithMessagef("PDF for %s not found", company)
}

var thesisSuffixRe = regexp.MustCompile(`(?i)_thesis.*$`)

// Ticker maps a company name to its ticker, case-insensitively.
func (e *Extractor) Ticker(company string) (string, bool) {
	name := strings.TrimSpace(thesisSuffixRe.ReplaceAllString(company, ""))
	if t, ok := e.opts.Tickers[name]; ok {
		return t, true
	}
	for k, v := range e.opts.Tickers {
		if strings.EqualFold(strings.TrimSpace(k), name) {
			return v, true
		}
	}
	return "", false
}

func (e *Extractor) sourceID(company string) (string, error) {
	path, err := e.ResolvePDF(company)
	if err != nil {
		return "", err
	}
	return filepath.Base(path), nil
}

func (e *Extractor) fromCache(company string) (*Result, bool) {
	if _, err := cleanCompany(company); err != nil {
		return nil, false
	}
	path := filepath.Join(e.opts.CacheDir, company+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		logger.Warnw("Ignoring unreadable thesis cache", "path", path, "error", err.Error())
		return nil, false
	}

	res := &Result{
		Company:       company,
		Summary:       cf.Summary,
		Graphics:      []GraphicRef{},
		FinancialData: EmptyFinancialRecord(),
	}
	for _, p := range cf.Pages {
		for _, g := range p.Graphics {
			res.Graphics = append(res.Graphics, GraphicRef{Page: p.PageNumber, Graphic: g})
		}
	}
	if cf.FinancialData != nil {
		if rec, err := financialFromMap(cf.FinancialData); err == nil {
			res.FinancialData = rec
		} else {
			logger.Warnw("Ignoring malformed cached financial data", "path", path, "error", err.Error())
		}
	}
	return res, true
}

func (e *Extractor) summarize(ctx context.Context, company, sourceID string) (string, error) {
	filter := model.Filter{SourceID: sourceID}
	chunks, err := e.searcher.Search(ctx, company+" investment thesis", e.opts.SummaryTopK, filter)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf("Context:\n%s\n\nCompany: %s\n\nSummary:", joinChunks(chunks), company)
	summary, err := e.chat.Generate(ctx, prompt, summarySystemPrompt)
	if err != nil {
		return "", errors.ErrLLMUnavailable.WithCause(err)
	}
	return strings.TrimSpace(textutil.StripCodeFence(summary)), nil
}

func (e *Extractor) extractFinancials(ctx context.Context, company, sourceID string) (*FinancialRecord, error) {
	filter := model.Filter{SourceID: sourceID}
	chunks, err := e.searcher.Search(ctx, e.opts.FinancialQuery, e.opts.FinancialTopK, filter)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Context:\n%s\n\nCompany: %s\n\nJSON:", joinChunks(chunks), company)
	raw, err := e.chat.Generate(ctx, prompt, extractionSystemPrompt)
	if err != nil {
		return nil, errors.ErrLLMUnavailable.WithCause(err)
	}
	return ParseFinancialJSON(raw)
}

// backfill 收入序列为空且有代码映射时用行情数据补齐缺失字段，失败只记录日志。
func (e *Extractor) backfill(ctx context.Context, company string, rec *FinancialRecord) {
	if e.market == nil {
		return
	}
	ticker, ok := e.Ticker(company)
	if !ok {
		return
	}
	q, err := e.market.Fetch(ctx, ticker)
	if err != nil {
		logger.Warnw("Market data fallback failed", "company", company, "ticker", ticker, "error", err.Error())
		return
	}
	MergeMarketData(rec, q)
	logger.Infow("Financial data backfilled from market data", "company", company, "ticker", ticker)
}

func joinChunks(chunks []*model.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n\n")
}
