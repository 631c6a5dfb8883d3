// Package thesis provides options for investment thesis analysis.
package thesis

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/valuerag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// DefaultFinancialQuery 检索财务片段时使用的查询。
const DefaultFinancialQuery = "Ingresos Ventas Revenue Financials Valuation Precio"

// Options contains thesis extraction configuration.
type Options struct {
	// PDFDir 投资论文 PDF 目录。
	PDFDir string `json:"pdf-dir" mapstructure:"pdf-dir"`

	// CacheDir 预计算结果目录 ({company}.json)。
	CacheDir string `json:"cache-dir" mapstructure:"cache-dir"`

	SummaryTopK    int    `json:"summary-top-k" mapstructure:"summary-top-k"`
	FinancialTopK  int    `json:"financial-top-k" mapstructure:"financial-top-k"`
	FinancialQuery string `json:"financial-query" mapstructure:"financial-query"`

	// Tickers 公司名到股票代码的映射。
	Tickers map[string]string `json:"tickers" mapstructure:"tickers"`

	// Multiples 股票代码到 EV/FCF 估值倍数的映射，仅支持配置文件。
	Multiples map[string]float64 `json:"multiples" mapstructure:"multiples"`

	DefaultMultiple float64 `json:"default-multiple" mapstructure:"default-multiple"`
}

// DefaultTickers returns the built-in company to ticker mapping.
func DefaultTickers() map[string]string {
	return map[string]string{
		"NVIDIA":    "NVDA",
		"ALPHABET":  "GOOGL",
		"Alphabet":  "GOOGL",
		"Google":    "GOOGL",
		"ASML":      "ASML",
		"Amazon":    "AMZN",
		"FERRARI":   "RACE",
		"Ferrari":   "RACE",
		"META":      "META",
		"Microsoft": "MSFT",
		"TSMC":      "TSM",
		"Apple":     "AAPL",
		"Netflix":   "NFLX",
		"Tesla":     "TSLA",
	}
}

// DefaultMultiples returns the built-in valuation multiples.
func DefaultMultiples() map[string]float64 {
	return map[string]float64{
		"NVDA":  55,
		"RACE":  40,
		"ASML":  35,
		"TSM":   20,
		"GOOGL": 25,
		"MSFT":  30,
		"AMZN":  30,
		"META":  25,
		"AAPL":  28,
		"NFLX":  30,
	}
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		PDFDir:          "data/pdfs",
		CacheDir:        "data/thesis_data",
		SummaryTopK:     6,
		FinancialTopK:   5,
		FinancialQuery:  DefaultFinancialQuery,
		Tickers:         DefaultTickers(),
		Multiples:       DefaultMultiples(),
		DefaultMultiple: 25,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "thesis."
	fs.StringVar(&o.PDFDir, p+"pdf-dir", o.PDFDir, "Directory holding thesis PDFs.")
	fs.StringVar(&o.CacheDir, p+"cache-dir", o.CacheDir, "Directory holding precomputed thesis JSON files.")
	fs.IntVar(&o.SummaryTopK, p+"summary-top-k", o.SummaryTopK, "Chunks retrieved for the summary.")
	fs.IntVar(&o.FinancialTopK, p+"financial-top-k", o.FinancialTopK, "Chunks retrieved for financial extraction.")
	fs.StringVar(&o.FinancialQuery, p+"financial-query", o.FinancialQuery, "Query used to retrieve financial passages.")
	fs.StringToStringVar(&o.Tickers, p+"tickers", o.Tickers, "Company to ticker mapping.")
	fs.Float64Var(&o.DefaultMultiple, p+"default-multiple", o.DefaultMultiple, "Valuation multiple for unmapped tickers.")
}

// Complete fills missing maps.
func (o *Options) Complete() error {
	if o.Tickers == nil {
		o.Tickers = DefaultTickers()
	}
	if o.Multiples == nil {
		o.Multiples = DefaultMultiples()
	}
	return nil
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.PDFDir == "" {
		errs = append(errs, fmt.Errorf("thesis.pdf-dir is required"))
	}
	if o.SummaryTopK < 6 || o.SummaryTopK > 10 {
		errs = append(errs, fmt.Errorf("thesis.summary-top-k must be in [6, 10]"))
	}
	if o.FinancialTopK <= 0 {
		errs = append(errs, fmt.Errorf("thesis.financial-top-k must be positive"))
	}
	for ticker, m := range o.Multiples {
		if m <= 0 {
			errs = append(errs, fmt.Errorf("thesis.multiples[%s] must be positive", ticker))
		}
	}
	if o.DefaultMultiple <= 0 {
		errs = append(errs, fmt.Errorf("thesis.default-multiple must be positive"))
	}
	return errs
}
