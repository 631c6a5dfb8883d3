// Package marketdata fetches best-effort market fundamentals and quotes.
package marketdata

import (
	"context"
	"fmt"
	"math"
	"net/http/cookiejar"
	"strings"
	"sync"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	marketopts "github.com/kart-io/valuerag/pkg/options/market"
	"github.com/kart-io/valuerag/pkg/utils/errors"
	"github.com/kart-io/valuerag/pkg/utils/httpclient"
	"github.com/kart-io/valuerag/pkg/utils/json"
)

// Series is an annual time series, oldest first.
type Series struct {
	Years  []string  `json:"years"`
	Values []float64 `json:"values"`
}

// Empty reports whether the series has no points.
func (s Series) Empty() bool {
	return len(s.Years) == 0
}

// Quote holds the fundamentals of one ticker. 缺失字段为 nil。
type Quote struct {
	Symbol              string   `json:"symbol"`
	CurrentPrice        *float64 `json:"current_price,omitempty"`
	RegularMarketPrice  *float64 `json:"regular_market_price,omitempty"`
	PreviousClose       *float64 `json:"previous_close,omitempty"`
	TrailingPE          *float64 `json:"trailing_pe,omitempty"`
	PriceToSales        *float64 `json:"price_to_sales,omitempty"`
	MarketCap           *float64 `json:"market_cap,omitempty"`
	FreeCashflow        *float64 `json:"free_cashflow,omitempty"`
	OperatingCashflow   *float64 `json:"operating_cashflow,omitempty"`
	CapitalExpenditures *float64 `json:"capital_expenditures,omitempty"`
	SharesOutstanding   *float64 `json:"shares_outstanding,omitempty"`
	Revenue             Series   `json:"revenue"`
	NetIncome           Series   `json:"net_income"`
}

// Price returns currentPrice, falling back to regularMarketPrice.
func (q *Quote) Price() (float64, bool) {
	if q.CurrentPrice != nil && *q.CurrentPrice != 0 {
		return *q.CurrentPrice, true
	}
	if q.RegularMarketPrice != nil && *q.RegularMarketPrice != 0 {
		return *q.RegularMarketPrice, true
	}
	return 0, false
}

// FreeCashFlow returns freeCashflow, or operatingCashflow + capitalExpenditures
// (capex 为负数) when the former is missing.
func (q *Quote) FreeCashFlow() (float64, bool) {
	if q.FreeCashflow != nil {
		return *q.FreeCashflow, true
	}
	if q.OperatingCashflow != nil && q.CapitalExpenditures != nil {
		return *q.OperatingCashflow + *q.CapitalExpenditures, true
	}
	return 0, false
}

// FormatMarketCap renders a market cap in trillions, e.g. "3.12T".
func FormatMarketCap(v float64) string {
	return fmt.Sprintf("%.2fT", v/1e12)
}

// Provider fetches quotes.
type Provider interface {
	Fetch(ctx context.Context, ticker string) (*Quote, error)
}

// Client fetches quotes from the Yahoo Finance quoteSummary API with rate
// limiting and an optional Redis cache.
type Client struct {
	http    *httpclient.Client
	limiter *rate.Limiter
	redis   *goredis.Client
	opts    *marketopts.Options
	prefix  string

	// crumb 与 cookie jar 中的会话 cookie 配对使用。
	crumbMu sync.Mutex
	crumb   string
}

// New creates a Client. rdb 可以为 nil。
func New(opts *marketopts.Options, rdb *goredis.Client) *Client {
	if opts == nil {
		opts = marketopts.NewOptions()
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		http: httpclient.NewClient(opts.Timeout, opts.MaxRetries,
			httpclient.WithUserAgent(opts.UserAgent), httpclient.WithCookieJar(jar)),
		limiter: rate.NewLimiter(limit, burst),
		redis:   rdb,
		opts:    opts,
		prefix:  "valuerag:quote:",
	}
}

// Fetch implements Provider.
func (c *Client) Fetch(ctx context.Context, ticker string) (*Quote, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, errors.ErrInvalidRequest.WithMessage("ticker is required")
	}
	if !c.opts.Enabled {
		return nil, errors.ErrMarketData.WithMessage("market data disabled")
	}

	if q, ok := c.cached(ctx, ticker); ok {
		return q, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.ErrMarketData.WithCause(err)
	}

	q, err := c.fetchQuoteSummary(ctx, ticker)
	if err != nil {
		return nil, errors.ErrMarketData.WithCause(err)
	}
	c.store(ctx, ticker, q)
	return q, nil
}

func (c *Client) cached(ctx context.Context, ticker string) (*Quote, bool) {
	if c.redis == nil || c.opts.CacheTTL <= 0 {
		return nil, false
	}
	data, err := c.redis.Get(ctx, c.prefix+ticker).Bytes()
	if err != nil {
		if err != goredis.Nil {
			logger.Warnw("failed to read quote cache", "ticker", ticker, "error", err.Error())
		}
		return nil, false
	}
	var q Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, false
	}
	return &q, true
}

func (c *Client) store(ctx context.Context, ticker string, q *Quote) {
	if c.redis == nil || c.opts.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(q)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, c.prefix+ticker, data, c.opts.CacheTTL).Err(); err != nil {
		logger.Warnw("failed to write quote cache", "ticker", ticker, "error", err.Error())
	}
}

// TickerItem is one entry of the ticker tape.
type TickerItem struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
	Change string `json:"change"`
	Up     bool   `json:"up"`
}

// Tape fetches every symbol and formats the ticker tape. 单个代码失败时跳过。
func Tape(ctx context.Context, p Provider, symbols []string) []TickerItem {
	items := make([]TickerItem, 0, len(symbols))
	for _, symbol := range symbols {
		q, err := p.Fetch(ctx, symbol)
		if err != nil {
			logger.Warnw("Failed to fetch ticker", "symbol", symbol, "error", err.Error())
			continue
		}
		item, ok := tapeItem(symbol, q)
		if ok {
			items = append(items, item)
		}
	}
	return items
}

func tapeItem(symbol string, q *Quote) (TickerItem, bool) {
	price, ok := q.Price()
	if !ok && q.PreviousClose != nil {
		price, ok = *q.PreviousClose, true
	}
	if !ok || q.PreviousClose == nil || *q.PreviousClose == 0 {
		return TickerItem{}, false
	}

	change := (price - *q.PreviousClose) / *q.PreviousClose * 100
	return TickerItem{
		Symbol: strings.ReplaceAll(symbol, "-", "."),
		Price:  fmt.Sprintf("%.2f", price),
		Change: fmt.Sprintf("%+.2f%%", change),
		Up:     change >= 0,
	}, true
}

// Round2 rounds to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var _ Provider = (*Client)(nil)
