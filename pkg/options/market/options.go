// Package market provides market data client options.
package market

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/valuerag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains market data configuration.
type Options struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	BaseURL string `json:"base-url" mapstructure:"base-url"`
	// CookieURL 获取会话 cookie 的地址，之后用该 cookie 换取 crumb。为空时跳过。
	CookieURL string `json:"cookie-url" mapstructure:"cookie-url"`

	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries int           `json:"max-retries" mapstructure:"max-retries"`

	// RequestsPerSecond 对行情接口的限速。
	RequestsPerSecond float64 `json:"requests-per-second" mapstructure:"requests-per-second"`
	Burst             int     `json:"burst" mapstructure:"burst"`

	// CacheTTL 行情缓存时间，0 表示禁用。
	CacheTTL time.Duration `json:"cache-ttl" mapstructure:"cache-ttl"`

	// Symbols 行情条展示的代码。
	Symbols []string `json:"symbols" mapstructure:"symbols"`

	UserAgent string `json:"user-agent" mapstructure:"user-agent"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Enabled:           true,
		BaseURL:           "https://query2.finance.yahoo.com",
		CookieURL:         "https://fc.yahoo.com",
		Timeout:           15 * time.Second,
		MaxRetries:        2,
		RequestsPerSecond: 2,
		Burst:             2,
		CacheTTL:          10 * time.Minute,
		Symbols:           []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "META", "NVDA", "BRK-B", "JPM", "V"},
		UserAgent:         "Mozilla/5.0 (compatible; valuerag/1.0)",
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "market."
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Enable market data lookups.")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "Market data API base URL.")
	fs.StringVar(&o.CookieURL, p+"cookie-url", o.CookieURL, "URL visited for the session cookie before requesting a crumb (empty skips it).")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Market data request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Market data request retries.")
	fs.Float64Var(&o.RequestsPerSecond, p+"requests-per-second", o.RequestsPerSecond, "Market data request rate.")
	fs.IntVar(&o.Burst, p+"burst", o.Burst, "Market data request burst.")
	fs.DurationVar(&o.CacheTTL, p+"cache-ttl", o.CacheTTL, "Quote cache TTL (0 disables).")
	fs.StringSliceVar(&o.Symbols, p+"symbols", o.Symbols, "Symbols shown by the ticker endpoint.")
	fs.StringVar(&o.UserAgent, p+"user-agent", o.UserAgent, "User-Agent sent to the market data API.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}
	var errs []error
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("market.base-url is required"))
	}
	if o.RequestsPerSecond <= 0 || o.Burst <= 0 {
		errs = append(errs, fmt.Errorf("market rate limit must be positive"))
	}
	return errs
}
