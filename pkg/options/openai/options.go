// Package openai provides options for the OpenAI SDK client shared by the
// vision OCR, speech synthesis and hosted transcription components.
package openai

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/valuerag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains OpenAI SDK client configuration.
type Options struct {
	APIKey     string        `json:"-" mapstructure:"api-key"`
	BaseURL    string        `json:"base-url" mapstructure:"base-url"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries int           `json:"max-retries" mapstructure:"max-retries"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		BaseURL:    "https://api.openai.com/v1",
		Timeout:    120 * time.Second,
		MaxRetries: 2,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "openai."
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "OpenAI API key (defaults to OPENAI_API_KEY).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "OpenAI API base URL.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Per-request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "SDK retry count.")
}

// Complete reads OPENAI_API_KEY when no key was configured.
func (o *Options) Complete() error {
	if o.APIKey == "" {
		o.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return nil
}

// Validate validates the options. 密钥缺失不视为错误，相关功能会被禁用。
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("openai.timeout must be positive"))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("openai.max-retries must not be negative"))
	}
	return errs
}

// Enabled reports whether a key is available.
func (o *Options) Enabled() bool {
	return o.APIKey != ""
}
