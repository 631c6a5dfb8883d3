// Package openai builds the OpenAI SDK client shared by vision OCR, speech
// synthesis and hosted transcription.
package openai

import (
	"errors"
	"fmt"
	neturl "net/url"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	openaiopts "github.com/kart-io/valuerag/pkg/options/openai"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("openai api key not configured")

// New creates an SDK client from options.
//
//	client, err := openai.New(opts)
//	if errors.Is(err, openai.ErrNotConfigured) {
//	    // 功能降级
//	}
func New(opts *openaiopts.Options) (*sdk.Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("openai options cannot be nil")
	}
	if errs := opts.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid openai options: %w", utilerrors.NewAggregate(errs))
	}
	if !opts.Enabled() {
		return nil, ErrNotConfigured
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(opts.MaxRetries),
		option.WithRequestTimeout(opts.Timeout),
	}
	if base := NormalizeBaseURL(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}

	client := sdk.NewClient(reqOpts...)
	return &client, nil
}

// NormalizeBaseURL 保证 base url 以 /v1/ 结尾。
func NormalizeBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/") + "/"
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	parsed.Path = path + "/"
	return parsed.String()
}
