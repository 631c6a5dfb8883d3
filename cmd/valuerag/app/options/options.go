// Package options contains flags and options for initializing the valuerag server.
package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/valuerag/internal/valuerag"
	"github.com/kart-io/valuerag/pkg/infra/app"
	agentopts "github.com/kart-io/valuerag/pkg/options/agent"
	httpopts "github.com/kart-io/valuerag/pkg/options/http"
	ingestopts "github.com/kart-io/valuerag/pkg/options/ingest"
	ledgeropts "github.com/kart-io/valuerag/pkg/options/ledger"
	llmopts "github.com/kart-io/valuerag/pkg/options/llm"
	logopts "github.com/kart-io/valuerag/pkg/options/logger"
	marketopts "github.com/kart-io/valuerag/pkg/options/market"
	milvusopts "github.com/kart-io/valuerag/pkg/options/milvus"
	ocropts "github.com/kart-io/valuerag/pkg/options/ocr"
	openaiopts "github.com/kart-io/valuerag/pkg/options/openai"
	ragopts "github.com/kart-io/valuerag/pkg/options/rag"
	redisopts "github.com/kart-io/valuerag/pkg/options/redis"
	speechopts "github.com/kart-io/valuerag/pkg/options/speech"
	thesisopts "github.com/kart-io/valuerag/pkg/options/thesis"
)

var _ app.CliOptions = (*ServerOptions)(nil)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MilvusOptions contains Milvus database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// RedisOptions 可选；缓存和共享会话依赖它。
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	OpenAIOptions *openaiopts.Options `json:"openai" mapstructure:"openai"`
	RAGOptions    *ragopts.Options    `json:"rag" mapstructure:"rag"`
	AgentOptions  *agentopts.Options  `json:"agent" mapstructure:"agent"`
	IngestOptions *ingestopts.Options `json:"ingest" mapstructure:"ingest"`
	OCROptions    *ocropts.Options    `json:"ocr" mapstructure:"ocr"`
	SpeechOptions *speechopts.Options `json:"speech" mapstructure:"speech"`
	ThesisOptions *thesisopts.Options `json:"thesis" mapstructure:"thesis"`
	MarketOptions *marketopts.Options `json:"market" mapstructure:"market"`
	LedgerOptions *ledgeropts.Options `json:"ledger" mapstructure:"ledger"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		RedisOptions:     redisopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		OpenAIOptions:    openaiopts.NewOptions(),
		RAGOptions:       ragopts.NewOptions(),
		AgentOptions:     agentopts.NewOptions(),
		IngestOptions:    ingestopts.NewOptions(),
		OCROptions:       ocropts.NewOptions(),
		SpeechOptions:    speechopts.NewOptions(),
		ThesisOptions:    thesisopts.NewOptions(),
		MarketOptions:    marketopts.NewOptions(),
		LedgerOptions:    ledgeropts.NewOptions(),
		ShutdownTimeout:  30 * time.Second,
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss app.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"))
	o.ChatOptions.AddFlags(fss.FlagSet("chat"))
	o.OpenAIOptions.AddFlags(fss.FlagSet("openai"))
	o.RAGOptions.AddFlags(fss.FlagSet("rag"))
	o.AgentOptions.AddFlags(fss.FlagSet("agent"))
	o.IngestOptions.AddFlags(fss.FlagSet("ingest"))
	o.OCROptions.AddFlags(fss.FlagSet("ocr"))
	o.SpeechOptions.AddFlags(fss.FlagSet("speech"))
	o.ThesisOptions.AddFlags(fss.FlagSet("thesis"))
	o.MarketOptions.AddFlags(fss.FlagSet("market"))
	o.LedgerOptions.AddFlags(fss.FlagSet("ledger"))

	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.LogOptions.Complete(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := o.RedisOptions.Complete(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := o.OpenAIOptions.Complete(); err != nil {
		return fmt.Errorf("openai: %w", err)
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.RAGOptions.Complete(); err != nil {
		return fmt.Errorf("rag: %w", err)
	}
	if err := o.IngestOptions.Complete(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := o.ThesisOptions.Complete(); err != nil {
		return fmt.Errorf("thesis: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.MilvusOptions.Validate()...)
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.OpenAIOptions.Validate()...)
	errs = append(errs, o.RAGOptions.Validate()...)
	errs = append(errs, o.AgentOptions.Validate()...)
	errs = append(errs, o.IngestOptions.Validate()...)
	errs = append(errs, o.OCROptions.Validate()...)
	errs = append(errs, o.SpeechOptions.Validate()...)
	errs = append(errs, o.ThesisOptions.Validate()...)
	errs = append(errs, o.MarketOptions.Validate()...)
	errs = append(errs, o.LedgerOptions.Validate()...)
	if o.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown-timeout must be positive"))
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a valuerag.Config based on ServerOptions.
func (o *ServerOptions) Config() (*valuerag.Config, error) {
	return &valuerag.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		MilvusOptions:    o.MilvusOptions,
		RedisOptions:     o.RedisOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		OpenAIOptions:    o.OpenAIOptions,
		RAGOptions:       o.RAGOptions,
		AgentOptions:     o.AgentOptions,
		IngestOptions:    o.IngestOptions,
		OCROptions:       o.OCROptions,
		SpeechOptions:    o.SpeechOptions,
		ThesisOptions:    o.ThesisOptions,
		MarketOptions:    o.MarketOptions,
		LedgerOptions:    o.LedgerOptions,
		ShutdownTimeout:  o.ShutdownTimeout,
	}, nil
}
