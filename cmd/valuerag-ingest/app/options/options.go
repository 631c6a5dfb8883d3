// Package options contains flags and options for the ingestion command.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/valuerag/internal/valuerag"
	"github.com/kart-io/valuerag/pkg/infra/app"
	ingestopts "github.com/kart-io/valuerag/pkg/options/ingest"
	ledgeropts "github.com/kart-io/valuerag/pkg/options/ledger"
	llmopts "github.com/kart-io/valuerag/pkg/options/llm"
	logopts "github.com/kart-io/valuerag/pkg/options/logger"
	milvusopts "github.com/kart-io/valuerag/pkg/options/milvus"
	ocropts "github.com/kart-io/valuerag/pkg/options/ocr"
	openaiopts "github.com/kart-io/valuerag/pkg/options/openai"
	ragopts "github.com/kart-io/valuerag/pkg/options/rag"
	redisopts "github.com/kart-io/valuerag/pkg/options/redis"
	speechopts "github.com/kart-io/valuerag/pkg/options/speech"
)

var _ app.CliOptions = (*IngestOptions)(nil)

// IngestOptions contains the configuration of the ingestion command.
// 只包含导入流程用到的配置段，HTTP 与 Agent 相关配置不会注册。
type IngestOptions struct {
	LogOptions       *logopts.Options         `json:"log" mapstructure:"log"`
	MilvusOptions    *milvusopts.Options      `json:"milvus" mapstructure:"milvus"`
	RedisOptions     *redisopts.Options       `json:"redis" mapstructure:"redis"`
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`
	ChatOptions      *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`
	OpenAIOptions    *openaiopts.Options      `json:"openai" mapstructure:"openai"`
	RAGOptions       *ragopts.Options         `json:"rag" mapstructure:"rag"`
	IngestOptions    *ingestopts.Options      `json:"ingest" mapstructure:"ingest"`
	OCROptions       *ocropts.Options         `json:"ocr" mapstructure:"ocr"`
	SpeechOptions    *speechopts.Options      `json:"speech" mapstructure:"speech"`
	LedgerOptions    *ledgeropts.Options      `json:"ledger" mapstructure:"ledger"`
}

// NewIngestOptions creates IngestOptions with default values.
func NewIngestOptions() *IngestOptions {
	return &IngestOptions{
		LogOptions:       logopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		RedisOptions:     redisopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		OpenAIOptions:    openaiopts.NewOptions(),
		RAGOptions:       ragopts.NewOptions(),
		IngestOptions:    ingestopts.NewOptions(),
		OCROptions:       ocropts.NewOptions(),
		SpeechOptions:    speechopts.NewOptions(),
		LedgerOptions:    ledgeropts.NewOptions(),
	}
}

// Flags returns flags grouped by section.
func (o *IngestOptions) Flags() (fss app.NamedFlagSets) {
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"))
	o.ChatOptions.AddFlags(fss.FlagSet("chat"))
	o.OpenAIOptions.AddFlags(fss.FlagSet("openai"))
	o.RAGOptions.AddFlags(fss.FlagSet("rag"))
	o.IngestOptions.AddFlags(fss.FlagSet("ingest"))
	o.OCROptions.AddFlags(fss.FlagSet("ocr"))
	o.SpeechOptions.AddFlags(fss.FlagSet("speech"))
	o.LedgerOptions.AddFlags(fss.FlagSet("ledger"))
	return fss
}

// Complete completes all the required options.
func (o *IngestOptions) Complete() error {
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
	return nil
}

// Validate checks whether the options are valid.
func (o *IngestOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.MilvusOptions.Validate()...)
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.OpenAIOptions.Validate()...)
	errs = append(errs, o.RAGOptions.Validate()...)
	errs = append(errs, o.IngestOptions.Validate()...)
	errs = append(errs, o.OCROptions.Validate()...)
	errs = append(errs, o.SpeechOptions.Validate()...)
	errs = append(errs, o.LedgerOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds a valuerag.Config for the ingestion run.
func (o *IngestOptions) Config() (*valuerag.Config, error) {
	return &valuerag.Config{
		LogOptions:       o.LogOptions,
		MilvusOptions:    o.MilvusOptions,
		RedisOptions:     o.RedisOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		OpenAIOptions:    o.OpenAIOptions,
		RAGOptions:       o.RAGOptions,
		IngestOptions:    o.IngestOptions,
		OCROptions:       o.OCROptions,
		SpeechOptions:    o.SpeechOptions,
		LedgerOptions:    o.LedgerOptions,
	}, nil
}
