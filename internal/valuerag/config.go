// Package valuerag wires the question answering service and the batch
// ingestion tool from their options.
package valuerag

import (
	"time"

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

// Name is the name of the service.
const Name = "valuerag"

// Config contains the completed configuration of both binaries.
// 导入工具不使用 HTTP、Agent 等配置，对应字段可以为 nil。
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	MilvusOptions    *milvusopts.Options
	RedisOptions     *redisopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	OpenAIOptions    *openaiopts.Options
	RAGOptions       *ragopts.Options
	AgentOptions     *agentopts.Options
	IngestOptions    *ingestopts.Options
	OCROptions       *ocropts.Options
	SpeechOptions    *speechopts.Options
	ThesisOptions    *thesisopts.Options
	MarketOptions    *marketopts.Options
	LedgerOptions    *ledgeropts.Options
	ShutdownTimeout  time.Duration
}
