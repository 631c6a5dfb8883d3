package valuerag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/valuerag/internal/pkg/fsutil"
	"github.com/kart-io/valuerag/internal/valuerag/biz"
	"github.com/kart-io/valuerag/internal/valuerag/biz/acquire"
	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/internal/valuerag/store"
	"github.com/kart-io/valuerag/pkg/component/milvus"
	openaiclient "github.com/kart-io/valuerag/pkg/component/openai"
	"github.com/kart-io/valuerag/pkg/component/redis"
	"github.com/kart-io/valuerag/pkg/infra/app"
	"github.com/kart-io/valuerag/pkg/infra/pool"
	"github.com/kart-io/valuerag/pkg/llm"
	// 注册 LLM 供应商
	_ "github.com/kart-io/valuerag/pkg/llm/ollama"
	_ "github.com/kart-io/valuerag/pkg/llm/openai"
	"github.com/kart-io/valuerag/pkg/llm/resilience"
	"github.com/kart-io/valuerag/pkg/speech"
	"github.com/kart-io/valuerag/pkg/utils/execx"
)

// components holds everything shared by the server and the ingestion tool.
type components struct {
	redis       *goredis.Client
	openai      *sdk.Client
	embedder    llm.EmbeddingProvider
	chat        llm.ChatProvider
	tokens      biz.TokenCounter
	indexer     *biz.Indexer
	retriever   *biz.Retriever
	answerCache *biz.AnswerCache
	transcriber speech.Transcriber
	ingester    *biz.Ingester
	ledger      *store.Ledger
	workers     *pool.Pool

	closers []func()
}

// initLogger 初始化全局日志。
func (cfg *Config) initLogger(component string) error {
	if err := cfg.LogOptions.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Infow("Starting "+Name, "component", component, "version", app.GetVersion())
	return nil
}

// newComponents builds the vector index, providers and the ingestion pipeline.
func (cfg *Config) newComponents(ctx context.Context) (_ *components, err error) {
	c := &components{}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	// 1. Redis（可选）
	if cfg.RedisOptions != nil && cfg.RedisOptions.Enabled {
		rc, rerr := redis.NewWithContext(ctx, cfg.RedisOptions)
		if rerr != nil {
			logger.Warnw("Redis unavailable, caches and shared sessions disabled", "addr", cfg.RedisOptions.Addr(), "error", rerr.Error())
		} else {
			c.redis = rc.Client()
			c.closers = append(c.closers, func() { _ = rc.Close() })
			logger.Infow("Redis client initialized", "addr", cfg.RedisOptions.Addr())
		}
	}

	// 2. OpenAI SDK 客户端（语音、视觉识别）
	c.openai, err = openaiclient.New(cfg.OpenAIOptions)
	switch {
	case err == nil:
		logger.Info("OpenAI client initialized")
	case errors.Is(err, openaiclient.ErrNotConfigured):
		logger.Warn("OpenAI API key not set, hosted speech and vision disabled")
		err = nil
	default:
		return nil, err
	}

	// 3. LLM 供应商
	embedder, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	c.embedder = resilience.WrapEmbedding(embedder, resilience.DefaultRetryConfig(), resilience.DefaultCircuitBreakerConfig())
	if c.redis != nil {
		c.embedder = llm.NewCachedEmbeddingProvider(c.embedder, c.redis, llm.DefaultEmbeddingCacheConfig())
	}
	logger.Infow("Embedding provider initialized", "provider", cfg.EmbeddingOptions.Provider, "model", cfg.EmbeddingOptions.Model)

	chat, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	c.chat = resilience.WrapChat(chat, resilience.DefaultRetryConfig(), resilience.DefaultCircuitBreakerConfig())
	logger.Infow("Chat provider initialized", "provider", cfg.ChatOptions.Provider, "model", cfg.ChatOptions.Model)

	if c.tokens, err = biz.NewTokenCounter(); err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	// 4. 向量库
	milvusClient, err := milvus.New(cfg.MilvusOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	c.closers = append(c.closers, func() { _ = milvusClient.Close(context.Background()) })
	vectorStore := store.NewMilvusStore(milvusClient)

	c.indexer = biz.NewIndexer(vectorStore, c.embedder, &biz.IndexerConfig{
		Collection:   cfg.RAGOptions.Collection,
		EmbeddingDim: cfg.RAGOptions.EmbeddingDim,
		BatchSize:    cfg.RAGOptions.EmbedBatchSize,
	})
	if err := c.indexer.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	c.retriever = biz.NewRetriever(vectorStore, c.embedder, cfg.RAGOptions.Collection)
	c.answerCache = biz.NewAnswerCache(c.redis, &biz.AnswerCacheConfig{TTL: cfg.RAGOptions.AnswerCacheTTL})
	logger.Infow("Vector index ready", "collection", cfg.RAGOptions.Collection, "dim", cfg.RAGOptions.EmbeddingDim)

	// 5. 语音转写
	if c.transcriber, err = speech.NewTranscriber(cfg.SpeechOptions, c.openai); err != nil {
		logger.Warnw("Speech transcription disabled", "error", err.Error())
		c.transcriber, err = nil, nil
	}

	// 6. 后台任务池与导入流程
	if c.workers, err = pool.New("background", pool.BackgroundConfig()); err != nil {
		return nil, err
	}
	c.closers = append(c.closers, func() {
		if err := c.workers.ReleaseTimeout(10 * time.Second); err != nil {
			logger.Warnw("Background pool did not drain", "error", err.Error())
		}
	})

	if c.ingester, err = cfg.newIngester(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (cfg *Config) newIngester(c *components) (*biz.Ingester, error) {
	opts := cfg.IngestOptions
	for _, dir := range []string{opts.DataDir, opts.AudioDir, opts.TranscriptDir} {
		if err := fsutil.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	videoStrategies := []acquire.Strategy{acquire.NewCaptionStrategy(opts.YtDlpBinary, opts.CaptionLangs)}
	if c.transcriber != nil {
		videoStrategies = append(videoStrategies,
			acquire.NewAudioTranscriptStrategy(opts.YtDlpBinary, opts.AudioDir, opts.TranscriptDir, c.transcriber))
	}

	var readers []acquire.PageReader
	if cfg.OCROptions.VisionEnabled && c.openai != nil {
		readers = append(readers, acquire.NewVisionReader(c.openai, cfg.OCROptions.VisionModel))
	}
	if execx.LookPath(cfg.OCROptions.TesseractBinary) {
		readers = append(readers, acquire.NewTesseractReader(cfg.OCROptions.TesseractBinary, cfg.OCROptions.TesseractLang))
	}
	pdfStrategies := []acquire.Strategy{acquire.NewTextLayerStrategy(cfg.OCROptions.MinTextLength)}
	if len(readers) > 0 {
		pdfStrategies = append(pdfStrategies, acquire.NewOCRStrategy(cfg.OCROptions.RendererBinary, cfg.OCROptions.DPI, readers...))
	} else {
		logger.Warn("No page reader available, scanned PDFs will be skipped")
	}

	acquirer := acquire.NewAcquirer(acquire.NewChain(videoStrategies...), acquire.NewChain(pdfStrategies...))
	chunker := biz.NewChunker(biz.ChunkerConfig{
		ChunkSize:    cfg.RAGOptions.ChunkSize,
		ChunkOverlap: cfg.RAGOptions.ChunkOverlap,
		MaxTokens:    cfg.RAGOptions.MaxChunkTokens,
	}, c.tokens)

	ing := biz.NewIngester(acquirer, chunker, c.indexer, &biz.IngestConfig{
		LinksFile: opts.LinksFile,
		PDFDir:    opts.PDFDir,
		LockFile:  filepath.Join(opts.DataDir, ".ingest.lock"),
		Purge:     opts.Purge,
	}).WithAnswerCache(c.answerCache)

	if cfg.LedgerOptions != nil && cfg.LedgerOptions.Enabled {
		ledger, err := store.OpenLedger(cfg.LedgerOptions)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { _ = ledger.Close() })
		ing.WithLedger(ledger, c.workers)
		c.ledger = ledger
		logger.Infow("Ingestion ledger opened", "driver", cfg.LedgerOptions.Driver)
	}
	return ing, nil
}

// captionFilter 问答只检索视频文本。
func captionFilter() model.Filter {
	return model.Filter{DocType: model.DocTypeCaption}
}

// Close releases resources in reverse order.
func (c *components) Close() {
	if c.ingester != nil {
		c.ingester.Wait()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
