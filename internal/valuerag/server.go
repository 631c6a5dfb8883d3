package valuerag

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/internal/valuerag/biz"
	"github.com/kart-io/valuerag/internal/valuerag/biz/agent"
	"github.com/kart-io/valuerag/internal/valuerag/biz/thesis"
	"github.com/kart-io/valuerag/internal/valuerag/handler"
	"github.com/kart-io/valuerag/internal/valuerag/router"
	"github.com/kart-io/valuerag/pkg/marketdata"
	agentopts "github.com/kart-io/valuerag/pkg/options/agent"
	"github.com/kart-io/valuerag/pkg/speech"
)

// Server is the question answering HTTP server.
type Server struct {
	cfg        *Config
	httpServer *http.Server
	components *components
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	if err := cfg.initLogger("server"); err != nil {
		return nil, err
	}

	c, err := cfg.newComponents(ctx)
	if err != nil {
		return nil, err
	}

	qa := biz.NewGroundedQA(c.retriever, c.chat, c.answerCache, biz.QAConfig{
		TopK:   cfg.RAGOptions.TopK,
		Filter: captionFilter(),
	})

	sessions := cfg.newSessionStore(c)
	tools := []agent.Tool{
		agent.NewRAGAnswerTool(qa),
		agent.NewIngestionTool(c.ingester),
		agent.NewRetrieverTool(c.retriever, cfg.RAGOptions.TopK, captionFilter()),
	}
	if c.transcriber != nil {
		tools = append(tools, agent.NewSpeechTool(c.transcriber))
	}
	assistant := agent.New(c.chat, sessions, c.tokens, agent.Config{
		MaxIterations:   cfg.AgentOptions.MaxIterations,
		MaxParseRetries: cfg.AgentOptions.MaxParseRetries,
		MaxPromptTokens: cfg.AgentOptions.MaxPromptTokens,
	}, tools...)
	logger.Infow("Agent initialized", "tools", len(tools), "session_store", cfg.AgentOptions.SessionStore)

	var market marketdata.Provider
	if cfg.MarketOptions.Enabled {
		market = marketdata.New(cfg.MarketOptions, c.redis)
	}
	extractor := thesis.NewExtractor(c.retriever, c.chat, market, cfg.ThesisOptions)

	deps := handler.Deps{
		Agent:          assistant,
		Transcriber:    c.transcriber,
		Synthesizer:    speech.NewSynthesizer(cfg.SpeechOptions, c.openai),
		Thesis:         extractor,
		Index:          c.indexer,
		Searcher:       c.retriever,
		Ingester:       c.ingester,
		Market:         market,
		Symbols:        cfg.MarketOptions.Symbols,
		Workers:        c.workers,
		MaxUploadSize:  cfg.HTTPOptions.MaxUploadSize,
		RequestTimeout: cfg.HTTPOptions.RequestTimeout,
		SearchTopK:     cfg.RAGOptions.TopK,
	}
	// 接口类型的 nil 判断需要显式处理。
	if c.ledger != nil {
		deps.IngestLog = c.ledger
	}
	h := handler.New(deps)

	gin.SetMode(cfg.HTTPOptions.Mode)
	engine := router.New(h, cfg.HTTPOptions.AllowOrigins)

	logger.Infow("Server is ready", "addr", cfg.HTTPOptions.Addr)
	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:         cfg.HTTPOptions.Addr,
			Handler:      engine,
			ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
			WriteTimeout: cfg.HTTPOptions.WriteTimeout,
			IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
		},
		components: c,
	}, nil
}

func (cfg *Config) newSessionStore(c *components) agent.SessionStore {
	window := cfg.AgentOptions.MemoryWindow
	if cfg.AgentOptions.SessionStore == agentopts.SessionStoreRedis {
		if c.redis != nil {
			return agent.NewRedisStore(c.redis, window, cfg.AgentOptions.SessionTTL)
		}
		logger.Warn("Redis session store requested but Redis is unavailable, using memory")
	}
	return agent.NewMemoryStore(window, cfg.AgentOptions.MaxSessions, cfg.AgentOptions.SessionTTL)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.components.Close()

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}
