// Package router registers the valuerag HTTP routes.
package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/internal/valuerag/handler"
)

// New builds the gin engine with middleware and all routes.
func New(h *handler.Handler, allowOrigins []string) *gin.Engine {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(gin.Recovery(), requestID(), requestLogger())
	engine.Use(cors.New(corsConfig(allowOrigins)))

	Register(engine, h)
	return engine
}

// Register registers the routes on r.
func Register(r gin.IRouter, h *handler.Handler) {
	r.POST("/ask-text", h.AskText)
	r.POST("/ask-audio", h.AskAudio)
	r.POST("/analyze-thesis", h.AnalyzeThesis)
	r.POST("/search", h.Search)

	companies := r.Group("/companies")
	{
		companies.GET("", h.Companies)
		companies.GET("/:name/summary", h.CompanySummary)
		companies.GET("/:name/chart", h.CompanyChart)
	}

	r.GET("/ticker", h.Ticker)
	r.GET("/stats", h.Stats)
	r.POST("/ingest", h.Ingest)
	r.GET("/healthz", h.Healthz)

	logger.Info("HTTP routes registered")
}

func corsConfig(allowOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", headerRequestID},
		ExposeHeaders: []string{"Content-Length", headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(allowOrigins) == 0 || (len(allowOrigins) == 1 && allowOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowOrigins
	}
	return cfg
}
