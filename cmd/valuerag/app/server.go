// Package app provides the valuerag server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/valuerag/cmd/valuerag/app/options"
	"github.com/kart-io/valuerag/pkg/infra/app"
)

const (
	// Name is the name of the application.
	Name = "valuerag"

	commandDesc = `valuerag question answering service

Answers investing questions grounded in indexed YouTube transcripts and
investment thesis PDFs.

This server provides:
  - Text and voice questions answered by a tool-using agent
  - Optional spoken answers
  - Investment thesis summaries, financial data and valuation charts
  - Batch ingestion of new videos and PDFs`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// 第二次收到信号时直接退出。
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
