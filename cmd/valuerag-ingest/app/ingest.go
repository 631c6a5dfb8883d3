// Package app provides the valuerag batch ingestion command.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/valuerag/cmd/valuerag-ingest/app/options"
	"github.com/kart-io/valuerag/pkg/infra/app"
)

const (
	// Name is the name of the application.
	Name = "valuerag-ingest"

	commandDesc = `valuerag batch ingestion

Indexes every PDF in the PDF directory and every video listed in the links
file into the vector store, then prints a per-source report.

Videos use published captions first and fall back to downloading the audio
and transcribing it. PDFs use the embedded text layer first and fall back to
OCR. With --ingest.watch the command keeps running and re-runs the batch when
new PDFs or links appear.`
)

// NewApp creates the ingestion command.
func NewApp() *app.App {
	opts := options.NewIngestOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.IngestOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return cfg.RunIngest(setupSignalContext())
	}
}

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
