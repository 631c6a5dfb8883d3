// Package main is the entry point for the valuerag batch ingestion tool.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/valuerag/cmd/valuerag-ingest/app"
)

func main() {
	app.NewApp().Run()
}
