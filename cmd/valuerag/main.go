// Package main is the entry point for the valuerag question answering service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/valuerag/cmd/valuerag/app"
)

func main() {
	app.NewApp().Run()
}
