// Package main provides the chat assistant server entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/garyellow/unibot-go/internal/app"
	"github.com/garyellow/unibot-go/internal/config"
	domerrors "github.com/garyellow/unibot-go/internal/errors"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Initialize(ctx, cfg)
	if err != nil {
		if errors.Is(err, domerrors.ErrMalformedKnowledgeBase) {
			_, _ = fmt.Fprintf(os.Stderr, "Refusing to start: %v\n", err)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		}
		return 1
	}

	if err := application.Run(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Server stopped with error: %v\n", err)
		return 1
	}
	return 0
}
