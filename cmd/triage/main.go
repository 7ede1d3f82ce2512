package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/comigor/triage-go/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.L.Error("command failed", "error", err)
		os.Exit(1)
	}
}
