// Command sackctl builds datasets, trains sack models and scores scenarios offline.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/sackline/pkg/logger"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
