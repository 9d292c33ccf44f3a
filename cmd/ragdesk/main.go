// Command ragdesk answers questions from uploaded company documents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// version is set by the release build.
var version = "dev"

func main() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBootstrap(cli.Bootstrap{
		Runtime: buildRuntime,
		Audit:   openAudit,
	})

	err := cli.Execute(ctx)
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
