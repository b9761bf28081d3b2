// Command surfbatch runs the jobs of the application catalogue.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
