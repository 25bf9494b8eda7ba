// Command teammap builds and serves the team map datasets.
//
// The offline stages run in order (extract, geocode, merge) and can be run
// individually or together with build. serve exposes the merged dataset and the
// applicant profile over HTTP. Configuration comes from environment variables;
// see internal/config.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
