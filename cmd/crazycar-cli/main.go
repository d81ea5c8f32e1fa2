package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"crazycar-stats/cmd/crazycar-cli/commands"
	"crazycar-stats/internal/components/telemetry"
)

func main() {
	providers, err := telemetry.SetupFromEnv(context.Background(), "crazycar-cli")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to setup telemetry", "err", err)
	}

	code := commands.ExecuteContext(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = providers.Shutdown(ctx)
	cancel()
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
	os.Exit(code)
}
