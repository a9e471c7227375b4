package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	appsweeper "github.com/harborline/rfq-engine/internal/app/sweeper"
	platformobservability "github.com/harborline/rfq-engine/internal/platform/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	const serviceName = "rfq-sweeper"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()

	cfg, err := appsweeper.LoadConfig(".")
	if err != nil {
		instruments.Logger.Error("failed to load config", slog.String("error", err.Error()))
		return
	}

	if err := appsweeper.Run(ctx, cfg, instruments); err != nil {
		instruments.Logger.Error("sweeper exited with error", slog.String("error", err.Error()))
		return
	}
	instruments.Logger.Info("sweeper stopped")
}
