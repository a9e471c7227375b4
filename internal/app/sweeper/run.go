// Package sweeper wires the auto-close sweeper process: storage, the
// lifecycle service, the sweep loop, and the outbox relay.
package sweeper

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harborline/rfq-engine/internal/domains/bidding/adapters/eventlog"
	"github.com/harborline/rfq-engine/internal/domains/bidding/adapters/memory"
	"github.com/harborline/rfq-engine/internal/domains/bidding/adapters/observability"
	bidpostgres "github.com/harborline/rfq-engine/internal/domains/bidding/adapters/persistence/postgres"
	"github.com/harborline/rfq-engine/internal/domains/bidding/application"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
	platformobservability "github.com/harborline/rfq-engine/internal/platform/observability"
	platformpostgres "github.com/harborline/rfq-engine/internal/platform/postgres"
)

// Store is the storage surface the sweeper process needs.
type Store interface {
	ports.Store
	ports.OutboxReader
}

// Run starts the sweep and outbox loops and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg Config, instruments *platformobservability.Instruments) error {
	logger := instruments.Logger

	store, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	clock := application.SystemClock()
	appCfg := application.Config{
		RequireInvitations:   cfg.RequireInvitations,
		AllowEmptyEvaluation: cfg.AllowEmptyEvaluation,
		SweepBatchSize:       cfg.SweepBatchSize,
	}

	lifecycle := observability.NewLifecycle(
		application.NewLifecycleService(store, appCfg,
			application.WithClock(clock),
			application.WithLifecycleLogger(logger),
		),
		observability.WithLifecycleLogger(logger),
		observability.WithLifecycleTracer(instruments.Tracer("internal.bidding.lifecycle")),
		observability.WithLifecycleMeter(instruments.Meter("internal.bidding.lifecycle")),
	)

	autoClose := application.NewAutoCloseSweeper(store, lifecycle, clock, logger, cfg.SweepBatchSize)
	relay := application.NewOutboxRelay(store, eventlog.New(logger), logger, cfg.OutboxBatchSize)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return runSweepLoop(ctx, autoClose, cfg, logger)
	})
	group.Go(func() error {
		return relay.Run(ctx, cfg.OutboxInterval)
	})

	logger.Info("sweeper running",
		slog.Duration("sweep_interval", cfg.SweepInterval),
		slog.Duration("outbox_interval", cfg.OutboxInterval))

	err = group.Wait()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func runSweepLoop(ctx context.Context, sweeper ports.Sweeper, cfg Config, logger *slog.Logger) error {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			report, err := sweeper.SweepExpired(ctx)
			if err != nil && ctx.Err() == nil {
				logger.Error("sweep pass failed", slog.String("error", err.Error()))
				continue
			}
			if report.Closed > 0 || report.Failed > 0 {
				logger.Info("sweep pass completed",
					slog.Int("closed", report.Closed),
					slog.Int("already_closed", report.AlreadyClosed),
					slog.Int("failed", report.Failed))
			}
		}
	}
}

func buildStore(ctx context.Context, cfg Config, logger *slog.Logger) (Store, func(), error) {
	dsn := strings.TrimSpace(cfg.PostgresDSN)
	if dsn == "" {
		logger.Warn("POSTGRES_DSN not set, falling back to in-memory store")
		return memory.NewStore(), func() {}, nil
	}
	db, err := platformpostgres.Connect(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
	}
	if err := bidpostgres.Migrate(db); err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Info("store configured with postgres")
	return bidpostgres.NewRepository(db), cleanup, nil
}
