package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	appsweeper "github.com/harborline/rfq-engine/internal/app/sweeper"
	"github.com/harborline/rfq-engine/internal/domains/bidding/adapters/memory"
	"github.com/harborline/rfq-engine/internal/domains/bidding/adapters/observability"
	bidpostgres "github.com/harborline/rfq-engine/internal/domains/bidding/adapters/persistence/postgres"
	"github.com/harborline/rfq-engine/internal/domains/bidding/application"
	sweepworkflows "github.com/harborline/rfq-engine/internal/durable/temporal/workflows/autoclose"
	platformobservability "github.com/harborline/rfq-engine/internal/platform/observability"
	platformpostgres "github.com/harborline/rfq-engine/internal/platform/postgres"
	sweepactivities "github.com/harborline/rfq-engine/internal/platform/temporal/activities/autoclose"
)

func main() {
	ctx := context.Background()
	const serviceName = "rfq-worker"
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
	logger := instruments.Logger

	cfg, err := appsweeper.LoadConfig(".")
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, cleanupStore := buildStore(ctx, cfg, logger)
	defer cleanupStore()

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
	activities := sweepactivities.NewActivities(autoClose)

	tracerOptions := temporalotel.TracerOptions{Tracer: instruments.Tracer("temporal-worker")}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		logger.Error("failed to configure Temporal tracing interceptor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	clientOptions := client.Options{
		HostPort:  envOrDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		Namespace: envOrDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		Logger:    workerlog.NewStructuredLogger(logger),
	}
	clientOptions.Interceptors = append(clientOptions.Interceptors, tracingInterceptor)
	temporalClient, err := client.Dial(clientOptions)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, sweepworkflows.SweepTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(sweepworkflows.SweepWorkflow, workflow.RegisterOptions{Name: sweepworkflows.SweepWorkflowName})
	w.RegisterActivityWithOptions(activities.SweepExpired, activity.RegisterOptions{Name: sweepactivities.SweepExpiredActivityName})

	if err := startSweepCron(ctx, temporalClient, logger); err != nil {
		logger.Error("failed to start sweep cron workflow", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("worker listening", slog.String("taskQueue", sweepworkflows.SweepTaskQueue), slog.String("namespace", clientOptions.Namespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}

func buildStore(ctx context.Context, cfg appsweeper.Config, logger *slog.Logger) (appsweeper.Store, func()) {
	dsn := strings.TrimSpace(cfg.PostgresDSN)
	if dsn == "" {
		logger.Warn("POSTGRES_DSN not set, falling back to in-memory store")
		return memory.NewStore(), func() {}
	}
	db, err := platformpostgres.Connect(ctx, dsn)
	if err != nil {
		logger.Warn("worker failed to connect to postgres (falling back to memory)", slog.String("error", err.Error()))
		return memory.NewStore(), func() {}
	}
	if err := bidpostgres.Migrate(db); err != nil {
		logger.Warn("worker failed to run migrations (falling back to memory)", slog.String("error", err.Error()))
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return memory.NewStore(), func() {}
	}
	logger.Info("worker store configured with postgres")
	return bidpostgres.NewRepository(db), func() {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
	}
}

// startSweepCron ensures the auto-close cron workflow is running. A workflow
// already started by a previous worker is not an error.
func startSweepCron(ctx context.Context, c client.Client, logger *slog.Logger) error {
	if strings.TrimSpace(os.Getenv("SWEEP_CRON_DISABLED")) == "1" {
		logger.Info("sweep cron workflow disabled")
		return nil
	}
	schedule := envOrDefault("SWEEP_CRON_SCHEDULE", sweepworkflows.SweepCronSchedule)
	options := client.StartWorkflowOptions{
		ID:           "rfq-auto-close-sweep",
		TaskQueue:    sweepworkflows.SweepTaskQueue,
		CronSchedule: schedule,
	}
	_, err := c.ExecuteWorkflow(ctx, options, sweepworkflows.SweepWorkflowName, sweepworkflows.SweepWorkflowInput{})
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			logger.Info("sweep cron workflow already running")
			return nil
		}
		return err
	}
	logger.Info("sweep cron workflow started", slog.String("schedule", schedule))
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
