package autoclose

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
	sweepactivities "github.com/harborline/rfq-engine/internal/platform/temporal/activities/autoclose"
)

const (
	// SweepWorkflowName is the public identifier for registering the workflow.
	SweepWorkflowName = "bidding.workflows.AutoCloseSweep"
	// SweepTaskQueue is the queue consumed by the worker processing sweep workflows.
	SweepTaskQueue = "RFQ_AUTO_CLOSE"
	// SweepCronSchedule runs the sweep once a minute when scheduled as a cron workflow.
	SweepCronSchedule = "* * * * *"
)

// SweepWorkflowInput carries optional correlation metadata for a sweep run.
type SweepWorkflowInput struct {
	TraceID string
}

// SweepWorkflow drives one auto-close pass over RFQs whose bidding deadline
// has elapsed. Each pass is idempotent, so cron overlap and retries are safe.
func SweepWorkflow(ctx workflow.Context, input SweepWorkflowInput) (*ports.SweepReport, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("SweepWorkflow started", withTraceID(input.TraceID)...)

	options := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	var report ports.SweepReport
	if err := workflow.ExecuteActivity(ctx, sweepactivities.SweepExpiredActivityName).Get(ctx, &report); err != nil {
		logger.Error("SweepWorkflow failed", withTraceID(input.TraceID, "error", err)...)
		return nil, err
	}

	logger.Info("SweepWorkflow completed", withTraceID(input.TraceID,
		"closed", report.Closed,
		"alreadyClosed", report.AlreadyClosed,
		"failed", report.Failed)...)
	return &report, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
