package autoclose

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"

	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

const (
	// SweepExpiredActivityName closes every RFQ whose bidding deadline has elapsed.
	SweepExpiredActivityName = "bidding.activities.SweepExpired"
)

// Activities groups activities that operate on the bidding bounded context.
type Activities struct {
	sweeper ports.Sweeper
}

// NewActivities wires the sweeper into the Temporal activities bundle.
func NewActivities(sweeper ports.Sweeper) *Activities {
	return &Activities{sweeper: sweeper}
}

// SweepExpired runs one auto-close pass and reports the outcome.
func (a *Activities) SweepExpired(ctx context.Context) (*ports.SweepReport, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.sweeper == nil {
		logger.Error("sweep activity not initialized")
		return nil, errors.New("sweep activity not initialized")
	}
	logger.Info("SweepExpired activity started")
	report, err := a.sweeper.SweepExpired(ctx)
	if err != nil {
		logger.Error("SweepExpired activity failed", "error", err)
		return nil, err
	}
	logger.Info("SweepExpired activity completed",
		"closed", report.Closed,
		"alreadyClosed", report.AlreadyClosed,
		"failed", report.Failed)
	return &report, nil
}
