package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

// SweepActor is recorded on audit rows written by the scheduler.
const SweepActor = "auto-close-sweeper"

// AutoCloseSweeper finds RFQs past their bidding deadline and drives each
// through the same CLOSE_BIDDING transition a buyer would use. Losing the
// race to a manual close is success, not failure.
type AutoCloseSweeper struct {
	store     ports.Store
	lifecycle ports.LifecycleService
	clock     ports.Clock
	logger    *slog.Logger
	batchSize int
}

// NewAutoCloseSweeper wires the sweeper over the lifecycle service.
func NewAutoCloseSweeper(store ports.Store, lifecycle ports.LifecycleService, clock ports.Clock, logger *slog.Logger, batchSize int) *AutoCloseSweeper {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = DefaultConfig().SweepBatchSize
	}
	return &AutoCloseSweeper{
		store:     store,
		lifecycle: lifecycle,
		clock:     clock,
		logger:    logger,
		batchSize: batchSize,
	}
}

var _ ports.Sweeper = (*AutoCloseSweeper)(nil)

// SweepExpired closes every overdue RFQ it can. Conflicts (another closer
// won) are logged at info level and counted as already closed; real
// failures are logged and counted but never abort the pass.
func (s *AutoCloseSweeper) SweepExpired(ctx context.Context) (ports.SweepReport, error) {
	var report ports.SweepReport
	due, err := s.store.ListDueForClose(ctx, s.clock.Now(), s.batchSize)
	if err != nil {
		return report, err
	}
	for _, rfqID := range due {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		_, err := s.lifecycle.CloseBidding(ctx, rfqID, SweepActor, domain.TriggerScheduler)
		switch {
		case err == nil:
			report.Closed++
		case errors.Is(err, domain.ErrConflict):
			report.AlreadyClosed++
			s.logger.Info("rfq already closed by another caller",
				slog.String("rfq_id", rfqID.String()))
		default:
			report.Failed++
			s.logger.Error("auto-close failed",
				slog.String("rfq_id", rfqID.String()),
				slog.String("error", err.Error()))
		}
	}
	if report.Closed+report.AlreadyClosed+report.Failed > 0 {
		s.logger.Info("auto-close sweep completed",
			slog.Int("closed", report.Closed),
			slog.Int("already_closed", report.AlreadyClosed),
			slog.Int("failed", report.Failed))
	}
	return report, nil
}
