package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

// OutboxRelay drains staged events to the configured sink. Delivery is
// at-least-once: an event is only marked dispatched after the sink accepted
// it, so a crash between deliver and mark redelivers.
type OutboxRelay struct {
	outbox ports.OutboxReader
	sink   ports.EventSink
	logger *slog.Logger
	batch  int
}

// NewOutboxRelay wires the relay.
func NewOutboxRelay(outbox ports.OutboxReader, sink ports.EventSink, logger *slog.Logger, batch int) *OutboxRelay {
	if logger == nil {
		logger = slog.Default()
	}
	if batch <= 0 {
		batch = 50
	}
	return &OutboxRelay{outbox: outbox, sink: sink, logger: logger, batch: batch}
}

// DrainOnce delivers up to one batch of pending events and returns how many
// were dispatched. A sink failure stops the batch; delivered events up to
// that point are still marked.
func (r *OutboxRelay) DrainOnce(ctx context.Context) (int, error) {
	pending, err := r.outbox.PendingEvents(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	var delivered []uuid.UUID
	var deliverErr error
	for _, event := range pending {
		if err := r.sink.Deliver(ctx, event); err != nil {
			deliverErr = err
			r.logger.Warn("event delivery failed, will retry",
				slog.String("event_id", event.ID.String()),
				slog.String("kind", string(event.Kind)),
				slog.String("error", err.Error()))
			break
		}
		delivered = append(delivered, event.ID)
	}
	if len(delivered) > 0 {
		if err := r.outbox.MarkDispatched(ctx, delivered...); err != nil {
			return len(delivered), err
		}
	}
	return len(delivered), deliverErr
}

// Run drains on a fixed interval until the context is cancelled.
func (r *OutboxRelay) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.DrainOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("outbox drain pass failed", slog.String("error", err.Error()))
			}
		}
	}
}
