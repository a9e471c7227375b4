// Package eventlog delivers outbox events to the process log. It is the
// default sink when no message broker is configured; downstream consumers
// can tail the structured stream or replace this adapter entirely.
package eventlog

import (
	"context"
	"log/slog"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

// Sink writes each delivered event as a structured log record.
type Sink struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger}
}

func (s *Sink) Deliver(ctx context.Context, event domain.Event) error {
	attrs := []slog.Attr{
		slog.String("event_id", event.ID.String()),
		slog.String("kind", string(event.Kind)),
		slog.String("rfq_id", event.RFQID.String()),
		slog.String("status", string(event.Status)),
		slog.Time("occurred_at", event.OccurredAt),
	}
	if event.SupplierOrgID != "" {
		attrs = append(attrs, slog.String("supplier_org", event.SupplierOrgID))
	}
	if event.Amount != nil {
		attrs = append(attrs, slog.String("amount", event.Amount.String()))
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "rfq event", attrs...)
	return nil
}

var _ ports.EventSink = (*Sink)(nil)
