package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
)

// Clock supplies "now" so deadline logic is testable.
type Clock interface {
	Now() time.Time
}

// Authorizer is the domain-authorization hook. The engine calls it before
// every transition; the environment decides. A nil error allows the action.
type Authorizer interface {
	Authorize(ctx context.Context, actor string, rfq *domain.RFQ, transition domain.TransitionType) error
}

// ScoreProvider is the optional TCO collaborator hook. Scores are consulted
// only during EVALUATION; price rank stays the audit-of-record.
type ScoreProvider interface {
	// Scores returns a 0..1 score per quote thread. Missing threads simply
	// have no hint.
	Scores(ctx context.Context, rfqID uuid.UUID) (map[uuid.UUID]float64, error)
}

// EventSink receives outbox events during a drain pass. Delivery is
// at-least-once; sinks dedupe by event id.
type EventSink interface {
	Deliver(ctx context.Context, event domain.Event) error
}

// OutboxReader exposes the pending side of the outbox for the relay loop.
type OutboxReader interface {
	PendingEvents(ctx context.Context, limit int) ([]domain.Event, error)
	MarkDispatched(ctx context.Context, ids ...uuid.UUID) error
}
