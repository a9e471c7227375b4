package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventKind names an outbound domain event.
type EventKind string

const (
	EventRFQPublished      EventKind = "RfqPublished"
	EventBiddingOpened     EventKind = "BiddingOpened"
	EventBiddingClosed     EventKind = "BiddingClosed"
	EventInvitationExpired EventKind = "InvitationExpired"
	EventQuoteSubmitted    EventKind = "QuoteSubmitted"
	EventQuoteRevised      EventKind = "QuoteRevised"
	EventQuoteWithdrawn    EventKind = "QuoteWithdrawn"
	EventRFQAwarded        EventKind = "RfqAwarded"
	EventRFQCancelled      EventKind = "RfqCancelled"
	EventRFQCompleted      EventKind = "RfqCompleted"
)

// Event is delivered at-least-once through the outbox; consumers dedupe by
// ID.
type Event struct {
	ID            uuid.UUID        `json:"id"`
	Kind          EventKind        `json:"kind"`
	RFQID         uuid.UUID        `json:"rfqId"`
	Status        Status           `json:"status"`
	SupplierOrgID string           `json:"supplierOrgId,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	OccurredAt    time.Time        `json:"occurredAt"`
}

// NewEvent stamps a lifecycle event for the given RFQ.
func NewEvent(kind EventKind, rfqID uuid.UUID, status Status) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		RFQID:      rfqID,
		Status:     status,
		OccurredAt: time.Now().UTC(),
	}
}
