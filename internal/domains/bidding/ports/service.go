package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
)

// CreateRFQInput carries the buyer's draft parameters.
type CreateRFQInput struct {
	BuyerOrgID         string
	Reference          string
	Title              string
	Description        string
	Currency           string
	DeliveryPort       string
	DeliveryDate       *time.Time
	BiddingDeadline    *time.Time
	AllowPartialQuotes bool
	AllowRevision      bool
	RequireAllItems    bool
	LineItems          []domain.LineItem
}

// UpdateDraftInput replaces mutable draft fields. Nil pointers leave the
// current value untouched; a non-nil LineItems slice replaces the whole set.
type UpdateDraftInput struct {
	RFQID              uuid.UUID
	Title              *string
	Description        *string
	DeliveryPort       *string
	DeliveryDate       *time.Time
	BiddingDeadline    *time.Time
	AllowPartialQuotes *bool
	AllowRevision      *bool
	RequireAllItems    *bool
	LineItems          []domain.LineItem
}

// LifecycleService owns the RFQ state machine. Every transition is a bounded
// transaction under the RFQ row lock.
type LifecycleService interface {
	CreateRFQ(ctx context.Context, input CreateRFQInput) (*domain.RFQ, error)
	UpdateDraft(ctx context.Context, input UpdateDraftInput) (*domain.RFQ, error)
	DeleteDraft(ctx context.Context, rfqID uuid.UUID, actor string) error

	Publish(ctx context.Context, rfqID uuid.UUID, actor string) (*domain.RFQ, error)
	OpenBidding(ctx context.Context, rfqID uuid.UUID, actor string) (*domain.RFQ, error)
	CloseBidding(ctx context.Context, rfqID uuid.UUID, actor string, trigger domain.TriggerSource) (*domain.RFQ, error)
	StartEvaluation(ctx context.Context, rfqID uuid.UUID, actor string) (*domain.RFQ, error)
	Complete(ctx context.Context, rfqID uuid.UUID, actor string, fulfilmentConfirmed bool) (*domain.RFQ, error)
	Cancel(ctx context.Context, rfqID uuid.UUID, actor, reason string) (*domain.RFQ, error)

	GetRFQ(ctx context.Context, rfqID uuid.UUID) (*domain.RFQ, error)
	ListTransitions(ctx context.Context, rfqID uuid.UUID) ([]*domain.TransitionRecord, error)
}

// InvitationService manages the supplier invitation sub-state machine.
type InvitationService interface {
	Invite(ctx context.Context, rfqID uuid.UUID, supplierOrgID, actor string) (*domain.Invitation, error)
	Respond(ctx context.Context, invitationID uuid.UUID, accept bool, actor string) (*domain.Invitation, error)
	ListInvitations(ctx context.Context, rfqID uuid.UUID) ([]*domain.Invitation, error)
}

// QuoteService manages quote submission, revision, and withdrawal.
type QuoteService interface {
	Submit(ctx context.Context, rfqID uuid.UUID, supplierOrgID string, lines []domain.QuoteLineInput, validUntil *time.Time) (*domain.Quote, error)
	Revise(ctx context.Context, threadID uuid.UUID, supplierOrgID string, lines []domain.QuoteLineInput, validUntil *time.Time) (*domain.Quote, error)
	Withdraw(ctx context.Context, threadID uuid.UUID, supplierOrgID string) (*domain.Quote, error)

	GetThread(ctx context.Context, threadID uuid.UUID) ([]*domain.Quote, error)
	RankedQuotes(ctx context.Context, rfqID uuid.UUID) ([]*domain.Quote, error)
}

// AwardInput identifies the winning thread and why it was chosen. Reason is
// mandatory when the target is not the top-ranked quote.
type AwardInput struct {
	RFQID    uuid.UUID
	ThreadID uuid.UUID
	Actor    string
	Reason   string
}

// AwardService finalizes the award transition.
type AwardService interface {
	Award(ctx context.Context, input AwardInput) (*domain.RFQ, error)
}

// SweepReport summarizes one auto-close pass.
type SweepReport struct {
	Closed        int
	AlreadyClosed int
	Failed        int
}

// Sweeper drives overdue RFQs through CLOSE_BIDDING exactly once. Safe to
// run concurrently with itself and with manual closes.
type Sweeper interface {
	SweepExpired(ctx context.Context) (SweepReport, error)
}
