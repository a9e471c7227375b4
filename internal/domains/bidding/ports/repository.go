package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrLockUnavailable signals the row lock could not be taken; callers
	// treat it like losing the race.
	ErrLockUnavailable = errors.New("row lock unavailable")
)

// Repository is the data-access surface available inside a transaction.
// Mutating operations must only be called on the repository handed to a
// Transact callback; the *ForUpdate reads take a row lock held until the
// transaction ends.
type Repository interface {
	CreateRFQ(ctx context.Context, rfq *domain.RFQ) error
	GetRFQ(ctx context.Context, id uuid.UUID) (*domain.RFQ, error)
	GetRFQForUpdate(ctx context.Context, id uuid.UUID) (*domain.RFQ, error)
	UpdateRFQ(ctx context.Context, rfq *domain.RFQ) error
	DeleteRFQ(ctx context.Context, id uuid.UUID) error
	// ListDueForClose returns RFQs still open past their bidding deadline.
	ListDueForClose(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)

	CreateInvitation(ctx context.Context, inv *domain.Invitation) error
	GetInvitation(ctx context.Context, id uuid.UUID) (*domain.Invitation, error)
	FindInvitation(ctx context.Context, rfqID uuid.UUID, supplierOrgID string) (*domain.Invitation, error)
	ListInvitations(ctx context.Context, rfqID uuid.UUID) ([]*domain.Invitation, error)
	UpdateInvitation(ctx context.Context, inv *domain.Invitation) error

	CreateQuote(ctx context.Context, quote *domain.Quote) error
	UpdateQuote(ctx context.Context, quote *domain.Quote) error
	// GetThreadHeadForUpdate locks the quote thread and returns its latest
	// version, serializing concurrent revisions of the same thread without
	// blocking other suppliers.
	GetThreadHeadForUpdate(ctx context.Context, threadID uuid.UUID) (*domain.Quote, error)
	GetThread(ctx context.Context, threadID uuid.UUID) ([]*domain.Quote, error)
	FindActiveQuoteBySupplier(ctx context.Context, rfqID uuid.UUID, supplierOrgID string) (*domain.Quote, error)
	ListActiveQuotes(ctx context.Context, rfqID uuid.UUID) ([]*domain.Quote, error)
	ListRankedQuotes(ctx context.Context, rfqID uuid.UUID) ([]*domain.Quote, error)

	AppendTransition(ctx context.Context, rec *domain.TransitionRecord) error
	ListTransitions(ctx context.Context, rfqID uuid.UUID) ([]*domain.TransitionRecord, error)

	AppendEvents(ctx context.Context, events ...domain.Event) error
}

// Store couples the repository with transaction control. Transact runs fn
// against a transactional repository; any error rolls the whole unit back
// with zero side effects, including outbox rows.
type Store interface {
	Repository
	Transact(ctx context.Context, fn func(tx Repository) error) error
}
