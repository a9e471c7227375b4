package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

var (
	_ ports.Store        = (*Store)(nil)
	_ ports.OutboxReader = (*Store)(nil)
)

// Store is an in-memory persistence adapter with transactional semantics:
// Transact clones the whole state, runs the callback against the clone, and
// swaps it in only on success, so a failed unit of work leaves zero side
// effects. The store-wide mutex serializes transactions, which is a
// stronger discipline than the per-row locks the SQL adapter takes but
// satisfies the same ordering guarantees.
type Store struct {
	mu    sync.Mutex
	state *state
}

type outboxEntry struct {
	event      domain.Event
	seq        int
	dispatched bool
}

type state struct {
	rfqs        map[uuid.UUID]*domain.RFQ
	invitations map[uuid.UUID]*domain.Invitation
	quotes      map[uuid.UUID]*domain.Quote
	transitions []*domain.TransitionRecord
	outbox      []*outboxEntry
	outboxSeq   int
}

// NewStore builds an empty in-memory store.
func NewStore() *Store {
	return &Store{state: &state{
		rfqs:        map[uuid.UUID]*domain.RFQ{},
		invitations: map[uuid.UUID]*domain.Invitation{},
		quotes:      map[uuid.UUID]*domain.Quote{},
	}}
}

// Transact runs fn against a cloned state and commits it atomically.
func (s *Store) Transact(ctx context.Context, fn func(tx ports.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := s.state.clone()
	if err := fn(&txRepo{state: clone}); err != nil {
		return err
	}
	s.state = clone
	return nil
}

// Non-transactional reads operate on the committed state.

func (s *Store) view() *txRepo {
	return &txRepo{state: s.state}
}

func (s *Store) CreateRFQ(ctx context.Context, rfq *domain.RFQ) error {
	return s.Transact(ctx, func(tx ports.Repository) error { return tx.CreateRFQ(ctx, rfq) })
}

func (s *Store) GetRFQ(ctx context.Context, id uuid.UUID) (*domain.RFQ, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetRFQ(ctx, id)
}

func (s *Store) GetRFQForUpdate(ctx context.Context, id uuid.UUID) (*domain.RFQ, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetRFQForUpdate(ctx, id)
}

func (s *Store) UpdateRFQ(ctx context.Context, rfq *domain.RFQ) error {
	return s.Transact(ctx, func(tx ports.Repository) error { return tx.UpdateRFQ(ctx, rfq) })
}

func (s *Store) DeleteRFQ(ctx context.Context, id uuid.UUID) error {
	return s.Transact(ctx, func(tx ports.Repository) error { return tx.DeleteRFQ(ctx, id) })
}

func (s *Store) ListDueForClose(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListDueForClose(ctx, now, limit)
}

func (s *Store) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	return s.Transact(ctx, func(tx ports.Repository) error { return tx.CreateInvitation(ctx, inv) })
}

func (s *Store) GetInvitation(ctx context.Context, id uuid.UUID) (*domain.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetInvitation(ctx, id)
}

func (s *Store) FindInvitation(ctx context.Context, rfqID uuid.UUID, supplierOrgID string) (*domain.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().FindInvitation(ctx, rfqID, supplierOrgID)
}

func (s *Store) ListInvitations(ctx context.Context, rfqID uuid.UUID) ([]*domain.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListInvitations(ctx, rfqID)
}

func (s *Store) UpdateInvitation(ctx context.Context, inv *domain.Invitation) error {
	return s.Transact(ctx, func(tx ports.Repository) error { return tx.UpdateInvitation(ctx, inv) })
}

func (s *Store) CreateQuote(ctx context.Context, quote *domain.Quote) error {
	return s.Transact(ctx, func(tx ports.Repository) error { return tx.CreateQuote(ctx, quote) })
}

func (s *Store) UpdateQuote(ctx context.Context, quote *domain.Quote) error {
	return s.Transact(ctx, func(tx ports.Repository) error { return tx.UpdateQuote(ctx, quote) })
}

func (s *Store) GetThreadHeadForUpdate(ctx context.Context, threadID uuid.UUID) (*domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetThreadHeadForUpdate(ctx, threadID)
}

func (s *Store) GetThread(ctx context.Context, threadID uuid.UUID) ([]*domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetThread(ctx, threadID)
}

func (s *Store) FindActiveQuoteBySupplier(ctx context.Context, rfqID uuid.UUID, supplierOrgID string) (*domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().FindActiveQuoteBySupplier(ctx, rfqID, supplierOrgID)
}

func (s *Store) ListActiveQuotes(ctx context.Context, rfqID uuid.UUID) ([]*domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListActiveQuotes(ctx, rfqID)
}

func (s *Store) ListRankedQuotes(ctx context.Context, rfqID uuid.UUID) ([]*domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListRankedQuotes(ctx, rfqID)
}

func (s *Store) AppendTransition(ctx context.Context, rec *domain.TransitionRecord) error {
	return s.Transact(ctx, func(tx ports.Repository) error { return tx.AppendTransition(ctx, rec) })
}

func (s *Store) ListTransitions(ctx context.Context, rfqID uuid.UUID) ([]*domain.TransitionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListTransitions(ctx, rfqID)
}

func (s *Store) AppendEvents(ctx context.Context, events ...domain.Event) error {
	return s.Transact(ctx, func(tx ports.Repository) error { return tx.AppendEvents(ctx, events...) })
}

// PendingEvents returns undispatched events in staging order.
func (s *Store) PendingEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, entry := range s.state.outbox {
		if entry.dispatched {
			continue
		}
		out = append(out, entry.event)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MarkDispatched flags delivered events so they are not re-read.
func (s *Store) MarkDispatched(ctx context.Context, ids ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	marked := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		marked[id] = struct{}{}
	}
	for _, entry := range s.state.outbox {
		if _, ok := marked[entry.event.ID]; ok {
			entry.dispatched = true
		}
	}
	return nil
}
