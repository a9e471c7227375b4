package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

// txRepo is the repository handed to Transact callbacks. It mutates the
// cloned state only; the enclosing Store commits or discards it.
type txRepo struct {
	state *state
}

var _ ports.Repository = (*txRepo)(nil)

func (t *txRepo) CreateRFQ(_ context.Context, rfq *domain.RFQ) error {
	t.state.rfqs[rfq.ID] = cloneRFQ(rfq)
	return nil
}

func (t *txRepo) GetRFQ(_ context.Context, id uuid.UUID) (*domain.RFQ, error) {
	rfq, ok := t.state.rfqs[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return cloneRFQ(rfq), nil
}

func (t *txRepo) GetRFQForUpdate(ctx context.Context, id uuid.UUID) (*domain.RFQ, error) {
	return t.GetRFQ(ctx, id)
}

func (t *txRepo) UpdateRFQ(_ context.Context, rfq *domain.RFQ) error {
	if _, ok := t.state.rfqs[rfq.ID]; !ok {
		return ports.ErrNotFound
	}
	t.state.rfqs[rfq.ID] = cloneRFQ(rfq)
	return nil
}

func (t *txRepo) DeleteRFQ(_ context.Context, id uuid.UUID) error {
	if _, ok := t.state.rfqs[id]; !ok {
		return ports.ErrNotFound
	}
	delete(t.state.rfqs, id)
	for invID, inv := range t.state.invitations {
		if inv.RFQID == id {
			delete(t.state.invitations, invID)
		}
	}
	for quoteID, q := range t.state.quotes {
		if q.RFQID == id {
			delete(t.state.quotes, quoteID)
		}
	}
	return nil
}

func (t *txRepo) ListDueForClose(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var due []uuid.UUID
	for _, rfq := range t.state.rfqs {
		if rfq.Status != domain.StatusBiddingOpen || rfq.BiddingDeadline == nil {
			continue
		}
		if !rfq.BiddingDeadline.After(now) {
			due = append(due, rfq.ID)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].String() < due[j].String() })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (t *txRepo) CreateInvitation(_ context.Context, inv *domain.Invitation) error {
	for _, existing := range t.state.invitations {
		if existing.RFQID == inv.RFQID && existing.SupplierOrgID == inv.SupplierOrgID {
			return domain.ErrDuplicateInvitation
		}
	}
	t.state.invitations[inv.ID] = cloneInvitation(inv)
	return nil
}

func (t *txRepo) GetInvitation(_ context.Context, id uuid.UUID) (*domain.Invitation, error) {
	inv, ok := t.state.invitations[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return cloneInvitation(inv), nil
}

func (t *txRepo) FindInvitation(_ context.Context, rfqID uuid.UUID, supplierOrgID string) (*domain.Invitation, error) {
	for _, inv := range t.state.invitations {
		if inv.RFQID == rfqID && inv.SupplierOrgID == supplierOrgID {
			return cloneInvitation(inv), nil
		}
	}
	return nil, ports.ErrNotFound
}

func (t *txRepo) ListInvitations(_ context.Context, rfqID uuid.UUID) ([]*domain.Invitation, error) {
	var out []*domain.Invitation
	for _, inv := range t.state.invitations {
		if inv.RFQID == rfqID {
			out = append(out, cloneInvitation(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvitedAt.Before(out[j].InvitedAt) })
	return out, nil
}

func (t *txRepo) UpdateInvitation(_ context.Context, inv *domain.Invitation) error {
	if _, ok := t.state.invitations[inv.ID]; !ok {
		return ports.ErrNotFound
	}
	t.state.invitations[inv.ID] = cloneInvitation(inv)
	return nil
}

func (t *txRepo) CreateQuote(_ context.Context, quote *domain.Quote) error {
	t.state.quotes[quote.ID] = cloneQuote(quote)
	return nil
}

func (t *txRepo) UpdateQuote(_ context.Context, quote *domain.Quote) error {
	if _, ok := t.state.quotes[quote.ID]; !ok {
		return ports.ErrNotFound
	}
	t.state.quotes[quote.ID] = cloneQuote(quote)
	return nil
}

func (t *txRepo) GetThreadHeadForUpdate(_ context.Context, threadID uuid.UUID) (*domain.Quote, error) {
	var head *domain.Quote
	for _, q := range t.state.quotes {
		if q.ThreadID != threadID {
			continue
		}
		if head == nil || q.Version > head.Version {
			head = q
		}
	}
	if head == nil {
		return nil, ports.ErrNotFound
	}
	return cloneQuote(head), nil
}

func (t *txRepo) GetThread(_ context.Context, threadID uuid.UUID) ([]*domain.Quote, error) {
	var out []*domain.Quote
	for _, q := range t.state.quotes {
		if q.ThreadID == threadID {
			out = append(out, cloneQuote(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (t *txRepo) FindActiveQuoteBySupplier(_ context.Context, rfqID uuid.UUID, supplierOrgID string) (*domain.Quote, error) {
	for _, q := range t.threadHeads(rfqID) {
		if q.SupplierOrgID == supplierOrgID && q.Status.Active() {
			return cloneQuote(q), nil
		}
	}
	return nil, ports.ErrNotFound
}

func (t *txRepo) ListActiveQuotes(_ context.Context, rfqID uuid.UUID) ([]*domain.Quote, error) {
	var out []*domain.Quote
	for _, q := range t.threadHeads(rfqID) {
		if q.Status.Active() {
			out = append(out, cloneQuote(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

// threadHeads returns the latest version of every quote thread on an RFQ.
// Superseded versions stay on disk for audit but are never part of the
// active set.
func (t *txRepo) threadHeads(rfqID uuid.UUID) map[uuid.UUID]*domain.Quote {
	heads := make(map[uuid.UUID]*domain.Quote)
	for _, q := range t.state.quotes {
		if q.RFQID != rfqID {
			continue
		}
		if head, ok := heads[q.ThreadID]; !ok || q.Version > head.Version {
			heads[q.ThreadID] = q
		}
	}
	return heads
}

func (t *txRepo) ListRankedQuotes(_ context.Context, rfqID uuid.UUID) ([]*domain.Quote, error) {
	var out []*domain.Quote
	for _, q := range t.state.quotes {
		if q.RFQID == rfqID && q.PriceRank != nil {
			out = append(out, cloneQuote(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].PriceRank < *out[j].PriceRank })
	return out, nil
}

func (t *txRepo) AppendTransition(_ context.Context, rec *domain.TransitionRecord) error {
	clone := *rec
	t.state.transitions = append(t.state.transitions, &clone)
	return nil
}

func (t *txRepo) ListTransitions(_ context.Context, rfqID uuid.UUID) ([]*domain.TransitionRecord, error) {
	var out []*domain.TransitionRecord
	for _, rec := range t.state.transitions {
		if rec.RFQID == rfqID {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (t *txRepo) AppendEvents(_ context.Context, events ...domain.Event) error {
	for _, event := range events {
		t.state.outboxSeq++
		t.state.outbox = append(t.state.outbox, &outboxEntry{event: event, seq: t.state.outboxSeq})
	}
	return nil
}

func (s *state) clone() *state {
	next := &state{
		rfqs:        make(map[uuid.UUID]*domain.RFQ, len(s.rfqs)),
		invitations: make(map[uuid.UUID]*domain.Invitation, len(s.invitations)),
		quotes:      make(map[uuid.UUID]*domain.Quote, len(s.quotes)),
		transitions: append([]*domain.TransitionRecord(nil), s.transitions...),
		outbox:      append([]*outboxEntry(nil), s.outbox...),
		outboxSeq:   s.outboxSeq,
	}
	for id, rfq := range s.rfqs {
		next.rfqs[id] = cloneRFQ(rfq)
	}
	for id, inv := range s.invitations {
		next.invitations[id] = cloneInvitation(inv)
	}
	for id, q := range s.quotes {
		next.quotes[id] = cloneQuote(q)
	}
	return next
}

func cloneRFQ(rfq *domain.RFQ) *domain.RFQ {
	clone := *rfq
	clone.LineItems = append([]domain.LineItem(nil), rfq.LineItems...)
	if rfq.AwardedQuoteID != nil {
		id := *rfq.AwardedQuoteID
		clone.AwardedQuoteID = &id
	}
	return &clone
}

func cloneInvitation(inv *domain.Invitation) *domain.Invitation {
	clone := *inv
	return &clone
}

func cloneQuote(q *domain.Quote) *domain.Quote {
	clone := *q
	clone.LineItems = append([]domain.QuoteLineItem(nil), q.LineItems...)
	if q.PriceRank != nil {
		rank := *q.PriceRank
		clone.PriceRank = &rank
	}
	return &clone
}
