package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

func seedRFQ(t *testing.T, store *Store) *domain.RFQ {
	t.Helper()
	rfq, err := domain.NewRFQ("buyer-1", "RFQ-1", "Test order", "USD")
	require.NoError(t, err)
	require.NoError(t, rfq.ReplaceLineItems([]domain.LineItem{
		{Description: "Item", Quantity: decimal.NewFromInt(10)},
	}))
	require.NoError(t, store.CreateRFQ(context.Background(), rfq))
	return rfq
}

func TestTransact_RollsBackOnError(t *testing.T) {
	store := NewStore()
	rfq := seedRFQ(t, store)

	boom := errors.New("boom")
	err := store.Transact(context.Background(), func(tx ports.Repository) error {
		loaded, err := tx.GetRFQForUpdate(context.Background(), rfq.ID)
		require.NoError(t, err)
		loaded.Status = domain.StatusPublished
		require.NoError(t, tx.UpdateRFQ(context.Background(), loaded))
		require.NoError(t, tx.AppendTransition(context.Background(),
			domain.NewTransitionRecord(rfq.ID, domain.StatusDraft, domain.StatusPublished, domain.TransitionPublish, domain.TriggerUser, "buyer-1", "")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing from the failed unit of work is visible.
	got, err := store.GetRFQ(context.Background(), rfq.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDraft, got.Status)
	records, err := store.ListTransitions(context.Background(), rfq.ID)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestTransact_CommitsOnSuccess(t *testing.T) {
	store := NewStore()
	rfq := seedRFQ(t, store)

	err := store.Transact(context.Background(), func(tx ports.Repository) error {
		loaded, err := tx.GetRFQForUpdate(context.Background(), rfq.ID)
		if err != nil {
			return err
		}
		loaded.Status = domain.StatusPublished
		return tx.UpdateRFQ(context.Background(), loaded)
	})
	require.NoError(t, err)

	got, err := store.GetRFQ(context.Background(), rfq.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPublished, got.Status)
}

func TestReadsReturnClones(t *testing.T) {
	store := NewStore()
	rfq := seedRFQ(t, store)

	first, err := store.GetRFQ(context.Background(), rfq.ID)
	require.NoError(t, err)
	first.Title = "mutated by caller"
	first.LineItems[0].Description = "mutated line"

	second, err := store.GetRFQ(context.Background(), rfq.ID)
	require.NoError(t, err)
	require.Equal(t, "Test order", second.Title)
	require.Equal(t, "Item", second.LineItems[0].Description)
}

func TestCreateInvitation_EnforcesUniquePair(t *testing.T) {
	store := NewStore()
	rfq := seedRFQ(t, store)

	inv := domain.NewInvitation(rfq.ID, "sup-a", nil)
	require.NoError(t, store.CreateInvitation(context.Background(), inv))

	dup := domain.NewInvitation(rfq.ID, "sup-a", nil)
	err := store.CreateInvitation(context.Background(), dup)
	require.ErrorIs(t, err, domain.ErrDuplicateInvitation)
}

func TestListDueForClose_FiltersAndLimits(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	makeOpen := func(ref string, deadline time.Time) *domain.RFQ {
		rfq, err := domain.NewRFQ("buyer-1", ref, "Order "+ref, "USD")
		require.NoError(t, err)
		rfq.Status = domain.StatusBiddingOpen
		rfq.BiddingDeadline = &deadline
		require.NoError(t, store.CreateRFQ(context.Background(), rfq))
		return rfq
	}

	overdue1 := makeOpen("R1", now.Add(-time.Hour))
	overdue2 := makeOpen("R2", now.Add(-time.Minute))
	makeOpen("R3", now.Add(time.Hour))

	due, err := store.ListDueForClose(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.ElementsMatch(t, []uuid.UUID{overdue1.ID, overdue2.ID}, due)

	limited, err := store.ListDueForClose(context.Background(), now, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestGetThreadHeadForUpdate_ReturnsLatestVersion(t *testing.T) {
	store := NewStore()
	rfq := seedRFQ(t, store)
	threadID := uuid.New()

	for version := 1; version <= 3; version++ {
		quote := &domain.Quote{
			ID:            uuid.New(),
			ThreadID:      threadID,
			RFQID:         rfq.ID,
			SupplierOrgID: "sup-a",
			Version:       version,
			Status:        domain.QuoteRevised,
			Currency:      "USD",
			TotalAmount:   decimal.NewFromInt(int64(600 - version*50)),
			SubmittedAt:   time.Now().UTC(),
		}
		if version == 3 {
			quote.Status = domain.QuoteSubmitted
		}
		require.NoError(t, store.CreateQuote(context.Background(), quote))
	}

	head, err := store.GetThreadHeadForUpdate(context.Background(), threadID)
	require.NoError(t, err)
	require.Equal(t, 3, head.Version)
	require.Equal(t, domain.QuoteSubmitted, head.Status)

	_, err = store.GetThreadHeadForUpdate(context.Background(), uuid.New())
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestActiveQuotes_OnlyThreadHeads(t *testing.T) {
	store := NewStore()
	rfq := seedRFQ(t, store)
	threadID := uuid.New()

	old := &domain.Quote{
		ID: uuid.New(), ThreadID: threadID, RFQID: rfq.ID, SupplierOrgID: "sup-a",
		Version: 1, Status: domain.QuoteRevised, Currency: "USD",
		TotalAmount: decimal.NewFromInt(500), SubmittedAt: time.Now().UTC(),
	}
	head := &domain.Quote{
		ID: uuid.New(), ThreadID: threadID, RFQID: rfq.ID, SupplierOrgID: "sup-a",
		Version: 2, Status: domain.QuoteSubmitted, Currency: "USD",
		TotalAmount: decimal.NewFromInt(450), SubmittedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateQuote(context.Background(), old))
	require.NoError(t, store.CreateQuote(context.Background(), head))

	active, err := store.ListActiveQuotes(context.Background(), rfq.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, 2, active[0].Version)

	found, err := store.FindActiveQuoteBySupplier(context.Background(), rfq.ID, "sup-a")
	require.NoError(t, err)
	require.Equal(t, head.ID, found.ID)
}

func TestOutbox_PendingAndMark(t *testing.T) {
	store := NewStore()
	rfq := seedRFQ(t, store)

	first := domain.NewEvent(domain.EventRFQPublished, rfq.ID, domain.StatusPublished)
	second := domain.NewEvent(domain.EventBiddingOpened, rfq.ID, domain.StatusBiddingOpen)
	require.NoError(t, store.AppendEvents(context.Background(), first, second))

	pending, err := store.PendingEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, first.ID, pending[0].ID)

	require.NoError(t, store.MarkDispatched(context.Background(), first.ID))
	pending, err = store.PendingEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, second.ID, pending[0].ID)
}
