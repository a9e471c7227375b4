package application

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/harborline/rfq-engine/internal/domains/bidding/adapters/memory"
	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type engine struct {
	store       *memory.Store
	clock       *fakeClock
	lifecycle   *LifecycleService
	invitations *InvitationService
	quotes      *QuoteService
	award       *AwardCoordinator
	sweeper     *AutoCloseSweeper
}

func newEngine(t *testing.T, cfg Config) *engine {
	t.Helper()
	store := memory.NewStore()
	clock := newFakeClock()
	logger := quietLogger()
	lifecycle := NewLifecycleService(store, cfg, WithClock(clock), WithLifecycleLogger(logger))
	return &engine{
		store:       store,
		clock:       clock,
		lifecycle:   lifecycle,
		invitations: NewInvitationService(store, clock, logger),
		quotes:      NewQuoteService(store, cfg, clock, logger),
		award:       NewAwardCoordinator(store, clock, WithAwardLogger(logger)),
		sweeper:     NewAutoCloseSweeper(store, lifecycle, clock, logger, cfg.SweepBatchSize),
	}
}

func (e *engine) createRFQ(t *testing.T, deadline *time.Time) *domain.RFQ {
	t.Helper()
	rfq, err := e.lifecycle.CreateRFQ(context.Background(), ports.CreateRFQInput{
		BuyerOrgID:      "buyer-1",
		Reference:       "RFQ-2026-001",
		Title:           "Steel plate order",
		Currency:        "USD",
		DeliveryPort:    "NLRTM",
		BiddingDeadline: deadline,
		AllowRevision:   true,
		LineItems: []domain.LineItem{
			{Description: "Plate 10mm", Quantity: decimal.NewFromInt(100), Unit: "t"},
			{Description: "Plate 20mm", Quantity: decimal.NewFromInt(50), Unit: "t"},
		},
	})
	require.NoError(t, err)
	return rfq
}

// inviteAndAccept drives one supplier through invite + accept. The RFQ must
// be PUBLISHED or BIDDING_OPEN.
func (e *engine) inviteAndAccept(t *testing.T, rfq *domain.RFQ, supplier string) *domain.Invitation {
	t.Helper()
	inv, err := e.invitations.Invite(context.Background(), rfq.ID, supplier, "buyer-1")
	require.NoError(t, err)
	inv, err = e.invitations.Respond(context.Background(), inv.ID, true, supplier)
	require.NoError(t, err)
	return inv
}

// openForBidding drives a fresh RFQ to BIDDING_OPEN with the given suppliers
// invited and accepted.
func (e *engine) openForBidding(t *testing.T, deadline *time.Time, suppliers ...string) *domain.RFQ {
	t.Helper()
	rfq := e.createRFQ(t, deadline)
	_, err := e.lifecycle.Publish(context.Background(), rfq.ID, "buyer-1")
	require.NoError(t, err)
	for _, supplier := range suppliers {
		e.inviteAndAccept(t, rfq, supplier)
	}
	rfq, err = e.lifecycle.OpenBidding(context.Background(), rfq.ID, "buyer-1")
	require.NoError(t, err)
	return rfq
}

// submitTotal submits a full-coverage quote priced to reach the given total
// exactly. All value sits on the 50-unit line, so total must be a multiple
// of 50.
func (e *engine) submitTotal(t *testing.T, rfq *domain.RFQ, supplier string, total int64) *domain.Quote {
	t.Helper()
	lines := totalLines(t, rfq, total)
	quote, err := e.quotes.Submit(context.Background(), rfq.ID, supplier, lines, nil)
	require.NoError(t, err)
	require.True(t, quote.TotalAmount.Equal(decimal.NewFromInt(total)))
	return quote
}

func totalLines(t *testing.T, rfq *domain.RFQ, total int64) []domain.QuoteLineInput {
	t.Helper()
	require.Zero(t, total%50, "fixture totals must be multiples of 50")
	lines := make([]domain.QuoteLineInput, 0, len(rfq.LineItems))
	for _, item := range rfq.LineItems {
		unit := decimal.Zero
		if item.Quantity.Equal(decimal.NewFromInt(50)) {
			unit = decimal.NewFromInt(total / 50)
		}
		lines = append(lines, domain.QuoteLineInput{
			RFQLineItemID: item.ID,
			UnitPrice:     unit,
			Quantity:      item.Quantity,
		})
	}
	return lines
}

func (e *engine) reloadRFQ(t *testing.T, rfq *domain.RFQ) *domain.RFQ {
	t.Helper()
	got, err := e.store.GetRFQ(context.Background(), rfq.ID)
	require.NoError(t, err)
	return got
}

func (e *engine) eventsOfKind(t *testing.T, kind domain.EventKind) []domain.Event {
	t.Helper()
	pending, err := e.store.PendingEvents(context.Background(), 0)
	require.NoError(t, err)
	var out []domain.Event
	for _, ev := range pending {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
