package application

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
	apperrors "github.com/harborline/rfq-engine/internal/shared/errors"
)

func TestSubmit_RequiresAcceptedInvitation(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq := e.openForBidding(t, nil, "sup-a")

	// sup-b was never invited.
	_, err := e.quotes.Submit(context.Background(), rfq.ID, "sup-b", totalLines(t, rfq, 500), nil)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
	require.Equal(t, apperrors.CodeNotAuthorized, apperrors.CodeOf(err))

	// A pending (unaccepted) invitation is not enough.
	_, err = e.invitations.Invite(context.Background(), rfq.ID, "sup-c", "buyer-1")
	require.NoError(t, err)
	_, err = e.quotes.Submit(context.Background(), rfq.ID, "sup-c", totalLines(t, rfq, 500), nil)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestSubmit_OpenMarketplaceSkipsInvitationCheck(t *testing.T) {
	e := newEngine(t, Config{RequireInvitations: false, SweepBatchSize: 10})
	rfq := e.openForBidding(t, nil)

	quote, err := e.quotes.Submit(context.Background(), rfq.ID, "sup-anyone", totalLines(t, rfq, 500), nil)
	require.NoError(t, err)
	require.Equal(t, 1, quote.Version)
}

func TestSubmit_RejectedOutsideBiddingOpen(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq := e.createRFQ(t, nil)
	_, err := e.lifecycle.Publish(context.Background(), rfq.ID, "buyer-1")
	require.NoError(t, err)
	e.inviteAndAccept(t, rfq, "sup-a")

	_, err = e.quotes.Submit(context.Background(), rfq.ID, "sup-a", totalLines(t, rfq, 500), nil)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSubmit_SecondActiveQuoteBlocked(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq := e.openForBidding(t, nil, "sup-a")
	e.submitTotal(t, rfq, "sup-a", 500)

	_, err := e.quotes.Submit(context.Background(), rfq.ID, "sup-a", totalLines(t, rfq, 450), nil)
	require.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))
}

func TestSubmit_PartialCoverageRejected(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq := e.openForBidding(t, nil, "sup-a")
	require.False(t, rfq.AllowPartialQuotes)
	require.False(t, rfq.RequireAllItems)

	// Pricing only the first of two line items, at its full quantity.
	lines := []domain.QuoteLineInput{{
		RFQLineItemID: rfq.LineItems[0].ID,
		UnitPrice:     decimal.NewFromInt(5),
		Quantity:      rfq.LineItems[0].Quantity,
	}}
	_, err := e.quotes.Submit(context.Background(), rfq.ID, "sup-a", lines, nil)
	require.ErrorIs(t, err, domain.ErrQuoteMissingLineItems)
	require.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))
}

func TestRevise_VersionsIncreaseByOne(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq := e.openForBidding(t, nil, "sup-a")
	v1 := e.submitTotal(t, rfq, "sup-a", 500)

	v2, err := e.quotes.Revise(context.Background(), v1.ThreadID, "sup-a", totalLines(t, rfq, 450), nil)
	require.NoError(t, err)
	require.Equal(t, 2, v2.Version)
	require.Equal(t, v1.ThreadID, v2.ThreadID)
	require.Equal(t, domain.QuoteSubmitted, v2.Status)

	v3, err := e.quotes.Revise(context.Background(), v1.ThreadID, "sup-a", totalLines(t, rfq, 400), nil)
	require.NoError(t, err)
	require.Equal(t, 3, v3.Version)

	// Prior versions are retained for audit, marked REVISED.
	thread, err := e.quotes.GetThread(context.Background(), v1.ThreadID)
	require.NoError(t, err)
	require.Len(t, thread, 3)
	require.Equal(t, domain.QuoteRevised, thread[0].Status)
	require.Equal(t, domain.QuoteRevised, thread[1].Status)
	require.Equal(t, domain.QuoteSubmitted, thread[2].Status)

	// Only the head counts as active.
	active, err := e.store.ListActiveQuotes(context.Background(), rfq.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, 3, active[0].Version)
}

func TestRevise_RequiresOwnerAndPolicy(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq := e.openForBidding(t, nil, "sup-a")
	v1 := e.submitTotal(t, rfq, "sup-a", 500)

	_, err := e.quotes.Revise(context.Background(), v1.ThreadID, "sup-b", totalLines(t, rfq, 450), nil)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestRevise_BlockedWhenRevisionDisallowed(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq := e.createRFQ(t, nil)

	noRevision := false
	_, err := e.lifecycle.UpdateDraft(context.Background(), ports.UpdateDraftInput{
		RFQID:         rfq.ID,
		AllowRevision: &noRevision,
	})
	require.NoError(t, err)
	_, err = e.lifecycle.Publish(context.Background(), rfq.ID, "buyer-1")
	require.NoError(t, err)
	e.inviteAndAccept(t, rfq, "sup-a")
	_, err = e.lifecycle.OpenBidding(context.Background(), rfq.ID, "buyer-1")
	require.NoError(t, err)

	v1 := e.submitTotal(t, rfq, "sup-a", 500)
	_, err = e.quotes.Revise(context.Background(), v1.ThreadID, "sup-a", totalLines(t, rfq, 450), nil)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestWithdraw_KillsThreadForGood(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq := e.openForBidding(t, nil, "sup-a")
	v1 := e.submitTotal(t, rfq, "sup-a", 500)

	withdrawn, err := e.quotes.Withdraw(context.Background(), v1.ThreadID, "sup-a")
	require.NoError(t, err)
	require.Equal(t, domain.QuoteWithdrawn, withdrawn.Status)

	// A withdrawn thread cannot be revised back to life.
	_, err = e.quotes.Revise(context.Background(), v1.ThreadID, "sup-a", totalLines(t, rfq, 450), nil)
	require.ErrorIs(t, err, domain.ErrThreadWithdrawn)

	// The supplier starts over with a fresh thread instead.
	fresh := e.submitTotal(t, rfq, "sup-a", 400)
	require.NotEqual(t, v1.ThreadID, fresh.ThreadID)
	require.Equal(t, 1, fresh.Version)

	require.Len(t, e.eventsOfKind(t, domain.EventQuoteWithdrawn), 1)
}

func TestRankedQuotes_HiddenWhileBiddingOpen(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq := e.openForBidding(t, nil, "sup-a")
	e.submitTotal(t, rfq, "sup-a", 500)

	_, err := e.quotes.RankedQuotes(context.Background(), rfq.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestClose_RanksOnlyHeadVersions(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq := e.openForBidding(t, nil, "sup-a", "sup-b")
	v1 := e.submitTotal(t, rfq, "sup-a", 500)
	e.clock.Advance(time.Minute)
	e.submitTotal(t, rfq, "sup-b", 450)
	e.clock.Advance(time.Minute)
	// sup-a undercuts with a revision; only version 2 may be ranked.
	_, err := e.quotes.Revise(context.Background(), v1.ThreadID, "sup-a", totalLines(t, rfq, 400), nil)
	require.NoError(t, err)

	_, err = e.lifecycle.CloseBidding(context.Background(), rfq.ID, "buyer-1", domain.TriggerUser)
	require.NoError(t, err)

	ranked, err := e.quotes.RankedQuotes(context.Background(), rfq.ID)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	require.Equal(t, "sup-a", ranked[0].SupplierOrgID)
	require.Equal(t, 2, ranked[0].Version)
	require.True(t, ranked[0].TotalAmount.Equal(decimal.NewFromInt(400)))
	require.Equal(t, "sup-b", ranked[1].SupplierOrgID)
}
