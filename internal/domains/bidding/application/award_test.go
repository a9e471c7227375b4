package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
	apperrors "github.com/harborline/rfq-engine/internal/shared/errors"
)

// evaluationFixture drives an RFQ to EVALUATION with two ranked quotes:
// sup-b at 450 (rank 1) and sup-a at 500 (rank 2).
func evaluationFixture(t *testing.T, e *engine) (*domain.RFQ, *domain.Quote, *domain.Quote) {
	t.Helper()
	rfq := e.openForBidding(t, nil, "sup-a", "sup-b")
	quoteA := e.submitTotal(t, rfq, "sup-a", 500)
	e.clock.Advance(time.Minute)
	quoteB := e.submitTotal(t, rfq, "sup-b", 450)
	_, err := e.lifecycle.CloseBidding(context.Background(), rfq.ID, "buyer-1", domain.TriggerUser)
	require.NoError(t, err)
	_, err = e.lifecycle.StartEvaluation(context.Background(), rfq.ID, "buyer-1")
	require.NoError(t, err)
	return rfq, quoteA, quoteB
}

func TestAward_Exclusivity(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq, quoteA, quoteB := evaluationFixture(t, e)

	awarded, err := e.award.Award(context.Background(), ports.AwardInput{
		RFQID:    rfq.ID,
		ThreadID: quoteB.ThreadID,
		Actor:    "buyer-1",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusAwarded, awarded.Status)

	threadB, err := e.quotes.GetThread(context.Background(), quoteB.ThreadID)
	require.NoError(t, err)
	require.Equal(t, domain.QuoteAwarded, threadB[len(threadB)-1].Status)
	require.Equal(t, threadB[len(threadB)-1].ID, *awarded.AwardedQuoteID)

	threadA, err := e.quotes.GetThread(context.Background(), quoteA.ThreadID)
	require.NoError(t, err)
	require.Equal(t, domain.QuoteRejected, threadA[len(threadA)-1].Status)

	active, err := e.store.ListActiveQuotes(context.Background(), rfq.ID)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestAward_SecondAwardIsConflict(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq, quoteA, quoteB := evaluationFixture(t, e)

	_, err := e.award.Award(context.Background(), ports.AwardInput{RFQID: rfq.ID, ThreadID: quoteB.ThreadID, Actor: "buyer-1"})
	require.NoError(t, err)

	_, err = e.award.Award(context.Background(), ports.AwardInput{RFQID: rfq.ID, ThreadID: quoteA.ThreadID, Actor: "buyer-1", Reason: "changed mind"})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestAward_RequiresEvaluationState(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq := e.openForBidding(t, nil, "sup-a")
	quote := e.submitTotal(t, rfq, "sup-a", 500)

	_, err := e.award.Award(context.Background(), ports.AwardInput{RFQID: rfq.ID, ThreadID: quote.ThreadID, Actor: "buyer-1"})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestAward_NonTopRankNeedsReason(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq, quoteA, _ := evaluationFixture(t, e)

	// sup-a holds rank 2; awarding it silently is rejected.
	_, err := e.award.Award(context.Background(), ports.AwardInput{RFQID: rfq.ID, ThreadID: quoteA.ThreadID, Actor: "buyer-1"})
	require.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))

	awarded, err := e.award.Award(context.Background(), ports.AwardInput{
		RFQID:    rfq.ID,
		ThreadID: quoteA.ThreadID,
		Actor:    "buyer-1",
		Reason:   "lower total cost of ownership",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusAwarded, awarded.Status)

	records, err := e.lifecycle.ListTransitions(context.Background(), rfq.ID)
	require.NoError(t, err)
	last := records[len(records)-1]
	require.Equal(t, domain.TransitionAward, last.Type)
	require.Contains(t, last.Reason, "deviated from price rank (rank 2)")
	require.Contains(t, last.Reason, "lower total cost of ownership")
}

type fixedScores struct {
	scores map[uuid.UUID]float64
}

func (f fixedScores) Scores(_ context.Context, _ uuid.UUID) (map[uuid.UUID]float64, error) {
	return f.scores, nil
}

func TestAward_ScoreHintRecordedInReason(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq, quoteA, _ := evaluationFixture(t, e)

	award := NewAwardCoordinator(e.store, e.clock,
		WithAwardLogger(quietLogger()),
		WithScoreProvider(fixedScores{scores: map[uuid.UUID]float64{quoteA.ThreadID: 0.91}}),
	)
	_, err := award.Award(context.Background(), ports.AwardInput{
		RFQID:    rfq.ID,
		ThreadID: quoteA.ThreadID,
		Actor:    "buyer-1",
		Reason:   "better lifecycle cost",
	})
	require.NoError(t, err)

	records, err := e.lifecycle.ListTransitions(context.Background(), rfq.ID)
	require.NoError(t, err)
	require.Contains(t, records[len(records)-1].Reason, "tco score 0.91")
}

func TestAward_WithdrawnQuoteNotAwardable(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq := e.openForBidding(t, nil, "sup-a", "sup-b")
	quoteA := e.submitTotal(t, rfq, "sup-a", 500)
	e.clock.Advance(time.Minute)
	e.submitTotal(t, rfq, "sup-b", 450)

	_, err := e.quotes.Withdraw(context.Background(), quoteA.ThreadID, "sup-a")
	require.NoError(t, err)
	_, err = e.lifecycle.CloseBidding(context.Background(), rfq.ID, "buyer-1", domain.TriggerUser)
	require.NoError(t, err)
	_, err = e.lifecycle.StartEvaluation(context.Background(), rfq.ID, "buyer-1")
	require.NoError(t, err)

	_, err = e.award.Award(context.Background(), ports.AwardInput{
		RFQID:    rfq.ID,
		ThreadID: quoteA.ThreadID,
		Actor:    "buyer-1",
		Reason:   "still the preferred supplier",
	})
	require.ErrorIs(t, err, domain.ErrQuoteNotAwardable)
}

func TestAward_UnknownThreadOnAnotherRFQ(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq, _, _ := evaluationFixture(t, e)

	_, err := e.award.Award(context.Background(), ports.AwardInput{
		RFQID:    rfq.ID,
		ThreadID: uuid.New(),
		Actor:    "buyer-1",
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}
