package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

// AwardCoordinator resolves the award transition: it validates the winning
// quote, locks out every competing active quote, and finalizes the RFQ in
// one transaction.
type AwardCoordinator struct {
	store      ports.Store
	clock      ports.Clock
	authorizer ports.Authorizer
	scores     ports.ScoreProvider
	logger     *slog.Logger
}

// AwardOption customizes the coordinator.
type AwardOption func(*AwardCoordinator)

// WithScoreProvider installs the optional TCO scoring collaborator.
func WithScoreProvider(scores ports.ScoreProvider) AwardOption {
	return func(c *AwardCoordinator) { c.scores = scores }
}

// WithAwardAuthorizer installs the environment's authorization hook.
func WithAwardAuthorizer(authorizer ports.Authorizer) AwardOption {
	return func(c *AwardCoordinator) { c.authorizer = authorizer }
}

// WithAwardLogger sets the structured logger.
func WithAwardLogger(logger *slog.Logger) AwardOption {
	return func(c *AwardCoordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewAwardCoordinator wires the coordinator over a transactional store.
func NewAwardCoordinator(store ports.Store, clock ports.Clock, opts ...AwardOption) *AwardCoordinator {
	if clock == nil {
		clock = SystemClock()
	}
	c := &AwardCoordinator{store: store, clock: clock, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

var _ ports.AwardService = (*AwardCoordinator)(nil)

// Award finalizes the RFQ in favor of one quote thread. Awarding a
// non-top-ranked quote requires an explicit reason; the audit row records
// whether the award followed price rank either way.
func (c *AwardCoordinator) Award(ctx context.Context, input ports.AwardInput) (*domain.RFQ, error) {
	var out *domain.RFQ
	err := c.store.Transact(ctx, func(tx ports.Repository) error {
		rfq, err := tx.GetRFQForUpdate(ctx, input.RFQID)
		if err != nil {
			return mapRepoErr(err, "rfq")
		}
		if c.authorizer != nil {
			if err := c.authorizer.Authorize(ctx, input.Actor, rfq, domain.TransitionAward); err != nil {
				return notAuthorized(err.Error())
			}
		}
		if rfq.Status == domain.StatusAwarded {
			return conflict("rfq is already awarded")
		}
		if rfq.Status != domain.StatusEvaluation {
			return invalidTransition("cannot award: rfq is not in evaluation")
		}
		winner, err := tx.GetThreadHeadForUpdate(ctx, input.ThreadID)
		if err != nil {
			return mapRepoErr(err, "quote thread")
		}
		if winner.RFQID != rfq.ID {
			return notFound("quote thread")
		}
		if !winner.Status.Active() {
			return validationFailed("quote is not awardable", domain.ErrQuoteNotAwardable)
		}

		reason, err := c.awardReason(ctx, rfq, winner, input.Reason)
		if err != nil {
			return err
		}

		active, err := tx.ListActiveQuotes(ctx, rfq.ID)
		if err != nil {
			return err
		}
		for _, q := range active {
			if q.ThreadID == winner.ThreadID {
				continue
			}
			q.Status = domain.QuoteRejected
			if err := tx.UpdateQuote(ctx, q); err != nil {
				return err
			}
		}
		winner.Status = domain.QuoteAwarded
		if err := tx.UpdateQuote(ctx, winner); err != nil {
			return err
		}

		from := rfq.Status
		rfq.Status = domain.StatusAwarded
		rfq.AwardedQuoteID = &winner.ID
		rfq.UpdatedAt = c.clock.Now()
		if err := tx.UpdateRFQ(ctx, rfq); err != nil {
			return err
		}
		record := domain.NewTransitionRecord(rfq.ID, from, domain.StatusAwarded, domain.TransitionAward, domain.TriggerUser, input.Actor, reason)
		if err := tx.AppendTransition(ctx, record); err != nil {
			return err
		}
		ev := domain.NewEvent(domain.EventRFQAwarded, rfq.ID, rfq.Status)
		ev.SupplierOrgID = winner.SupplierOrgID
		ev.Amount = &winner.TotalAmount
		ev.Reason = reason
		if err := tx.AppendEvents(ctx, ev); err != nil {
			return err
		}
		out = rfq
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("rfq awarded",
		slog.String("rfq_id", input.RFQID.String()),
		slog.String("thread_id", input.ThreadID.String()))
	return out, nil
}

// awardReason builds the mandatory audit reason. Price rank stays the
// audit-of-record even when a scoring hint justified the deviation.
func (c *AwardCoordinator) awardReason(ctx context.Context, rfq *domain.RFQ, winner *domain.Quote, supplied string) (string, error) {
	topRanked := winner.PriceRank != nil && *winner.PriceRank == 1
	if topRanked {
		if supplied != "" {
			return fmt.Sprintf("awarded top-ranked quote: %s", supplied), nil
		}
		return "awarded top-ranked quote", nil
	}
	if strings.TrimSpace(supplied) == "" {
		return "", validationFailed("a reason is required when awarding a non-top-ranked quote", nil)
	}
	rank := "unranked"
	if winner.PriceRank != nil {
		rank = fmt.Sprintf("rank %d", *winner.PriceRank)
	}
	reason := fmt.Sprintf("deviated from price rank (%s): %s", rank, supplied)
	if c.scores != nil {
		if scores, err := c.scores.Scores(ctx, rfq.ID); err == nil {
			if score, ok := scores[winner.ThreadID]; ok {
				reason = fmt.Sprintf("%s (tco score %.2f)", reason, score)
			}
		}
	}
	return reason, nil
}
