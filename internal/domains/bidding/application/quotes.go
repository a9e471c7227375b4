package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

// QuoteService manages quote threads. Submission locks only the quote
// thread, not the whole RFQ, so many suppliers can bid concurrently while
// revisions from the same supplier serialize.
type QuoteService struct {
	store  ports.Store
	clock  ports.Clock
	logger *slog.Logger
	cfg    Config
}

// NewQuoteService wires the quote manager.
func NewQuoteService(store ports.Store, cfg Config, clock ports.Clock, logger *slog.Logger) *QuoteService {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QuoteService{store: store, clock: clock, logger: logger, cfg: cfg}
}

var _ ports.QuoteService = (*QuoteService)(nil)

// Submit opens a new quote thread at version 1. The supplier needs an
// accepted invitation unless the deployment runs in open-marketplace mode.
func (s *QuoteService) Submit(ctx context.Context, rfqID uuid.UUID, supplierOrgID string, lines []domain.QuoteLineInput, validUntil *time.Time) (*domain.Quote, error) {
	var out *domain.Quote
	err := s.store.Transact(ctx, func(tx ports.Repository) error {
		rfq, err := tx.GetRFQ(ctx, rfqID)
		if err != nil {
			return mapRepoErr(err, "rfq")
		}
		if rfq.Status != domain.StatusBiddingOpen {
			return invalidTransition("cannot submit quote: bidding is not open")
		}
		if s.cfg.RequireInvitations {
			inv, err := tx.FindInvitation(ctx, rfqID, supplierOrgID)
			if err != nil || inv.Status != domain.InvitationAccepted {
				return notAuthorized("supplier has no accepted invitation")
			}
		}
		if existing, err := tx.FindActiveQuoteBySupplier(ctx, rfqID, supplierOrgID); err == nil && existing != nil {
			return validationFailed("supplier already has an active quote; revise it instead", nil)
		}
		quote, err := domain.NewQuote(rfq, supplierOrgID, uuid.New(), 1, lines, validUntil)
		if err != nil {
			return validationFailed(err.Error(), err)
		}
		quote.SubmittedAt = s.clock.Now()
		if err := tx.CreateQuote(ctx, quote); err != nil {
			return err
		}
		ev := domain.NewEvent(domain.EventQuoteSubmitted, rfqID, rfq.Status)
		ev.SupplierOrgID = supplierOrgID
		ev.Amount = &quote.TotalAmount
		if err := tx.AppendEvents(ctx, ev); err != nil {
			return err
		}
		out = quote
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("quote submitted",
		slog.String("rfq_id", rfqID.String()),
		slog.String("thread_id", out.ThreadID.String()),
		slog.String("supplier_org_id", supplierOrgID))
	return out, nil
}

// Revise atomically closes the prior active version and appends the next
// one under the same thread. Prior versions are retained for audit.
func (s *QuoteService) Revise(ctx context.Context, threadID uuid.UUID, supplierOrgID string, lines []domain.QuoteLineInput, validUntil *time.Time) (*domain.Quote, error) {
	var out *domain.Quote
	err := s.store.Transact(ctx, func(tx ports.Repository) error {
		head, err := tx.GetThreadHeadForUpdate(ctx, threadID)
		if err != nil {
			return mapRepoErr(err, "quote thread")
		}
		if head.SupplierOrgID != supplierOrgID {
			return notAuthorized("only the owning supplier may revise this quote")
		}
		rfq, err := tx.GetRFQ(ctx, head.RFQID)
		if err != nil {
			return mapRepoErr(err, "rfq")
		}
		if rfq.Status != domain.StatusBiddingOpen {
			return invalidTransition("cannot revise quote: bidding is not open")
		}
		if !rfq.AllowRevision {
			return invalidTransition("cannot revise quote: rfq does not allow revisions")
		}
		if head.Status == domain.QuoteWithdrawn {
			return validationFailed("thread was withdrawn", domain.ErrThreadWithdrawn)
		}
		if err := head.MarkRevised(); err != nil {
			return validationFailed(err.Error(), err)
		}
		next, err := domain.NewQuote(rfq, supplierOrgID, threadID, head.Version+1, lines, validUntil)
		if err != nil {
			return validationFailed(err.Error(), err)
		}
		next.SubmittedAt = s.clock.Now()
		if err := tx.UpdateQuote(ctx, head); err != nil {
			return err
		}
		if err := tx.CreateQuote(ctx, next); err != nil {
			return err
		}
		ev := domain.NewEvent(domain.EventQuoteRevised, rfq.ID, rfq.Status)
		ev.SupplierOrgID = supplierOrgID
		ev.Amount = &next.TotalAmount
		if err := tx.AppendEvents(ctx, ev); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("quote revised",
		slog.String("thread_id", threadID.String()),
		slog.Int("version", out.Version))
	return out, nil
}

// Withdraw takes the thread's active version out of contention. The thread
// is dead afterwards; a new bid requires a fresh Submit.
func (s *QuoteService) Withdraw(ctx context.Context, threadID uuid.UUID, supplierOrgID string) (*domain.Quote, error) {
	var out *domain.Quote
	err := s.store.Transact(ctx, func(tx ports.Repository) error {
		head, err := tx.GetThreadHeadForUpdate(ctx, threadID)
		if err != nil {
			return mapRepoErr(err, "quote thread")
		}
		if head.SupplierOrgID != supplierOrgID {
			return notAuthorized("only the owning supplier may withdraw this quote")
		}
		rfq, err := tx.GetRFQ(ctx, head.RFQID)
		if err != nil {
			return mapRepoErr(err, "rfq")
		}
		if rfq.Status != domain.StatusBiddingOpen {
			return invalidTransition("cannot withdraw quote: bidding is not open")
		}
		if err := head.Withdraw(); err != nil {
			return validationFailed(err.Error(), err)
		}
		if err := tx.UpdateQuote(ctx, head); err != nil {
			return err
		}
		ev := domain.NewEvent(domain.EventQuoteWithdrawn, rfq.ID, rfq.Status)
		ev.SupplierOrgID = supplierOrgID
		if err := tx.AppendEvents(ctx, ev); err != nil {
			return err
		}
		out = head
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("quote withdrawn", slog.String("thread_id", threadID.String()))
	return out, nil
}

// GetThread returns every version of a quote thread, oldest first.
func (s *QuoteService) GetThread(ctx context.Context, threadID uuid.UUID) ([]*domain.Quote, error) {
	versions, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, mapRepoErr(err, "quote thread")
	}
	if len(versions) == 0 {
		return nil, notFound("quote thread")
	}
	return versions, nil
}

// RankedQuotes returns the price-ranked active quote list. Ranks are hidden
// until bidding closes so no participant observes competitive information
// early.
func (s *QuoteService) RankedQuotes(ctx context.Context, rfqID uuid.UUID) ([]*domain.Quote, error) {
	rfq, err := s.store.GetRFQ(ctx, rfqID)
	if err != nil {
		return nil, mapRepoErr(err, "rfq")
	}
	switch rfq.Status {
	case domain.StatusBiddingClosed, domain.StatusEvaluation, domain.StatusAwarded, domain.StatusCompleted:
	default:
		return nil, invalidTransition("quote ranking is not visible until bidding closes")
	}
	return s.store.ListRankedQuotes(ctx, rfqID)
}
