package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

// LifecycleService orchestrates RFQ state transitions. It is the single
// entry point for lifecycle changes; every transition runs inside one
// transaction under the RFQ row lock, writes exactly one audit row, and
// stages its events in the same transaction.
type LifecycleService struct {
	store      ports.Store
	clock      ports.Clock
	authorizer ports.Authorizer
	logger     *slog.Logger
	cfg        Config
}

// LifecycleOption customizes the service.
type LifecycleOption func(*LifecycleService)

// WithClock overrides the wall clock, mainly for tests and the sweeper.
func WithClock(clock ports.Clock) LifecycleOption {
	return func(s *LifecycleService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAuthorizer installs the environment's authorization hook.
func WithAuthorizer(authorizer ports.Authorizer) LifecycleOption {
	return func(s *LifecycleService) { s.authorizer = authorizer }
}

// WithLifecycleLogger sets the structured logger.
func WithLifecycleLogger(logger *slog.Logger) LifecycleOption {
	return func(s *LifecycleService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewLifecycleService wires the lifecycle service over a transactional store.
func NewLifecycleService(store ports.Store, cfg Config, opts ...LifecycleOption) *LifecycleService {
	s := &LifecycleService{
		store:  store,
		clock:  SystemClock(),
		logger: slog.Default(),
		cfg:    cfg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var _ ports.LifecycleService = (*LifecycleService)(nil)

// CreateRFQ persists a new draft.
func (s *LifecycleService) CreateRFQ(ctx context.Context, input ports.CreateRFQInput) (*domain.RFQ, error) {
	rfq, err := domain.NewRFQ(input.BuyerOrgID, input.Reference, input.Title, input.Currency)
	if err != nil {
		return nil, validationFailed(err.Error(), err)
	}
	rfq.Description = input.Description
	rfq.DeliveryPort = input.DeliveryPort
	rfq.DeliveryDate = input.DeliveryDate
	rfq.BiddingDeadline = input.BiddingDeadline
	rfq.AllowPartialQuotes = input.AllowPartialQuotes
	rfq.AllowRevision = input.AllowRevision
	rfq.RequireAllItems = input.RequireAllItems
	if err := rfq.ReplaceLineItems(input.LineItems); err != nil {
		return nil, validationFailed(err.Error(), err)
	}
	if err := s.store.Transact(ctx, func(tx ports.Repository) error {
		return tx.CreateRFQ(ctx, rfq)
	}); err != nil {
		return nil, err
	}
	return rfq, nil
}

// UpdateDraft mutates draft-only fields. Rejected once the RFQ has left DRAFT.
func (s *LifecycleService) UpdateDraft(ctx context.Context, input ports.UpdateDraftInput) (*domain.RFQ, error) {
	var out *domain.RFQ
	err := s.store.Transact(ctx, func(tx ports.Repository) error {
		rfq, err := tx.GetRFQForUpdate(ctx, input.RFQID)
		if err != nil {
			return mapRepoErr(err, "rfq")
		}
		if rfq.Status != domain.StatusDraft {
			return invalidTransition("only draft rfqs can be edited")
		}
		if input.Title != nil {
			rfq.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			rfq.Description = *input.Description
		}
		if input.DeliveryPort != nil {
			rfq.DeliveryPort = *input.DeliveryPort
		}
		if input.DeliveryDate != nil {
			rfq.DeliveryDate = input.DeliveryDate
		}
		if input.BiddingDeadline != nil {
			rfq.BiddingDeadline = input.BiddingDeadline
		}
		if input.AllowPartialQuotes != nil {
			rfq.AllowPartialQuotes = *input.AllowPartialQuotes
		}
		if input.AllowRevision != nil {
			rfq.AllowRevision = *input.AllowRevision
		}
		if input.RequireAllItems != nil {
			rfq.RequireAllItems = *input.RequireAllItems
		}
		if input.LineItems != nil {
			if err := rfq.ReplaceLineItems(input.LineItems); err != nil {
				return validationFailed(err.Error(), err)
			}
		}
		if err := rfq.Validate(); err != nil {
			return validationFailed(err.Error(), err)
		}
		rfq.UpdatedAt = s.clock.Now()
		if err := tx.UpdateRFQ(ctx, rfq); err != nil {
			return err
		}
		out = rfq
		return nil
	})
	return out, err
}

// DeleteDraft hard-deletes an RFQ. Permitted only while DRAFT.
func (s *LifecycleService) DeleteDraft(ctx context.Context, rfqID uuid.UUID, actor string) error {
	return s.store.Transact(ctx, func(tx ports.Repository) error {
		rfq, err := tx.GetRFQForUpdate(ctx, rfqID)
		if err != nil {
			return mapRepoErr(err, "rfq")
		}
		if err := s.authorize(ctx, actor, rfq, domain.TransitionCancel); err != nil {
			return err
		}
		if !rfq.Deletable() {
			return invalidTransition("only draft rfqs can be deleted")
		}
		return tx.DeleteRFQ(ctx, rfqID)
	})
}

// Publish moves DRAFT to PUBLISHED, freezing the line-item set.
func (s *LifecycleService) Publish(ctx context.Context, rfqID uuid.UUID, actor string) (*domain.RFQ, error) {
	return s.transition(ctx, transitionRequest{
		rfqID:   rfqID,
		kind:    domain.TransitionPublish,
		trigger: domain.TriggerUser,
		actor:   actor,
	})
}

// OpenBidding moves PUBLISHED to BIDDING_OPEN and stamps bidding_start.
func (s *LifecycleService) OpenBidding(ctx context.Context, rfqID uuid.UUID, actor string) (*domain.RFQ, error) {
	return s.transition(ctx, transitionRequest{
		rfqID:   rfqID,
		kind:    domain.TransitionOpenBidding,
		trigger: domain.TriggerUser,
		actor:   actor,
	})
}

// CloseBidding moves BIDDING_OPEN to BIDDING_CLOSED, expires pending
// invitations, and computes price ranks. The scheduler invokes the same
// path with TriggerScheduler; a close that lost the race surfaces as a
// conflict the sweeper treats as benign.
func (s *LifecycleService) CloseBidding(ctx context.Context, rfqID uuid.UUID, actor string, trigger domain.TriggerSource) (*domain.RFQ, error) {
	kind := domain.TransitionCloseBidding
	if trigger == domain.TriggerScheduler {
		kind = domain.TransitionAutoClose
	}
	return s.transition(ctx, transitionRequest{
		rfqID:   rfqID,
		kind:    kind,
		trigger: trigger,
		actor:   actor,
	})
}

// StartEvaluation moves BIDDING_CLOSED to EVALUATION.
func (s *LifecycleService) StartEvaluation(ctx context.Context, rfqID uuid.UUID, actor string) (*domain.RFQ, error) {
	return s.transition(ctx, transitionRequest{
		rfqID:   rfqID,
		kind:    domain.TransitionStartEvaluation,
		trigger: domain.TriggerUser,
		actor:   actor,
	})
}

// Complete moves AWARDED to COMPLETED once the caller confirms fulfilment.
func (s *LifecycleService) Complete(ctx context.Context, rfqID uuid.UUID, actor string, fulfilmentConfirmed bool) (*domain.RFQ, error) {
	return s.transition(ctx, transitionRequest{
		rfqID:     rfqID,
		kind:      domain.TransitionComplete,
		trigger:   domain.TriggerUser,
		actor:     actor,
		confirmed: fulfilmentConfirmed,
	})
}

// Cancel moves any non-terminal state to CANCELLED and rejects all active
// quotes. A non-empty reason is mandatory.
func (s *LifecycleService) Cancel(ctx context.Context, rfqID uuid.UUID, actor, reason string) (*domain.RFQ, error) {
	return s.transition(ctx, transitionRequest{
		rfqID:   rfqID,
		kind:    domain.TransitionCancel,
		trigger: domain.TriggerUser,
		actor:   actor,
		reason:  reason,
	})
}

// GetRFQ loads the RFQ with its line items.
func (s *LifecycleService) GetRFQ(ctx context.Context, rfqID uuid.UUID) (*domain.RFQ, error) {
	rfq, err := s.store.GetRFQ(ctx, rfqID)
	if err != nil {
		return nil, mapRepoErr(err, "rfq")
	}
	return rfq, nil
}

// ListTransitions returns the ordered audit trail.
func (s *LifecycleService) ListTransitions(ctx context.Context, rfqID uuid.UUID) ([]*domain.TransitionRecord, error) {
	if _, err := s.store.GetRFQ(ctx, rfqID); err != nil {
		return nil, mapRepoErr(err, "rfq")
	}
	return s.store.ListTransitions(ctx, rfqID)
}

type transitionRequest struct {
	rfqID     uuid.UUID
	kind      domain.TransitionType
	trigger   domain.TriggerSource
	actor     string
	reason    string
	confirmed bool
}

// targetOf maps each transition type to its destination, used to recognize
// the benign "someone else already moved it there" race.
func targetOf(kind domain.TransitionType) domain.Status {
	switch kind {
	case domain.TransitionPublish:
		return domain.StatusPublished
	case domain.TransitionOpenBidding:
		return domain.StatusBiddingOpen
	case domain.TransitionCloseBidding, domain.TransitionAutoClose:
		return domain.StatusBiddingClosed
	case domain.TransitionStartEvaluation:
		return domain.StatusEvaluation
	case domain.TransitionAward:
		return domain.StatusAwarded
	case domain.TransitionComplete:
		return domain.StatusCompleted
	case domain.TransitionCancel:
		return domain.StatusCancelled
	}
	return ""
}

func (s *LifecycleService) transition(ctx context.Context, req transitionRequest) (*domain.RFQ, error) {
	var out *domain.RFQ
	err := s.store.Transact(ctx, func(tx ports.Repository) error {
		rfq, err := tx.GetRFQForUpdate(ctx, req.rfqID)
		if err != nil {
			return mapRepoErr(err, "rfq")
		}
		if err := s.authorize(ctx, req.actor, rfq, req.kind); err != nil {
			return err
		}
		gctx, err := s.guardContext(ctx, tx, rfq, req)
		if err != nil {
			return err
		}
		decision := domain.Decide(rfq.Status, req.kind, gctx)
		if !decision.Allowed {
			if rfq.Status == targetOf(req.kind) {
				return conflict(fmt.Sprintf("rfq is already %s", rfq.Status))
			}
			return invalidTransition(decision.Guard)
		}

		events, reason, err := s.applyEffects(ctx, tx, rfq, req, decision.To)
		if err != nil {
			return err
		}

		from := rfq.Status
		rfq.Status = decision.To
		rfq.UpdatedAt = s.clock.Now()
		if err := rfq.Validate(); err != nil {
			return validationFailed(err.Error(), err)
		}
		if err := tx.UpdateRFQ(ctx, rfq); err != nil {
			return err
		}
		record := domain.NewTransitionRecord(rfq.ID, from, decision.To, req.kind, req.trigger, req.actor, reason)
		if err := tx.AppendTransition(ctx, record); err != nil {
			return err
		}
		if len(events) > 0 {
			if err := tx.AppendEvents(ctx, events...); err != nil {
				return err
			}
		}
		out = rfq
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("rfq transition accepted",
		slog.String("rfq_id", req.rfqID.String()),
		slog.String("transition", string(req.kind)),
		slog.String("to", string(out.Status)),
		slog.String("trigger", string(req.trigger)))
	return out, nil
}

func (s *LifecycleService) guardContext(ctx context.Context, tx ports.Repository, rfq *domain.RFQ, req transitionRequest) (domain.GuardContext, error) {
	gctx := domain.GuardContext{
		LineItemCount:        len(rfq.LineItems),
		TitleSet:             strings.TrimSpace(rfq.Title) != "",
		RequireInvitations:   s.cfg.RequireInvitations,
		AllowEmptyEvaluation: s.cfg.AllowEmptyEvaluation,
		FulfilmentConfirmed:  req.confirmed,
		Reason:               req.reason,
	}
	switch req.kind {
	case domain.TransitionOpenBidding:
		invitations, err := tx.ListInvitations(ctx, rfq.ID)
		if err != nil {
			return gctx, err
		}
		gctx.InvitationCount = len(invitations)
	case domain.TransitionStartEvaluation:
		ranked, err := tx.ListRankedQuotes(ctx, rfq.ID)
		if err != nil {
			return gctx, err
		}
		gctx.RankedQuoteCount = len(ranked)
	case domain.TransitionCancel:
		active, err := tx.ListActiveQuotes(ctx, rfq.ID)
		if err != nil {
			return gctx, err
		}
		gctx.ActiveQuoteCount = len(active)
	}
	return gctx, nil
}

// applyEffects performs the per-transition side effects and returns the
// events to stage plus the audit reason.
func (s *LifecycleService) applyEffects(ctx context.Context, tx ports.Repository, rfq *domain.RFQ, req transitionRequest, to domain.Status) ([]domain.Event, string, error) {
	now := s.clock.Now()
	switch req.kind {
	case domain.TransitionPublish:
		return []domain.Event{domain.NewEvent(domain.EventRFQPublished, rfq.ID, to)}, req.reason, nil

	case domain.TransitionOpenBidding:
		rfq.BiddingStart = &now
		if rfq.BiddingDeadline != nil && rfq.BiddingDeadline.Before(now) {
			return nil, "", validationFailed("bidding deadline is already past", domain.ErrDeadlineBeforeStart)
		}
		return []domain.Event{domain.NewEvent(domain.EventBiddingOpened, rfq.ID, to)}, req.reason, nil

	case domain.TransitionCloseBidding, domain.TransitionAutoClose:
		return s.closeEffects(ctx, tx, rfq, to)

	case domain.TransitionComplete:
		return []domain.Event{domain.NewEvent(domain.EventRFQCompleted, rfq.ID, to)}, req.reason, nil

	case domain.TransitionCancel:
		return s.cancelEffects(ctx, tx, rfq, req.reason, to)
	}
	return nil, req.reason, nil
}

func (s *LifecycleService) closeEffects(ctx context.Context, tx ports.Repository, rfq *domain.RFQ, to domain.Status) ([]domain.Event, string, error) {
	var events []domain.Event

	invitations, err := tx.ListInvitations(ctx, rfq.ID)
	if err != nil {
		return nil, "", err
	}
	for _, inv := range invitations {
		if !inv.Expire() {
			continue
		}
		if err := tx.UpdateInvitation(ctx, inv); err != nil {
			return nil, "", err
		}
		ev := domain.NewEvent(domain.EventInvitationExpired, rfq.ID, to)
		ev.SupplierOrgID = inv.SupplierOrgID
		events = append(events, ev)
	}

	active, err := tx.ListActiveQuotes(ctx, rfq.ID)
	if err != nil {
		return nil, "", err
	}
	result := domain.ComputePriceRanks(rfq.Currency, active)
	for _, q := range result.Ranked {
		if err := tx.UpdateQuote(ctx, q); err != nil {
			return nil, "", err
		}
	}
	for _, q := range result.Excluded {
		s.logger.Warn("quote excluded from ranking: currency mismatch",
			slog.String("rfq_id", rfq.ID.String()),
			slog.String("quote_id", q.ID.String()),
			slog.String("quote_currency", q.Currency),
			slog.String("rfq_currency", rfq.Currency))
	}

	events = append(events, domain.NewEvent(domain.EventBiddingClosed, rfq.ID, to))
	reason := fmt.Sprintf("ranked %d quotes", len(result.Ranked))
	return events, reason, nil
}

func (s *LifecycleService) cancelEffects(ctx context.Context, tx ports.Repository, rfq *domain.RFQ, reason string, to domain.Status) ([]domain.Event, string, error) {
	active, err := tx.ListActiveQuotes(ctx, rfq.ID)
	if err != nil {
		return nil, "", err
	}
	for _, q := range active {
		q.Status = domain.QuoteRejected
		if err := tx.UpdateQuote(ctx, q); err != nil {
			return nil, "", err
		}
	}
	rfq.CancellationReason = reason
	ev := domain.NewEvent(domain.EventRFQCancelled, rfq.ID, to)
	ev.Reason = reason
	return []domain.Event{ev}, reason, nil
}

func (s *LifecycleService) authorize(ctx context.Context, actor string, rfq *domain.RFQ, kind domain.TransitionType) error {
	if s.authorizer == nil {
		return nil
	}
	if err := s.authorizer.Authorize(ctx, actor, rfq, kind); err != nil {
		return notAuthorized(err.Error())
	}
	return nil
}
