package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

// InvitationService manages supplier invitations. Each operation re-reads
// the parent RFQ's status inside its own transaction; a status observed
// earlier in the call is never trusted.
type InvitationService struct {
	store  ports.Store
	clock  ports.Clock
	logger *slog.Logger
}

// NewInvitationService wires the invitation manager.
func NewInvitationService(store ports.Store, clock ports.Clock, logger *slog.Logger) *InvitationService {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InvitationService{store: store, clock: clock, logger: logger}
}

var _ ports.InvitationService = (*InvitationService)(nil)

// Invite creates a pending invitation for the supplier. Allowed only while
// the RFQ is PUBLISHED or BIDDING_OPEN, at most once per supplier.
func (s *InvitationService) Invite(ctx context.Context, rfqID uuid.UUID, supplierOrgID, actor string) (*domain.Invitation, error) {
	supplierOrgID = strings.TrimSpace(supplierOrgID)
	if supplierOrgID == "" {
		return nil, validationFailed("supplier organization id is required", nil)
	}
	var out *domain.Invitation
	err := s.store.Transact(ctx, func(tx ports.Repository) error {
		rfq, err := tx.GetRFQ(ctx, rfqID)
		if err != nil {
			return mapRepoErr(err, "rfq")
		}
		if rfq.Status != domain.StatusPublished && rfq.Status != domain.StatusBiddingOpen {
			return invalidTransition("cannot invite: rfq is not accepting invitations")
		}
		if existing, err := tx.FindInvitation(ctx, rfqID, supplierOrgID); err == nil && existing != nil {
			return validationFailed("supplier already invited", domain.ErrDuplicateInvitation)
		}
		inv := domain.NewInvitation(rfqID, supplierOrgID, rfq.BiddingDeadline)
		inv.InvitedAt = s.clock.Now()
		if err := tx.CreateInvitation(ctx, inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("supplier invited",
		slog.String("rfq_id", rfqID.String()),
		slog.String("supplier_org_id", supplierOrgID),
		slog.String("actor", actor))
	return out, nil
}

// Respond records a supplier's accept or decline on a pending invitation.
// Rejected once the RFQ has moved past BIDDING_OPEN.
func (s *InvitationService) Respond(ctx context.Context, invitationID uuid.UUID, accept bool, actor string) (*domain.Invitation, error) {
	var out *domain.Invitation
	err := s.store.Transact(ctx, func(tx ports.Repository) error {
		inv, err := tx.GetInvitation(ctx, invitationID)
		if err != nil {
			return mapRepoErr(err, "invitation")
		}
		rfq, err := tx.GetRFQ(ctx, inv.RFQID)
		if err != nil {
			return mapRepoErr(err, "rfq")
		}
		switch rfq.Status {
		case domain.StatusPublished, domain.StatusBiddingOpen:
		default:
			return invalidTransition("cannot respond: bidding is no longer open")
		}
		if err := inv.Respond(accept, s.clock.Now()); err != nil {
			return validationFailed(err.Error(), err)
		}
		if err := tx.UpdateInvitation(ctx, inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invitation response recorded",
		slog.String("invitation_id", invitationID.String()),
		slog.Bool("accepted", accept),
		slog.String("actor", actor))
	return out, nil
}

// ListInvitations returns all invitations on an RFQ.
func (s *InvitationService) ListInvitations(ctx context.Context, rfqID uuid.UUID) ([]*domain.Invitation, error) {
	if _, err := s.store.GetRFQ(ctx, rfqID); err != nil {
		return nil, mapRepoErr(err, "rfq")
	}
	return s.store.ListInvitations(ctx, rfqID)
}
