package domain

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus enumerates the invitation sub-state machine.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationDeclined InvitationStatus = "DECLINED"
	InvitationExpired  InvitationStatus = "EXPIRED"
)

// Invitation links one supplier organization to an RFQ. At most one
// invitation may exist per (RFQ, supplier) pair, whatever its status.
type Invitation struct {
	ID            uuid.UUID
	RFQID         uuid.UUID
	SupplierOrgID string
	Status        InvitationStatus
	InvitedAt     time.Time
	RespondedAt   *time.Time
	ExpiresAt     *time.Time
}

// NewInvitation creates a pending invitation for the supplier.
func NewInvitation(rfqID uuid.UUID, supplierOrgID string, expiresAt *time.Time) *Invitation {
	return &Invitation{
		ID:            uuid.New(),
		RFQID:         rfqID,
		SupplierOrgID: supplierOrgID,
		Status:        InvitationPending,
		InvitedAt:     time.Now().UTC(),
		ExpiresAt:     expiresAt,
	}
}

// Respond records the supplier's accept/decline. Only a pending invitation
// may be responded to.
func (i *Invitation) Respond(accept bool, at time.Time) error {
	if i.Status != InvitationPending {
		return ErrInvitationNotPending
	}
	if accept {
		i.Status = InvitationAccepted
	} else {
		i.Status = InvitationDeclined
	}
	at = at.UTC()
	i.RespondedAt = &at
	return nil
}

// Expire marks a still-pending invitation as expired. Called as part of the
// CLOSE_BIDDING transition, never as a standalone job.
func (i *Invitation) Expire() bool {
	if i.Status != InvitationPending {
		return false
	}
	i.Status = InvitationExpired
	return true
}
