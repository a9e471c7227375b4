package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransitionRecord is the append-only audit row written for every accepted
// transition. Never mutated or deleted.
type TransitionRecord struct {
	ID         uuid.UUID
	RFQID      uuid.UUID
	FromStatus Status
	ToStatus   Status
	Type       TransitionType
	Trigger    TriggerSource
	Reason     string
	Actor      string
	OccurredAt time.Time
}

// NewTransitionRecord captures one accepted lifecycle move.
func NewTransitionRecord(rfqID uuid.UUID, from, to Status, t TransitionType, trigger TriggerSource, actor, reason string) *TransitionRecord {
	return &TransitionRecord{
		ID:         uuid.New(),
		RFQID:      rfqID,
		FromStatus: from,
		ToStatus:   to,
		Type:       t,
		Trigger:    trigger,
		Reason:     reason,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	}
}
