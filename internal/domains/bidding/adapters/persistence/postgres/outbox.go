package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

var _ ports.OutboxReader = (*Repository)(nil)

// AppendEvents stages events in the outbox table within the enclosing
// transaction, so a rolled-back transition leaves no events behind.
func (r *Repository) AppendEvents(ctx context.Context, events ...domain.Event) error {
	records := make([]outboxRecord, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		records = append(records, outboxRecord{
			ID:        event.ID,
			Kind:      string(event.Kind),
			Payload:   payload,
			CreatedAt: event.OccurredAt,
		})
	}
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

// PendingEvents returns undispatched events in staging order.
func (r *Repository) PendingEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	query := r.db.WithContext(ctx).
		Where("dispatched_at IS NULL").
		Order("seq")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []outboxRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Event, 0, len(records))
	for _, record := range records {
		var event domain.Event
		if err := json.Unmarshal(record.Payload, &event); err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

// MarkDispatched stamps delivered events so they are not re-read.
func (r *Repository) MarkDispatched(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&outboxRecord{}).
		Where("id IN ?", ids).
		Update("dispatched_at", now).Error
}
