package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

var _ ports.Store = (*Repository)(nil)

// Repository persists the bidding engine in PostgreSQL using GORM. All
// mutating operations are expected to run inside Transact; the *ForUpdate
// reads take SELECT ... FOR UPDATE row locks held until the transaction
// commits or rolls back.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed store. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transact runs fn inside one database transaction. Any returned error
// rolls the whole unit back, audit rows and outbox entries included.
func (r *Repository) Transact(ctx context.Context, fn func(tx ports.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) CreateRFQ(ctx context.Context, rfq *domain.RFQ) error {
	record := toRFQRecord(rfq)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}
	items := toLineItemRecords(rfq)
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *Repository) GetRFQ(ctx context.Context, id uuid.UUID) (*domain.RFQ, error) {
	return r.getRFQ(ctx, id, false)
}

func (r *Repository) GetRFQForUpdate(ctx context.Context, id uuid.UUID) (*domain.RFQ, error) {
	return r.getRFQ(ctx, id, true)
}

func (r *Repository) getRFQ(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.RFQ, error) {
	query := r.db.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var record rfqRecord
	if err := query.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	var items []rfqLineItemRecord
	if err := r.db.WithContext(ctx).
		Where("rfq_id = ?", id).
		Order("line_number").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return record.toDomain(items), nil
}

func (r *Repository) UpdateRFQ(ctx context.Context, rfq *domain.RFQ) error {
	record := toRFQRecord(rfq)
	result := r.db.WithContext(ctx).Model(&rfqRecord{}).Where("id = ?", rfq.ID).
		Select("*").Omit("id", "created_at").Updates(&record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	// Line items are mutable only while DRAFT; replace the whole set.
	if rfq.Status == domain.StatusDraft {
		if err := r.db.WithContext(ctx).Where("rfq_id = ?", rfq.ID).Delete(&rfqLineItemRecord{}).Error; err != nil {
			return err
		}
		items := toLineItemRecords(rfq)
		if len(items) > 0 {
			if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Repository) DeleteRFQ(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&rfqRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	if err := r.db.WithContext(ctx).Where("rfq_id = ?", id).Delete(&rfqLineItemRecord{}).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Where("rfq_id = ?", id).Delete(&invitationRecord{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *Repository) ListDueForClose(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := r.db.WithContext(ctx).Model(&rfqRecord{}).
		Where("status = ? AND bidding_deadline IS NOT NULL AND bidding_deadline <= ?", string(domain.StatusBiddingOpen), now).
		Order("bidding_deadline")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var ids []uuid.UUID
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	record := toInvitationRecord(inv)
	err := r.db.WithContext(ctx).Create(&record).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateInvitation
	}
	return err
}

func (r *Repository) GetInvitation(ctx context.Context, id uuid.UUID) (*domain.Invitation, error) {
	var record invitationRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *Repository) FindInvitation(ctx context.Context, rfqID uuid.UUID, supplierOrgID string) (*domain.Invitation, error) {
	var record invitationRecord
	err := r.db.WithContext(ctx).
		First(&record, "rfq_id = ? AND supplier_org_id = ?", rfqID, supplierOrgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *Repository) ListInvitations(ctx context.Context, rfqID uuid.UUID) ([]*domain.Invitation, error) {
	var records []invitationRecord
	if err := r.db.WithContext(ctx).
		Where("rfq_id = ?", rfqID).
		Order("invited_at").
		Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Invitation, 0, len(records))
	for i := range records {
		out = append(out, records[i].toDomain())
	}
	return out, nil
}

func (r *Repository) UpdateInvitation(ctx context.Context, inv *domain.Invitation) error {
	record := toInvitationRecord(inv)
	result := r.db.WithContext(ctx).Model(&invitationRecord{}).Where("id = ?", inv.ID).
		Select("status", "responded_at", "expires_at").Updates(&record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateQuote(ctx context.Context, quote *domain.Quote) error {
	record := toQuoteRecord(quote)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}
	items := toQuoteLineItemRecords(quote)
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *Repository) UpdateQuote(ctx context.Context, quote *domain.Quote) error {
	record := toQuoteRecord(quote)
	result := r.db.WithContext(ctx).Model(&quoteRecord{}).Where("id = ?", quote.ID).
		Select("status", "price_rank", "valid_until").Updates(map[string]any{
		"status":      record.Status,
		"price_rank":  record.PriceRank,
		"valid_until": record.ValidUntil,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// GetThreadHeadForUpdate locks the thread's latest version row, serializing
// concurrent revisions of one thread without touching the RFQ row.
func (r *Repository) GetThreadHeadForUpdate(ctx context.Context, threadID uuid.UUID) (*domain.Quote, error) {
	var record quoteRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("thread_id = ?", threadID).
		Order("version DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return r.withQuoteLines(ctx, record)
}

func (r *Repository) GetThread(ctx context.Context, threadID uuid.UUID) ([]*domain.Quote, error) {
	var records []quoteRecord
	if err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("version").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return r.toQuotes(ctx, records)
}

func (r *Repository) FindActiveQuoteBySupplier(ctx context.Context, rfqID uuid.UUID, supplierOrgID string) (*domain.Quote, error) {
	var record quoteRecord
	err := r.headQuery(ctx).
		Where("rfq_id = ? AND supplier_org_id = ? AND status IN ?", rfqID, supplierOrgID, activeStatuses()).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return r.withQuoteLines(ctx, record)
}

func (r *Repository) ListActiveQuotes(ctx context.Context, rfqID uuid.UUID) ([]*domain.Quote, error) {
	var records []quoteRecord
	if err := r.headQuery(ctx).
		Where("rfq_id = ? AND status IN ?", rfqID, activeStatuses()).
		Order("submitted_at").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return r.toQuotes(ctx, records)
}

// headQuery restricts quote rows to the latest version of each thread.
// Superseded versions are audit history and never count as active.
func (r *Repository) headQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("version = (SELECT MAX(v.version) FROM quotes v WHERE v.thread_id = quotes.thread_id)")
}

func (r *Repository) ListRankedQuotes(ctx context.Context, rfqID uuid.UUID) ([]*domain.Quote, error) {
	var records []quoteRecord
	if err := r.db.WithContext(ctx).
		Where("rfq_id = ? AND price_rank IS NOT NULL", rfqID).
		Order("price_rank").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return r.toQuotes(ctx, records)
}

func (r *Repository) AppendTransition(ctx context.Context, rec *domain.TransitionRecord) error {
	record := toTransitionRecord(rec)
	return r.db.WithContext(ctx).Create(&record).Error
}

func (r *Repository) ListTransitions(ctx context.Context, rfqID uuid.UUID) ([]*domain.TransitionRecord, error) {
	var records []transitionRecord
	if err := r.db.WithContext(ctx).
		Where("rfq_id = ?", rfqID).
		Order("seq").
		Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.TransitionRecord, 0, len(records))
	for i := range records {
		out = append(out, records[i].toDomain())
	}
	return out, nil
}

func (r *Repository) withQuoteLines(ctx context.Context, record quoteRecord) (*domain.Quote, error) {
	var items []quoteLineItemRecord
	if err := r.db.WithContext(ctx).Where("quote_id = ?", record.ID).Find(&items).Error; err != nil {
		return nil, err
	}
	return record.toDomain(items), nil
}

func (r *Repository) toQuotes(ctx context.Context, records []quoteRecord) ([]*domain.Quote, error) {
	out := make([]*domain.Quote, 0, len(records))
	for i := range records {
		quote, err := r.withQuoteLines(ctx, records[i])
		if err != nil {
			return nil, err
		}
		out = append(out, quote)
	}
	return out, nil
}

func activeStatuses() []string {
	return []string{string(domain.QuoteSubmitted), string(domain.QuoteRevised)}
}
