package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
)

type rfqRecord struct {
	ID                 uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Reference          string     `gorm:"column:reference;uniqueIndex"`
	Title              string     `gorm:"column:title"`
	Description        string     `gorm:"column:description"`
	Currency           string     `gorm:"column:currency;type:char(3)"`
	DeliveryPort       string     `gorm:"column:delivery_port"`
	DeliveryDate       *time.Time `gorm:"column:delivery_date"`
	BiddingDeadline    *time.Time `gorm:"column:bidding_deadline;index"`
	BiddingStart       *time.Time `gorm:"column:bidding_start"`
	AllowPartialQuotes bool       `gorm:"column:allow_partial_quotes"`
	AllowRevision      bool       `gorm:"column:allow_quote_revision"`
	RequireAllItems    bool       `gorm:"column:require_all_line_items"`
	Status             string     `gorm:"column:status;index"`
	AwardedQuoteID     *uuid.UUID `gorm:"column:awarded_quote_id;type:uuid"`
	CancellationReason string     `gorm:"column:cancellation_reason"`
	BuyerOrgID         string     `gorm:"column:buyer_org_id;index"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (rfqRecord) TableName() string { return "rfqs" }

type rfqLineItemRecord struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	RFQID       uuid.UUID       `gorm:"column:rfq_id;type:uuid;index:idx_rfq_line,unique,priority:1"`
	LineNumber  int             `gorm:"column:line_number;index:idx_rfq_line,unique,priority:2"`
	Description string          `gorm:"column:description"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:decimal(20,4);not null"`
	Unit        string          `gorm:"column:unit"`
	CatalogRef  string          `gorm:"column:catalog_ref"`
	Notes       string          `gorm:"column:notes"`
}

func (rfqLineItemRecord) TableName() string { return "rfq_line_items" }

type invitationRecord struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	RFQID         uuid.UUID  `gorm:"column:rfq_id;type:uuid;index:idx_rfq_supplier,unique,priority:1"`
	SupplierOrgID string     `gorm:"column:supplier_org_id;index:idx_rfq_supplier,unique,priority:2"`
	Status        string     `gorm:"column:status;index"`
	InvitedAt     time.Time  `gorm:"column:invited_at"`
	RespondedAt   *time.Time `gorm:"column:responded_at"`
	ExpiresAt     *time.Time `gorm:"column:expires_at"`
}

func (invitationRecord) TableName() string { return "rfq_invitations" }

type quoteRecord struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ThreadID      uuid.UUID       `gorm:"column:thread_id;type:uuid;index:idx_thread_version,unique,priority:1"`
	Version       int             `gorm:"column:version;index:idx_thread_version,unique,priority:2"`
	RFQID         uuid.UUID       `gorm:"column:rfq_id;type:uuid;index"`
	SupplierOrgID string          `gorm:"column:supplier_org_id;index"`
	Status        string          `gorm:"column:status;index"`
	Currency      string          `gorm:"column:currency;type:char(3)"`
	TotalAmount   decimal.Decimal `gorm:"column:total_amount;type:decimal(20,4);not null"`
	SubmittedAt   time.Time       `gorm:"column:submitted_at"`
	ValidUntil    *time.Time      `gorm:"column:valid_until"`
	PriceRank     *int            `gorm:"column:price_rank"`
}

func (quoteRecord) TableName() string { return "quotes" }

type quoteLineItemRecord struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	QuoteID       uuid.UUID       `gorm:"column:quote_id;type:uuid;index"`
	RFQLineItemID uuid.UUID       `gorm:"column:rfq_line_item_id;type:uuid"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:decimal(20,4);not null"`
	Quantity      decimal.Decimal `gorm:"column:quantity;type:decimal(20,4);not null"`
	Subtotal      decimal.Decimal `gorm:"column:subtotal;type:decimal(20,4);not null"`
}

func (quoteLineItemRecord) TableName() string { return "quote_line_items" }

type transitionRecord struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Seq        int64     `gorm:"column:seq;autoIncrement;uniqueIndex"`
	RFQID      uuid.UUID `gorm:"column:rfq_id;type:uuid;index"`
	FromStatus string    `gorm:"column:from_status"`
	ToStatus   string    `gorm:"column:to_status"`
	Type       string    `gorm:"column:transition_type"`
	Trigger    string    `gorm:"column:trigger_source"`
	Reason     string    `gorm:"column:reason"`
	Actor      string    `gorm:"column:actor"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
}

func (transitionRecord) TableName() string { return "rfq_transitions" }

type outboxRecord struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Seq          int64      `gorm:"column:seq;autoIncrement;uniqueIndex"`
	Kind         string     `gorm:"column:kind"`
	Payload      []byte     `gorm:"column:payload;type:jsonb"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	DispatchedAt *time.Time `gorm:"column:dispatched_at;index"`
}

func (outboxRecord) TableName() string { return "rfq_outbox" }

func toRFQRecord(rfq *domain.RFQ) rfqRecord {
	return rfqRecord{
		ID:                 rfq.ID,
		Reference:          rfq.Reference,
		Title:              rfq.Title,
		Description:        rfq.Description,
		Currency:           rfq.Currency,
		DeliveryPort:       rfq.DeliveryPort,
		DeliveryDate:       rfq.DeliveryDate,
		BiddingDeadline:    rfq.BiddingDeadline,
		BiddingStart:       rfq.BiddingStart,
		AllowPartialQuotes: rfq.AllowPartialQuotes,
		AllowRevision:      rfq.AllowRevision,
		RequireAllItems:    rfq.RequireAllItems,
		Status:             string(rfq.Status),
		AwardedQuoteID:     rfq.AwardedQuoteID,
		CancellationReason: rfq.CancellationReason,
		BuyerOrgID:         rfq.BuyerOrgID,
		CreatedAt:          rfq.CreatedAt,
		UpdatedAt:          rfq.UpdatedAt,
	}
}

func (r rfqRecord) toDomain(items []rfqLineItemRecord) *domain.RFQ {
	rfq := &domain.RFQ{
		ID:                 r.ID,
		Reference:          r.Reference,
		Title:              r.Title,
		Description:        r.Description,
		Currency:           r.Currency,
		DeliveryPort:       r.DeliveryPort,
		DeliveryDate:       r.DeliveryDate,
		BiddingDeadline:    r.BiddingDeadline,
		BiddingStart:       r.BiddingStart,
		AllowPartialQuotes: r.AllowPartialQuotes,
		AllowRevision:      r.AllowRevision,
		RequireAllItems:    r.RequireAllItems,
		Status:             domain.Status(r.Status),
		AwardedQuoteID:     r.AwardedQuoteID,
		CancellationReason: r.CancellationReason,
		BuyerOrgID:         r.BuyerOrgID,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	for _, item := range items {
		rfq.LineItems = append(rfq.LineItems, domain.LineItem{
			ID:          item.ID,
			RFQID:       item.RFQID,
			LineNumber:  item.LineNumber,
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			CatalogRef:  item.CatalogRef,
			Notes:       item.Notes,
		})
	}
	return rfq
}

func toLineItemRecords(rfq *domain.RFQ) []rfqLineItemRecord {
	records := make([]rfqLineItemRecord, 0, len(rfq.LineItems))
	for _, item := range rfq.LineItems {
		records = append(records, rfqLineItemRecord{
			ID:          item.ID,
			RFQID:       item.RFQID,
			LineNumber:  item.LineNumber,
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			CatalogRef:  item.CatalogRef,
			Notes:       item.Notes,
		})
	}
	return records
}

func toInvitationRecord(inv *domain.Invitation) invitationRecord {
	return invitationRecord{
		ID:            inv.ID,
		RFQID:         inv.RFQID,
		SupplierOrgID: inv.SupplierOrgID,
		Status:        string(inv.Status),
		InvitedAt:     inv.InvitedAt,
		RespondedAt:   inv.RespondedAt,
		ExpiresAt:     inv.ExpiresAt,
	}
}

func (r invitationRecord) toDomain() *domain.Invitation {
	return &domain.Invitation{
		ID:            r.ID,
		RFQID:         r.RFQID,
		SupplierOrgID: r.SupplierOrgID,
		Status:        domain.InvitationStatus(r.Status),
		InvitedAt:     r.InvitedAt,
		RespondedAt:   r.RespondedAt,
		ExpiresAt:     r.ExpiresAt,
	}
}

func toQuoteRecord(q *domain.Quote) quoteRecord {
	return quoteRecord{
		ID:            q.ID,
		ThreadID:      q.ThreadID,
		Version:       q.Version,
		RFQID:         q.RFQID,
		SupplierOrgID: q.SupplierOrgID,
		Status:        string(q.Status),
		Currency:      q.Currency,
		TotalAmount:   q.TotalAmount,
		SubmittedAt:   q.SubmittedAt,
		ValidUntil:    q.ValidUntil,
		PriceRank:     q.PriceRank,
	}
}

func (r quoteRecord) toDomain(items []quoteLineItemRecord) *domain.Quote {
	q := &domain.Quote{
		ID:            r.ID,
		ThreadID:      r.ThreadID,
		Version:       r.Version,
		RFQID:         r.RFQID,
		SupplierOrgID: r.SupplierOrgID,
		Status:        domain.QuoteStatus(r.Status),
		Currency:      r.Currency,
		TotalAmount:   r.TotalAmount,
		SubmittedAt:   r.SubmittedAt,
		ValidUntil:    r.ValidUntil,
		PriceRank:     r.PriceRank,
	}
	for _, item := range items {
		q.LineItems = append(q.LineItems, domain.QuoteLineItem{
			ID:            item.ID,
			QuoteID:       item.QuoteID,
			RFQLineItemID: item.RFQLineItemID,
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			Subtotal:      item.Subtotal,
		})
	}
	return q
}

func toQuoteLineItemRecords(q *domain.Quote) []quoteLineItemRecord {
	records := make([]quoteLineItemRecord, 0, len(q.LineItems))
	for _, item := range q.LineItems {
		records = append(records, quoteLineItemRecord{
			ID:            item.ID,
			QuoteID:       item.QuoteID,
			RFQLineItemID: item.RFQLineItemID,
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			Subtotal:      item.Subtotal,
		})
	}
	return records
}

func toTransitionRecord(rec *domain.TransitionRecord) transitionRecord {
	return transitionRecord{
		ID:         rec.ID,
		RFQID:      rec.RFQID,
		FromStatus: string(rec.FromStatus),
		ToStatus:   string(rec.ToStatus),
		Type:       string(rec.Type),
		Trigger:    string(rec.Trigger),
		Reason:     rec.Reason,
		Actor:      rec.Actor,
		OccurredAt: rec.OccurredAt,
	}
}

func (r transitionRecord) toDomain() *domain.TransitionRecord {
	return &domain.TransitionRecord{
		ID:         r.ID,
		RFQID:      r.RFQID,
		FromStatus: domain.Status(r.FromStatus),
		ToStatus:   domain.Status(r.ToStatus),
		Type:       domain.TransitionType(r.Type),
		Trigger:    domain.TriggerSource(r.Trigger),
		Reason:     r.Reason,
		Actor:      r.Actor,
		OccurredAt: r.OccurredAt,
	}
}
