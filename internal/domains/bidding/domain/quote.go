package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteStatus enumerates quote version states.
type QuoteStatus string

const (
	QuoteDraft     QuoteStatus = "DRAFT"
	QuoteSubmitted QuoteStatus = "SUBMITTED"
	QuoteRevised   QuoteStatus = "REVISED"
	QuoteWithdrawn QuoteStatus = "WITHDRAWN"
	QuoteAwarded   QuoteStatus = "AWARDED"
	QuoteRejected  QuoteStatus = "REJECTED"
	QuoteExpired   QuoteStatus = "EXPIRED"
)

// Active reports whether a version is live and rankable.
func (s QuoteStatus) Active() bool {
	return s == QuoteSubmitted || s == QuoteRevised
}

// Quote is one version within a supplier's quote thread on an RFQ. A
// revision never mutates the prior row; it closes it and appends the next
// version under the same thread id.
type Quote struct {
	ID            uuid.UUID
	ThreadID      uuid.UUID
	RFQID         uuid.UUID
	SupplierOrgID string
	Version       int
	Status        QuoteStatus
	Currency      string
	TotalAmount   decimal.Decimal
	SubmittedAt   time.Time
	ValidUntil    *time.Time
	PriceRank     *int

	LineItems []QuoteLineItem
}

// QuoteLineItem prices one RFQ line item within a quote version.
type QuoteLineItem struct {
	ID            uuid.UUID
	QuoteID       uuid.UUID
	RFQLineItemID uuid.UUID
	UnitPrice     decimal.Decimal
	Quantity      decimal.Decimal
	Subtotal      decimal.Decimal
}

// QuoteLineInput is the caller-supplied pricing for one RFQ line item.
type QuoteLineInput struct {
	RFQLineItemID uuid.UUID
	UnitPrice     decimal.Decimal
	Quantity      decimal.Decimal
}

// NewQuote builds and validates a quote version against the RFQ's line-item
// rules. Version 1 opens a new thread; revisions pass the existing thread id
// and the next version number.
func NewQuote(rfq *RFQ, supplierOrgID string, threadID uuid.UUID, version int, lines []QuoteLineInput, validUntil *time.Time) (*Quote, error) {
	if len(lines) == 0 {
		return nil, ErrQuoteNoLineItems
	}
	quote := &Quote{
		ID:            uuid.New(),
		ThreadID:      threadID,
		RFQID:         rfq.ID,
		SupplierOrgID: supplierOrgID,
		Version:       version,
		Status:        QuoteSubmitted,
		Currency:      rfq.Currency,
		SubmittedAt:   time.Now().UTC(),
		ValidUntil:    validUntil,
	}
	covered := make(map[uuid.UUID]struct{}, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		item, ok := rfq.LineItemByID(line.RFQLineItemID)
		if !ok {
			return nil, ErrQuoteLineUnknown
		}
		if _, dup := covered[line.RFQLineItemID]; dup {
			return nil, ErrQuoteLineDuplicate
		}
		covered[line.RFQLineItemID] = struct{}{}
		if !line.Quantity.IsPositive() || line.UnitPrice.IsNegative() {
			return nil, ErrQuoteLineInvalid
		}
		if line.Quantity.GreaterThan(item.Quantity) {
			return nil, ErrQuoteQuantityExceeds
		}
		if !rfq.AllowPartialQuotes && !line.Quantity.Equal(item.Quantity) {
			return nil, ErrQuotePartialNotAllowed
		}
		subtotal := line.UnitPrice.Mul(line.Quantity)
		quote.LineItems = append(quote.LineItems, QuoteLineItem{
			ID:            uuid.New(),
			QuoteID:       quote.ID,
			RFQLineItemID: line.RFQLineItemID,
			UnitPrice:     line.UnitPrice,
			Quantity:      line.Quantity,
			Subtotal:      subtotal,
		})
		total = total.Add(subtotal)
	}
	// Leaving a line unpriced is a partial quote too, so full coverage is
	// required either way.
	if (rfq.RequireAllItems || !rfq.AllowPartialQuotes) && len(covered) != len(rfq.LineItems) {
		return nil, ErrQuoteMissingLineItems
	}
	quote.TotalAmount = total
	return quote, nil
}

// MarkRevised closes this version as historical when a newer one replaces it.
func (q *Quote) MarkRevised() error {
	if !q.Status.Active() {
		return ErrQuoteNotActive
	}
	q.Status = QuoteRevised
	return nil
}

// Withdraw takes the active version out of contention. The thread cannot be
// resubmitted; the supplier starts a fresh thread instead.
func (q *Quote) Withdraw() error {
	if !q.Status.Active() {
		return ErrQuoteNotActive
	}
	q.Status = QuoteWithdrawn
	return nil
}
