package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates RFQ lifecycle states.
type Status string

const (
	StatusDraft         Status = "DRAFT"
	StatusPublished     Status = "PUBLISHED"
	StatusBiddingOpen   Status = "BIDDING_OPEN"
	StatusBiddingClosed Status = "BIDDING_CLOSED"
	StatusEvaluation    Status = "EVALUATION"
	StatusAwarded       Status = "AWARDED"
	StatusCompleted     Status = "COMPLETED"
	StatusCancelled     Status = "CANCELLED"
)

var (
	ErrEmptyTitle          = errors.New("rfq title must not be empty")
	ErrNoLineItems         = errors.New("rfq must have at least one line item")
	ErrInvalidQuantity     = errors.New("line item quantity must be greater than zero")
	ErrDuplicateLineNumber = errors.New("line item numbers must be unique within the rfq")
	ErrInvalidCurrency     = errors.New("rfq currency code must be a 3-letter code")
	ErrDeadlineBeforeStart = errors.New("bidding deadline must not precede bidding start")
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsValid reports whether s is one of the defined lifecycle states.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusBiddingOpen, StatusBiddingClosed,
		StatusEvaluation, StatusAwarded, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// RFQ is the root procurement-request aggregate.
type RFQ struct {
	ID                 uuid.UUID
	Reference          string
	Title              string
	Description        string
	Currency           string
	DeliveryPort       string
	DeliveryDate       *time.Time
	BiddingDeadline    *time.Time
	BiddingStart       *time.Time
	AllowPartialQuotes bool
	AllowRevision      bool
	RequireAllItems    bool
	Status             Status
	AwardedQuoteID     *uuid.UUID
	CancellationReason string
	BuyerOrgID         string
	CreatedAt          time.Time
	UpdatedAt          time.Time

	LineItems []LineItem
}

// LineItem is a requested position on an RFQ. Immutable once the RFQ
// leaves DRAFT.
type LineItem struct {
	ID          uuid.UUID
	RFQID       uuid.UUID
	LineNumber  int
	Description string
	Quantity    decimal.Decimal
	Unit        string
	CatalogRef  string
	Notes       string
}

// NewRFQ constructs a draft RFQ owned by the given buyer organization.
func NewRFQ(buyerOrgID, reference, title, currency string) (*RFQ, error) {
	rfq := &RFQ{
		ID:         uuid.New(),
		Reference:  reference,
		Title:      strings.TrimSpace(title),
		Currency:   strings.ToUpper(strings.TrimSpace(currency)),
		Status:     StatusDraft,
		BuyerOrgID: buyerOrgID,
		CreatedAt:  time.Now().UTC(),
	}
	rfq.UpdatedAt = rfq.CreatedAt
	if err := rfq.Validate(); err != nil {
		return nil, err
	}
	return rfq, nil
}

// Validate enforces structural invariants on the aggregate.
func (r *RFQ) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrEmptyTitle
	}
	if len(r.Currency) != 3 {
		return ErrInvalidCurrency
	}
	if !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	if r.BiddingStart != nil && r.BiddingDeadline != nil && r.BiddingDeadline.Before(*r.BiddingStart) {
		return ErrDeadlineBeforeStart
	}
	seen := make(map[int]struct{}, len(r.LineItems))
	for _, item := range r.LineItems {
		if !item.Quantity.IsPositive() {
			return ErrInvalidQuantity
		}
		if _, dup := seen[item.LineNumber]; dup {
			return ErrDuplicateLineNumber
		}
		seen[item.LineNumber] = struct{}{}
	}
	return nil
}

// ReplaceLineItems swaps the full line-item set. Only legal while DRAFT;
// line numbers are reassigned densely in the given order.
func (r *RFQ) ReplaceLineItems(items []LineItem) error {
	if r.Status != StatusDraft {
		return ErrLineItemsFrozen
	}
	replaced := make([]LineItem, 0, len(items))
	for i, item := range items {
		if !item.Quantity.IsPositive() {
			return ErrInvalidQuantity
		}
		item.ID = uuid.New()
		item.RFQID = r.ID
		item.LineNumber = i + 1
		replaced = append(replaced, item)
	}
	r.LineItems = replaced
	return nil
}

// LineItemByID returns the requested line item, if present.
func (r *RFQ) LineItemByID(id uuid.UUID) (LineItem, bool) {
	for _, item := range r.LineItems {
		if item.ID == id {
			return item, true
		}
	}
	return LineItem{}, false
}

// Deletable reports whether a hard delete is permitted.
func (r *RFQ) Deletable() bool {
	return r.Status == StatusDraft
}
