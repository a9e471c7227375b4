package domain

import "errors"

// Error taxonomy shared by every engine operation. Application code wraps
// these with the specific guard that failed so callers can render precise
// messages without inspecting internals.
var (
	ErrInvalidStatus     = errors.New("rfq status is not a defined lifecycle state")
	ErrInvalidTransition = errors.New("transition is not legal from the current state")
	ErrConflict          = errors.New("a concurrent transition won the race")
	ErrValidationFailed  = errors.New("structural invariant violated")
	ErrNotFound          = errors.New("referenced entity does not exist")
	ErrNotAuthorized     = errors.New("caller lacks the right to perform this action")

	ErrLineItemsFrozen = errors.New("line items are immutable once the rfq is published")

	ErrDuplicateInvitation  = errors.New("supplier already invited to this rfq")
	ErrInvitationNotPending = errors.New("invitation has already been responded to or expired")

	ErrQuoteNoLineItems       = errors.New("quote must price at least one line item")
	ErrQuoteLineUnknown       = errors.New("quote references a line item not on this rfq")
	ErrQuoteLineDuplicate     = errors.New("quote prices the same line item twice")
	ErrQuoteLineInvalid       = errors.New("quote line quantity and unit price must be positive")
	ErrQuoteQuantityExceeds   = errors.New("offered quantity exceeds requested quantity")
	ErrQuotePartialNotAllowed = errors.New("partial quantities are not allowed on this rfq")
	ErrQuoteMissingLineItems  = errors.New("rfq requires a price for every line item")
	ErrQuoteNotActive         = errors.New("quote version is not in an active status")
	ErrQuoteNotAwardable      = errors.New("quote is withdrawn, expired, or rejected")
	ErrThreadWithdrawn        = errors.New("a withdrawn thread cannot be resubmitted")
)
