package domain

import (
	"fmt"
	"strings"
)

// TransitionType is the business label of a lifecycle move.
type TransitionType string

const (
	TransitionPublish         TransitionType = "PUBLISH"
	TransitionOpenBidding     TransitionType = "OPEN_BIDDING"
	TransitionCloseBidding    TransitionType = "CLOSE_BIDDING"
	TransitionAutoClose       TransitionType = "AUTO_CLOSE"
	TransitionStartEvaluation TransitionType = "START_EVALUATION"
	TransitionAward           TransitionType = "AWARD"
	TransitionComplete        TransitionType = "COMPLETE"
	TransitionCancel          TransitionType = "CANCEL"
)

// TriggerSource records who drove a transition.
type TriggerSource string

const (
	TriggerUser      TriggerSource = "USER"
	TriggerScheduler TriggerSource = "SCHEDULER"
	TriggerSystem    TriggerSource = "SYSTEM"
)

// TransitionRule is a single allowed edge in the lifecycle state machine.
type TransitionRule struct {
	From Status
	To   Status
	Type TransitionType
}

// Decision records whether a transition is allowed and, when it is not,
// which guard forbade it.
type Decision struct {
	Allowed bool
	To      Status
	Guard   string
}

// GuardContext carries the contextual invariants the validator needs. The
// caller gathers these inside the same transaction that writes the state.
type GuardContext struct {
	LineItemCount        int
	InvitationCount      int
	RequireInvitations   bool
	ActiveQuoteCount     int
	RankedQuoteCount     int
	AllowEmptyEvaluation bool
	FulfilmentConfirmed  bool
	Reason               string
	TitleSet             bool
}

var transitionRules = []TransitionRule{
	{From: StatusDraft, To: StatusPublished, Type: TransitionPublish},
	{From: StatusPublished, To: StatusBiddingOpen, Type: TransitionOpenBidding},
	{From: StatusBiddingOpen, To: StatusBiddingClosed, Type: TransitionCloseBidding},
	{From: StatusBiddingOpen, To: StatusBiddingClosed, Type: TransitionAutoClose},
	{From: StatusBiddingClosed, To: StatusEvaluation, Type: TransitionStartEvaluation},
	{From: StatusEvaluation, To: StatusAwarded, Type: TransitionAward},
	{From: StatusAwarded, To: StatusCompleted, Type: TransitionComplete},

	{From: StatusDraft, To: StatusCancelled, Type: TransitionCancel},
	{From: StatusPublished, To: StatusCancelled, Type: TransitionCancel},
	{From: StatusBiddingOpen, To: StatusCancelled, Type: TransitionCancel},
	{From: StatusBiddingClosed, To: StatusCancelled, Type: TransitionCancel},
	{From: StatusEvaluation, To: StatusCancelled, Type: TransitionCancel},
}

// RuleFor returns the allowed edge for a given state and transition type.
func RuleFor(from Status, t TransitionType) (TransitionRule, bool) {
	for _, rule := range transitionRules {
		if rule.From == from && rule.Type == t {
			return rule, true
		}
	}
	return TransitionRule{}, false
}

// AllowedTransitions lists the transition types legal from the given state.
func AllowedTransitions(from Status) []TransitionType {
	var out []TransitionType
	for _, rule := range transitionRules {
		if rule.From == from {
			out = append(out, rule.Type)
		}
	}
	return out
}

// Decide is the pure transition validator: it checks the edge exists and
// evaluates the guard for the requested transition against ctx. It performs
// no I/O; callers must populate ctx from the same transaction that will
// write the state.
func Decide(current Status, t TransitionType, ctx GuardContext) Decision {
	rule, ok := RuleFor(current, t)
	if !ok {
		return Decision{Guard: fmt.Sprintf("%s is not legal from %s", t, current)}
	}
	if guard := checkGuard(t, ctx); guard != "" {
		return Decision{Guard: guard}
	}
	return Decision{Allowed: true, To: rule.To}
}

func checkGuard(t TransitionType, ctx GuardContext) string {
	switch t {
	case TransitionPublish:
		if !ctx.TitleSet {
			return "cannot publish: title is empty"
		}
		if ctx.LineItemCount < 1 {
			return "cannot publish: rfq has no line items"
		}
	case TransitionOpenBidding:
		if ctx.RequireInvitations && ctx.InvitationCount < 1 {
			return "cannot open bidding: no suppliers invited"
		}
	case TransitionStartEvaluation:
		if !ctx.AllowEmptyEvaluation && ctx.RankedQuoteCount < 1 {
			return "cannot start evaluation: no ranked quotes"
		}
	case TransitionComplete:
		if !ctx.FulfilmentConfirmed {
			return "cannot complete: fulfilment not confirmed"
		}
	case TransitionCancel:
		if strings.TrimSpace(ctx.Reason) == "" {
			return "cannot cancel: a reason is required"
		}
	}
	return ""
}
