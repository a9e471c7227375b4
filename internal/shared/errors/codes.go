// Package errors provides the stable error envelope returned to engine
// callers: a machine-readable code plus the specific guard that failed, so
// presentation layers can render precise messaging without knowing engine
// internals.
package errors

import "fmt"

// Code is a stable, machine-readable error class.
type Code string

const (
	CodeInvalidTransition Code = "invalid_transition"
	CodeConflict          Code = "conflict"
	CodeValidationFailed  Code = "validation_failed"
	CodeNotFound          Code = "not_found"
	CodeNotAuthorized     Code = "not_authorized_for_action"
	CodeInternal          Code = "internal"
)

// Error couples a code with the violated guard and the underlying cause.
type Error struct {
	Code  Code
	Guard string
	cause error
}

// New builds an Error with no underlying cause.
func New(code Code, guard string) *Error {
	return &Error{Code: code, Guard: guard}
}

// Wrap builds an Error around a cause; errors.Is still matches the cause.
func Wrap(code Code, guard string, cause error) *Error {
	return &Error{Code: code, Guard: guard, cause: cause}
}

func (e *Error) Error() string {
	if e.Guard != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Guard)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.cause)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.cause }

// CodeOf extracts the stable code from any error in the chain, defaulting
// to CodeInternal.
func CodeOf(err error) Code {
	for err != nil {
		if typed, ok := err.(*Error); ok {
			return typed.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return CodeInternal
}
