package application

import (
	stderrors "errors"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
	apperrors "github.com/harborline/rfq-engine/internal/shared/errors"
)

func invalidTransition(guard string) error {
	return apperrors.Wrap(apperrors.CodeInvalidTransition, guard, domain.ErrInvalidTransition)
}

func conflict(guard string) error {
	return apperrors.Wrap(apperrors.CodeConflict, guard, domain.ErrConflict)
}

func validationFailed(guard string, cause error) error {
	if cause == nil {
		cause = domain.ErrValidationFailed
	}
	return apperrors.Wrap(apperrors.CodeValidationFailed, guard, cause)
}

func notFound(what string) error {
	return apperrors.Wrap(apperrors.CodeNotFound, what, domain.ErrNotFound)
}

func notAuthorized(guard string) error {
	return apperrors.Wrap(apperrors.CodeNotAuthorized, guard, domain.ErrNotAuthorized)
}

// mapRepoErr normalizes repository sentinels into the caller-facing taxonomy.
func mapRepoErr(err error, what string) error {
	if stderrors.Is(err, ports.ErrNotFound) {
		return notFound(what)
	}
	if stderrors.Is(err, ports.ErrLockUnavailable) {
		return conflict(what + ": concurrent operation in progress")
	}
	return err
}
