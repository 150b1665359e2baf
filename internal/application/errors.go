package application

import (
	"errors"

	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
	"github.com/Lokeshwarrior12/FineDine/internal/saga"
)

// isBusinessError reports whether err is an expected outcome rather than
// an infrastructure failure.
func isBusinessError(err error) bool {
	for _, kind := range []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrForbidden,
		domain.ErrInvalidState,
		domain.ErrConflict,
		domain.ErrGone,
		domain.ErrUnprocessable,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// unwrapSagaError strips the saga step wrapper so API clients see the
// underlying message.
func unwrapSagaError(err error) error {
	var stepErr *saga.StepError
	if errors.As(err, &stepErr) {
		return stepErr.Err
	}
	return err
}
