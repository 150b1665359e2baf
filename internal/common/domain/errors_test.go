package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_MatchesKind(t *testing.T) {
	err := fmt.Errorf("load coupon: %w", NewNotFoundError("Coupon", "abc"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Contains(t, err.Error(), "Coupon abc not found")
}

func TestInvalidStateError_Message(t *testing.T) {
	err := NewInvalidStateError("used", "cancelled")

	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "invalid state transition: cannot transition from used to cancelled", err.Error())
}

func TestUnavailable_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUnavailableError(cause)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
}
