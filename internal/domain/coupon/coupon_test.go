package coupon

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
)

func newActive(t *testing.T, expiresIn time.Duration) (*Coupon, uuid.UUID, time.Time) {
	t.Helper()
	now := time.Now().UTC()
	owner := uuid.New()
	c := Issue(uuid.New(), uuid.New(), owner, "FD-TEST-0001", `{"code":"FD-TEST-0001"}`, now.Add(expiresIn), now)
	require.Equal(t, StatusActive, c.Status())
	return c, owner, now
}

func TestRedeem(t *testing.T) {
	c, _, now := newActive(t, time.Hour)

	require.NoError(t, c.Redeem(now))
	assert.Equal(t, StatusUsed, c.Status())
	require.NotNil(t, c.UsedAt())
	assert.Equal(t, now, *c.UsedAt())

	err := c.Redeem(now)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRedeem_PastExpiryStaysActive(t *testing.T) {
	c, _, now := newActive(t, time.Hour)

	err := c.Redeem(now.Add(2 * time.Hour))
	assert.ErrorIs(t, err, ErrExpired)
	assert.ErrorIs(t, err, domain.ErrGone)
	assert.Equal(t, StatusActive, c.Status())
	assert.Nil(t, c.UsedAt())
}

func TestRedeem_AtExpiryBoundary(t *testing.T) {
	c, _, _ := newActive(t, time.Hour)
	assert.NoError(t, c.Redeem(c.ExpiresAt()))
}

func TestCancel(t *testing.T) {
	c, owner, _ := newActive(t, time.Hour)

	assert.ErrorIs(t, c.Cancel(uuid.New()), ErrNotOwner)
	assert.Equal(t, StatusActive, c.Status())

	require.NoError(t, c.Cancel(owner))
	assert.Equal(t, StatusCancelled, c.Status())

	assert.ErrorIs(t, c.Cancel(owner), domain.ErrInvalidState)
}

func TestExpire(t *testing.T) {
	c, _, now := newActive(t, time.Hour)

	assert.ErrorIs(t, c.Expire(now), domain.ErrValidation)
	require.NoError(t, c.Expire(now.Add(2*time.Hour)))
	assert.Equal(t, StatusExpired, c.Status())

	assert.ErrorIs(t, c.Redeem(now), domain.ErrInvalidState)
	assert.ErrorIs(t, c.Cancel(c.UserID()), domain.ErrInvalidState)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("used")
	require.NoError(t, err)
	assert.Equal(t, StatusUsed, st)
	assert.True(t, st.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())

	_, err = ParseStatus("redeemed")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
