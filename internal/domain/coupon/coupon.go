package coupon

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
)

// Status represents the lifecycle state of a coupon.
type Status string

const (
	StatusActive    Status = "active"
	StatusUsed      Status = "used"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a status coming from the API boundary.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusUsed, StatusExpired, StatusCancelled:
		return st, nil
	}
	return "", domain.NewValidationError(fmt.Sprintf("invalid coupon status: %q", s))
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool { return s != StatusActive }

var (
	ErrAlreadyClaimed = domain.New(domain.ErrConflict, "already_claimed", "offer already claimed by this user")
	ErrNotOwner       = domain.New(domain.ErrForbidden, "not_owner", "coupon belongs to someone else")
	ErrExpired        = domain.New(domain.ErrGone, "coupon_expired", "coupon has expired")
	ErrWrongVenue     = domain.New(domain.ErrForbidden, "wrong_restaurant", "coupon was issued for another restaurant")

	// ErrCodeTaken signals a generated code collision; issuance regenerates.
	ErrCodeTaken = domain.New(domain.ErrConflict, "code_taken", "coupon code already in use")
)

// Coupon is the aggregate root for one customer's claim on an offer.
// Only status and usedAt change after issuance.
type Coupon struct {
	id           uuid.UUID
	offerID      uuid.UUID
	restaurantID uuid.UUID
	userID       uuid.UUID
	code         string
	qrPayload    string
	status       Status
	claimedAt    time.Time
	usedAt       *time.Time
	expiresAt    time.Time
}

// Issue creates an active coupon. expiresAt is frozen from the offer's
// valid_until at claim time.
func Issue(offerID, restaurantID, userID uuid.UUID, code, qrPayload string, expiresAt, now time.Time) *Coupon {
	return &Coupon{
		id:           uuid.New(),
		offerID:      offerID,
		restaurantID: restaurantID,
		userID:       userID,
		code:         code,
		qrPayload:    qrPayload,
		status:       StatusActive,
		claimedAt:    now.UTC(),
		expiresAt:    expiresAt.UTC(),
	}
}

// Reconstruct rebuilds a Coupon from persistence.
func Reconstruct(id, offerID, restaurantID, userID uuid.UUID, code, qrPayload string, status Status, claimedAt time.Time, usedAt *time.Time, expiresAt time.Time) *Coupon {
	return &Coupon{
		id: id, offerID: offerID, restaurantID: restaurantID, userID: userID,
		code: code, qrPayload: qrPayload, status: status,
		claimedAt: claimedAt, usedAt: usedAt, expiresAt: expiresAt,
	}
}

// Getters.
func (c *Coupon) ID() uuid.UUID           { return c.id }
func (c *Coupon) OfferID() uuid.UUID      { return c.offerID }
func (c *Coupon) RestaurantID() uuid.UUID { return c.restaurantID }
func (c *Coupon) UserID() uuid.UUID       { return c.userID }
func (c *Coupon) Code() string            { return c.code }
func (c *Coupon) QRPayload() string       { return c.qrPayload }
func (c *Coupon) Status() Status          { return c.status }
func (c *Coupon) ClaimedAt() time.Time    { return c.claimedAt }
func (c *Coupon) UsedAt() *time.Time      { return c.usedAt }
func (c *Coupon) ExpiresAt() time.Time    { return c.expiresAt }

// IsPastExpiry reports whether now is after expires_at.
func (c *Coupon) IsPastExpiry(now time.Time) bool { return now.After(c.expiresAt) }

// --- State transitions ---

// Redeem transitions active to used. A coupon past its expiry is rejected
// with ErrExpired and stays active; the expiry sweep moves it on.
func (c *Coupon) Redeem(now time.Time) error {
	if c.status != StatusActive {
		return domain.NewInvalidStateError(string(c.status), string(StatusUsed))
	}
	if c.IsPastExpiry(now) {
		return ErrExpired
	}
	usedAt := now.UTC()
	c.status = StatusUsed
	c.usedAt = &usedAt
	return nil
}

// Cancel transitions active to cancelled on behalf of userID.
func (c *Coupon) Cancel(userID uuid.UUID) error {
	if c.userID != userID {
		return ErrNotOwner
	}
	if c.status != StatusActive {
		return domain.NewInvalidStateError(string(c.status), string(StatusCancelled))
	}
	c.status = StatusCancelled
	return nil
}

// Expire transitions active to expired once expires_at has passed.
func (c *Coupon) Expire(now time.Time) error {
	if c.status != StatusActive {
		return domain.NewInvalidStateError(string(c.status), string(StatusExpired))
	}
	if !c.IsPastExpiry(now) {
		return domain.NewValidationError("coupon has not reached its expiry")
	}
	c.status = StatusExpired
	return nil
}
