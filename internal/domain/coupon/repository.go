package coupon

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence operations for coupons.
type Repository interface {
	// Insert stores a new coupon. A second non-cancelled coupon for the same
	// offer and user fails with ErrAlreadyClaimed; a code collision fails
	// with ErrCodeTaken.
	Insert(ctx context.Context, c *Coupon) error
	FindByID(ctx context.Context, id uuid.UUID) (*Coupon, error)
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	FindActiveByOfferAndUser(ctx context.Context, offerID, userID uuid.UUID) (*Coupon, error)
	// ListByUser returns the user's coupons, newest claim first. An empty
	// status returns all of them.
	ListByUser(ctx context.Context, userID uuid.UUID, status Status) ([]*Coupon, error)
	// MarkUsed, MarkCancelled and MarkExpired apply the transition only if
	// the stored coupon is still active, reporting whether a row changed.
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error)
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
	// ListDue returns up to limit active coupons with expires_at before now,
	// oldest expiry first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Coupon, error)
}
