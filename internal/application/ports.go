package application

import (
	"context"
	"time"

	"github.com/Lokeshwarrior12/FineDine/internal/domain/coupon"
	"github.com/Lokeshwarrior12/FineDine/internal/domain/offer"
)

// Transactor runs fn inside one storage transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier is told about committed coupon transitions. Implementations
// must not fail the caller; delivery problems are theirs to log.
type Notifier interface {
	CouponClaimed(ctx context.Context, c *coupon.Coupon, o *offer.Offer)
	CouponCancelled(ctx context.Context, c *coupon.Coupon)
	CouponRedeemed(ctx context.Context, c *coupon.Coupon)
	CouponExpired(ctx context.Context, c *coupon.Coupon)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) CouponClaimed(context.Context, *coupon.Coupon, *offer.Offer) {}
func (NopNotifier) CouponCancelled(context.Context, *coupon.Coupon)             {}
func (NopNotifier) CouponRedeemed(context.Context, *coupon.Coupon)              {}
func (NopNotifier) CouponExpired(context.Context, *coupon.Coupon)               {}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
