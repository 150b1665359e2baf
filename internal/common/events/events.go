// Package events defines the topics and payloads exchanged over Kafka.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicCouponEvents  = "coupon.events"
	TopicCatalogOffers = "catalog.offers"
)

// Coupon lifecycle event types, published on TopicCouponEvents.
const (
	CouponClaimed   = "coupon.claimed"
	CouponCancelled = "coupon.cancelled"
	CouponRedeemed  = "coupon.redeemed"
	CouponExpired   = "coupon.expired"
)

// Offer catalog event types, consumed from TopicCatalogOffers.
const (
	OfferUpserted    = "offer.upserted"
	OfferDeactivated = "offer.deactivated"
)

// CouponClaimedEvent is published after a claim commits.
type CouponClaimedEvent struct {
	CouponID           uuid.UUID `json:"coupon_id"`
	OfferID            uuid.UUID `json:"offer_id"`
	RestaurantID       uuid.UUID `json:"restaurant_id"`
	RestaurantName     string    `json:"restaurant_name"`
	UserID             uuid.UUID `json:"user_id"`
	CouponCode         string    `json:"coupon_code"`
	DiscountPercentage int       `json:"discount_percentage"`
	PointsAwarded      int       `json:"points_awarded"`
	ClaimedAt          time.Time `json:"claimed_at"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// CouponStatusChangedEvent is published when a coupon is cancelled,
// redeemed or expired.
type CouponStatusChangedEvent struct {
	CouponID     uuid.UUID `json:"coupon_id"`
	OfferID      uuid.UUID `json:"offer_id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	UserID       uuid.UUID `json:"user_id"`
	CouponCode   string    `json:"coupon_code"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// OfferUpsertedEvent carries an offer's catalog attributes. The claimed
// count is never part of it.
type OfferUpsertedEvent struct {
	OfferID            uuid.UUID  `json:"offer_id"`
	RestaurantID       uuid.UUID  `json:"restaurant_id"`
	RestaurantName     string     `json:"restaurant_name"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	DiscountPercentage int        `json:"discount_percentage"`
	OfferType          string     `json:"offer_type"`
	MaxCoupons         int        `json:"max_coupons"`
	ValidFrom          *time.Time `json:"valid_from,omitempty"`
	ValidUntil         time.Time  `json:"valid_until"`
	IsActive           bool       `json:"is_active"`
}

// OfferDeactivatedEvent stops further claims on an offer.
type OfferDeactivatedEvent struct {
	OfferID uuid.UUID `json:"offer_id"`
}
