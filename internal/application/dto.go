package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/Lokeshwarrior12/FineDine/internal/domain/coupon"
	"github.com/Lokeshwarrior12/FineDine/internal/domain/loyalty"
	"github.com/Lokeshwarrior12/FineDine/internal/domain/offer"
)

// RegisterOfferRequest is the DTO for creating an offer.
type RegisterOfferRequest struct {
	RestaurantName     string     `json:"restaurant_name" binding:"required"`
	Title              string     `json:"title" binding:"required"`
	Description        string     `json:"description"`
	DiscountPercentage int        `json:"discount_percentage" binding:"required,min=30,max=50"`
	OfferType          string     `json:"offer_type" binding:"required,oneof=dine_in pickup both"`
	MaxCoupons         int        `json:"max_coupons" binding:"required,min=1"`
	ValidFrom          *time.Time `json:"valid_from"`
	ValidUntil         time.Time  `json:"valid_until" binding:"required"`
}

// RaiseCapacityRequest is the DTO for raising an offer's max_coupons.
type RaiseCapacityRequest struct {
	MaxCoupons int `json:"max_coupons" binding:"required,min=1"`
}

// RedeemRequest carries a typed coupon code or a scanned QR payload.
type RedeemRequest struct {
	Code string `json:"code" binding:"required"`
}

// OfferDTO is the API response DTO for offer data.
type OfferDTO struct {
	ID                 uuid.UUID  `json:"id"`
	RestaurantID       uuid.UUID  `json:"restaurant_id"`
	RestaurantName     string     `json:"restaurant_name"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	DiscountPercentage int        `json:"discount_percentage"`
	OfferType          string     `json:"offer_type"`
	MaxCoupons         int        `json:"max_coupons"`
	CouponsClaimed     int        `json:"coupons_claimed"`
	CouponsRemaining   int        `json:"coupons_remaining"`
	ValidFrom          *time.Time `json:"valid_from,omitempty"`
	ValidUntil         time.Time  `json:"valid_until"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// CouponDTO is the API response DTO for coupon data.
type CouponDTO struct {
	ID           uuid.UUID  `json:"id"`
	OfferID      uuid.UUID  `json:"offer_id"`
	RestaurantID uuid.UUID  `json:"restaurant_id"`
	UserID       uuid.UUID  `json:"user_id"`
	CouponCode   string     `json:"coupon_code"`
	QRPayload    string     `json:"qr_payload"`
	Status       string     `json:"status"`
	ClaimedAt    time.Time  `json:"claimed_at"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

// LoyaltyTransactionDTO is one ledger entry.
type LoyaltyTransactionDTO struct {
	Points      int       `json:"points"`
	Reason      string    `json:"reason"`
	ReferenceID uuid.UUID `json:"reference_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// LoyaltyDTO is a user's balance with their latest ledger entries.
type LoyaltyDTO struct {
	UserID       uuid.UUID               `json:"user_id"`
	Points       int                     `json:"points"`
	Transactions []LoyaltyTransactionDTO `json:"transactions"`
}

func toOfferDTO(o *offer.Offer) OfferDTO {
	return OfferDTO{
		ID:                 o.ID(),
		RestaurantID:       o.RestaurantID(),
		RestaurantName:     o.RestaurantName(),
		Title:              o.Title(),
		Description:        o.Description(),
		DiscountPercentage: o.DiscountPercentage(),
		OfferType:          string(o.OfferType()),
		MaxCoupons:         o.MaxCoupons(),
		CouponsClaimed:     o.CouponsClaimed(),
		CouponsRemaining:   o.Remaining(),
		ValidFrom:          o.ValidFrom(),
		ValidUntil:         o.ValidUntil(),
		IsActive:           o.IsActive(),
		CreatedAt:          o.CreatedAt(),
		UpdatedAt:          o.UpdatedAt(),
	}
}

func toCouponDTO(c *coupon.Coupon) CouponDTO {
	return CouponDTO{
		ID:           c.ID(),
		OfferID:      c.OfferID(),
		RestaurantID: c.RestaurantID(),
		UserID:       c.UserID(),
		CouponCode:   c.Code(),
		QRPayload:    c.QRPayload(),
		Status:       string(c.Status()),
		ClaimedAt:    c.ClaimedAt(),
		UsedAt:       c.UsedAt(),
		ExpiresAt:    c.ExpiresAt(),
	}
}

func toLoyaltyDTO(a *loyalty.Account, txs []loyalty.Transaction) LoyaltyDTO {
	dto := LoyaltyDTO{
		UserID:       a.UserID,
		Points:       a.Points,
		Transactions: make([]LoyaltyTransactionDTO, len(txs)),
	}
	for i, t := range txs {
		dto.Transactions[i] = LoyaltyTransactionDTO{
			Points:      t.Points,
			Reason:      string(t.Reason),
			ReferenceID: t.ReferenceID,
			CreatedAt:   t.CreatedAt,
		}
	}
	return dto
}
