package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/Lokeshwarrior12/FineDine/internal/domain/coupon"
)

// CouponService answers read-only questions about a user's coupons.
type CouponService struct {
	coupons coupon.Repository
}

// NewCouponService creates a new CouponService.
func NewCouponService(coupons coupon.Repository) *CouponService {
	return &CouponService{coupons: coupons}
}

// ListCoupons returns the user's coupons, newest claim first, optionally
// filtered by status.
func (s *CouponService) ListCoupons(ctx context.Context, userID uuid.UUID, status string) ([]CouponDTO, error) {
	var filter coupon.Status
	if status != "" {
		st, err := coupon.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter = st
	}

	coupons, err := s.coupons.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	dtos := make([]CouponDTO, len(coupons))
	for i, c := range coupons {
		dtos[i] = toCouponDTO(c)
	}
	return dtos, nil
}

// GetCoupon returns one of the user's coupons.
func (s *CouponService) GetCoupon(ctx context.Context, couponID, userID uuid.UUID) (*CouponDTO, error) {
	c, err := s.coupons.FindByID(ctx, couponID)
	if err != nil {
		return nil, err
	}
	if c.UserID() != userID {
		return nil, coupon.ErrNotOwner
	}
	dto := toCouponDTO(c)
	return &dto, nil
}
