package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
	"github.com/Lokeshwarrior12/FineDine/internal/domain/coupon"
	"github.com/Lokeshwarrior12/FineDine/internal/domain/offer"
	"github.com/Lokeshwarrior12/FineDine/internal/metrics"
)

// DefaultSweepBatch is how many coupons one expiry transaction handles.
const DefaultSweepBatch = 500

// RedemptionService moves issued coupons through the rest of their lifecycle.
type RedemptionService struct {
	txm        Transactor
	ledger     offer.Ledger
	coupons    coupon.Repository
	notifier   Notifier
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
	sweepBatch int
}

// NewRedemptionService creates a new RedemptionService.
func NewRedemptionService(
	txm Transactor,
	ledger offer.Ledger,
	coupons coupon.Repository,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *RedemptionService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &RedemptionService{
		txm:        txm,
		ledger:     ledger,
		coupons:    coupons,
		notifier:   notifier,
		metrics:    m,
		logger:     logger,
		now:        utcNow,
		sweepBatch: DefaultSweepBatch,
	}
}

// Redeem marks the coupon used. When restaurantScope is set the coupon must
// have been issued for that restaurant.
func (s *RedemptionService) Redeem(ctx context.Context, couponID uuid.UUID, restaurantScope *uuid.UUID) (*CouponDTO, error) {
	c, err := s.coupons.FindByID(ctx, couponID)
	if err != nil {
		s.metrics.ObserveRedemption(err)
		return nil, err
	}
	return s.redeem(ctx, c, restaurantScope)
}

// RedeemByCode is Redeem for a typed coupon code or a scanned QR payload.
func (s *RedemptionService) RedeemByCode(ctx context.Context, codeOrPayload string, restaurantScope *uuid.UUID) (*CouponDTO, error) {
	code, err := coupon.ParsePayload(codeOrPayload)
	if err != nil {
		s.metrics.ObserveRedemption(err)
		return nil, err
	}
	c, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		s.metrics.ObserveRedemption(err)
		return nil, err
	}
	return s.redeem(ctx, c, restaurantScope)
}

func (s *RedemptionService) redeem(ctx context.Context, c *coupon.Coupon, restaurantScope *uuid.UUID) (*CouponDTO, error) {
	err := s.markUsed(ctx, c, restaurantScope)
	s.metrics.ObserveRedemption(err)
	if err != nil {
		s.logFailure("redeem", c.ID(), err)
		return nil, err
	}

	s.logger.Info("coupon redeemed",
		zap.String("coupon_id", c.ID().String()),
		zap.String("restaurant_id", c.RestaurantID().String()),
	)
	s.notifier.CouponRedeemed(ctx, c)

	dto := toCouponDTO(c)
	return &dto, nil
}

func (s *RedemptionService) markUsed(ctx context.Context, c *coupon.Coupon, restaurantScope *uuid.UUID) error {
	if restaurantScope != nil && *restaurantScope != c.RestaurantID() {
		return coupon.ErrWrongVenue
	}
	if err := c.Redeem(s.now()); err != nil {
		return err
	}

	changed, err := s.coupons.MarkUsed(ctx, c.ID(), *c.UsedAt())
	if err != nil {
		return err
	}
	if !changed {
		return s.lostRace(ctx, c.ID(), coupon.StatusUsed)
	}
	return nil
}

// Cancel withdraws the owner's active coupon and gives its slot back to
// the offer in the same transaction.
func (s *RedemptionService) Cancel(ctx context.Context, couponID, userID uuid.UUID) (*CouponDTO, error) {
	var c *coupon.Coupon
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.coupons.FindByID(ctx, couponID)
		if err != nil {
			return err
		}
		if err := c.Cancel(userID); err != nil {
			return err
		}

		changed, err := s.coupons.MarkCancelled(ctx, couponID)
		if err != nil {
			return err
		}
		if !changed {
			return s.lostRace(ctx, couponID, coupon.StatusCancelled)
		}
		return s.ledger.ReleaseSlot(ctx, c.OfferID())
	})
	s.metrics.ObserveCancellation(err)
	if err != nil {
		s.logFailure("cancel", couponID, err)
		return nil, err
	}

	s.logger.Info("coupon cancelled",
		zap.String("coupon_id", c.ID().String()),
		zap.String("offer_id", c.OfferID().String()),
		zap.String("user_id", userID.String()),
	)
	s.notifier.CouponCancelled(ctx, c)

	dto := toCouponDTO(c)
	return &dto, nil
}

// ExpireDue moves every active coupon past its expiry to expired, one batch
// per transaction, and returns how many it changed.
func (s *RedemptionService) ExpireDue(ctx context.Context) (int, error) {
	now := s.now()
	total := 0
	for {
		var selected int
		var batch []*coupon.Coupon
		err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
			due, err := s.coupons.ListDue(ctx, now, s.sweepBatch)
			if err != nil {
				return err
			}
			selected = len(due)
			batch = batch[:0]
			for _, c := range due {
				if err := c.Expire(now); err != nil {
					return err
				}
				// A coupon redeemed or cancelled since the select stays as it is.
				changed, err := s.coupons.MarkExpired(ctx, c.ID())
				if err != nil {
					return err
				}
				if changed {
					batch = append(batch, c)
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Error("expiry sweep failed", zap.Int("expired", total), zap.Error(err))
			return total, err
		}

		for _, c := range batch {
			s.notifier.CouponExpired(ctx, c)
		}
		total += len(batch)
		s.metrics.AddExpired(len(batch))

		if selected < s.sweepBatch {
			break
		}
	}

	if total > 0 {
		s.logger.Info("expired coupons", zap.Int("count", total))
	}
	return total, nil
}

// lostRace reports the transition another request applied first.
func (s *RedemptionService) lostRace(ctx context.Context, couponID uuid.UUID, to coupon.Status) error {
	current, err := s.coupons.FindByID(ctx, couponID)
	if err != nil {
		return err
	}
	return domain.NewInvalidStateError(string(current.Status()), string(to))
}

func (s *RedemptionService) logFailure(op string, couponID uuid.UUID, err error) {
	if isBusinessError(err) {
		s.logger.Info(op+" rejected",
			zap.String("coupon_id", couponID.String()),
			zap.String("reason", metrics.Outcome(err)),
		)
		return
	}
	s.logger.Error("failed to "+op+" coupon", zap.String("coupon_id", couponID.String()), zap.Error(err))
}
