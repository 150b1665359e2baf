package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Lokeshwarrior12/FineDine/internal/domain/coupon"
	"github.com/Lokeshwarrior12/FineDine/internal/domain/loyalty"
	"github.com/Lokeshwarrior12/FineDine/internal/domain/offer"
	"github.com/Lokeshwarrior12/FineDine/internal/metrics"
	"github.com/Lokeshwarrior12/FineDine/internal/saga"
)

// codeRetries bounds how often a colliding coupon code is regenerated.
const codeRetries = 3

// ClaimResult is the outcome of a claim. Replayed is set when the coupon
// was issued by an earlier request carrying the same idempotency key.
type ClaimResult struct {
	Coupon        CouponDTO `json:"coupon"`
	PointsAwarded int       `json:"points_awarded"`
	Replayed      bool      `json:"replayed"`
}

// ClaimService issues coupons against capped offers.
type ClaimService struct {
	txm      Transactor
	offers   offer.Repository
	coupons  coupon.Repository
	loyalty  loyalty.Repository
	gen      *coupon.Generator
	sagaSvc  *saga.ClaimSagaService
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewClaimService creates a new ClaimService. sagaSvc may be nil, in which
// case idempotency keys are ignored.
func NewClaimService(
	txm Transactor,
	offers offer.Repository,
	coupons coupon.Repository,
	loyaltyRepo loyalty.Repository,
	gen *coupon.Generator,
	sagaSvc *saga.ClaimSagaService,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ClaimService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ClaimService{
		txm:      txm,
		offers:   offers,
		coupons:  coupons,
		loyalty:  loyaltyRepo,
		gen:      gen,
		sagaSvc:  sagaSvc,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      utcNow,
	}
}

// Claim issues userID a coupon for offerID. Reservation, coupon insert and
// the loyalty credit commit together or not at all.
func (s *ClaimService) Claim(ctx context.Context, offerID, userID uuid.UUID, idempotencyKey string) (*ClaimResult, error) {
	start := time.Now()
	res, err := s.claim(ctx, offerID, userID, idempotencyKey)
	s.metrics.ObserveClaim(err, time.Since(start).Seconds())
	if err != nil {
		if isBusinessError(err) {
			s.logger.Info("claim rejected",
				zap.String("offer_id", offerID.String()),
				zap.String("user_id", userID.String()),
				zap.String("reason", metrics.Outcome(err)),
			)
		} else {
			s.logger.Error("failed to claim coupon",
				zap.String("offer_id", offerID.String()),
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}
	return res, nil
}

func (s *ClaimService) claim(ctx context.Context, offerID, userID uuid.UUID, idempotencyKey string) (*ClaimResult, error) {
	if s.sagaSvc == nil || idempotencyKey == "" {
		c, o, err := s.issue(ctx, offerID, userID)
		if err != nil {
			return nil, err
		}
		return s.issued(ctx, c, o), nil
	}

	var (
		c *coupon.Coupon
		o *offer.Offer
	)
	key := saga.ClaimKey(userID, offerID, idempotencyKey)
	couponID, replayed, err := s.sagaSvc.Run(ctx, key, func(ctx context.Context) (uuid.UUID, error) {
		var err error
		c, o, err = s.issue(ctx, offerID, userID)
		if err != nil {
			return uuid.Nil, err
		}
		return c.ID(), nil
	})
	if err != nil {
		return nil, unwrapSagaError(err)
	}
	if !replayed {
		return s.issued(ctx, c, o), nil
	}

	prev, err := s.coupons.FindByID(ctx, couponID)
	if err != nil {
		return nil, err
	}
	credit, err := s.loyalty.FindByReference(ctx, couponID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("claim replayed",
		zap.String("coupon_id", couponID.String()),
		zap.String("user_id", userID.String()),
	)
	return &ClaimResult{Coupon: toCouponDTO(prev), PointsAwarded: credit.Points, Replayed: true}, nil
}

func (s *ClaimService) issue(ctx context.Context, offerID, userID uuid.UUID) (*coupon.Coupon, *offer.Offer, error) {
	var (
		issued *coupon.Coupon
		o      *offer.Offer
	)
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()

		var err error
		o, err = s.offers.FindByID(ctx, offerID)
		if err != nil {
			return err
		}
		if err := o.CheckClaimable(now); err != nil {
			return err
		}

		existing, err := s.coupons.FindActiveByOfferAndUser(ctx, offerID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return coupon.ErrAlreadyClaimed
		}

		if err := s.offers.TryReserveSlot(ctx, offerID, now); err != nil {
			return err
		}

		c, err := s.insertCoupon(ctx, o, userID, now)
		if err != nil {
			return err
		}

		if err := s.loyalty.Credit(ctx, loyalty.NewCouponCredit(userID, c.ID(), o.DiscountPercentage(), now)); err != nil {
			return err
		}
		issued = c
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return issued, o, nil
}

func (s *ClaimService) insertCoupon(ctx context.Context, o *offer.Offer, userID uuid.UUID, now time.Time) (*coupon.Coupon, error) {
	for attempt := 0; ; attempt++ {
		code, payload, err := s.gen.Generate(o, now)
		if err != nil {
			return nil, err
		}
		c := coupon.Issue(o.ID(), o.RestaurantID(), userID, code, payload, o.ValidUntil(), now)
		err = s.coupons.Insert(ctx, c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, coupon.ErrCodeTaken) || attempt >= codeRetries {
			return nil, err
		}
		s.logger.Warn("coupon code collision, regenerating", zap.String("code", code), zap.Int("attempt", attempt+1))
	}
}

func (s *ClaimService) issued(ctx context.Context, c *coupon.Coupon, o *offer.Offer) *ClaimResult {
	points := loyalty.PointsForDiscount(o.DiscountPercentage())
	s.logger.Info("coupon claimed",
		zap.String("coupon_id", c.ID().String()),
		zap.String("offer_id", o.ID().String()),
		zap.String("user_id", c.UserID().String()),
		zap.Int("points_awarded", points),
	)
	s.notifier.CouponClaimed(ctx, c, o)
	return &ClaimResult{Coupon: toCouponDTO(c), PointsAwarded: points}
}
