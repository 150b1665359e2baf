package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Lokeshwarrior12/FineDine/internal/common/events"
	"github.com/Lokeshwarrior12/FineDine/internal/common/kafka"
	"github.com/Lokeshwarrior12/FineDine/internal/domain/coupon"
	"github.com/Lokeshwarrior12/FineDine/internal/domain/loyalty"
	"github.com/Lokeshwarrior12/FineDine/internal/domain/offer"
)

// Source is the CloudEvents source of everything this service publishes.
const Source = "finedine/coupon-service"

const publishTimeout = 5 * time.Second

// EventPublisher writes one CloudEvent to a topic. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

// CouponEventPublisher turns committed coupon transitions into CloudEvents
// on the coupon topic. Publishing never fails the caller; errors are logged.
type CouponEventPublisher struct {
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewCouponEventPublisher creates a new CouponEventPublisher.
func NewCouponEventPublisher(publisher EventPublisher, logger *zap.Logger) *CouponEventPublisher {
	return &CouponEventPublisher{
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (p *CouponEventPublisher) CouponClaimed(ctx context.Context, c *coupon.Coupon, o *offer.Offer) {
	p.publish(ctx, events.CouponClaimed, c, events.CouponClaimedEvent{
		CouponID:           c.ID(),
		OfferID:            c.OfferID(),
		RestaurantID:       c.RestaurantID(),
		RestaurantName:     o.RestaurantName(),
		UserID:             c.UserID(),
		CouponCode:         c.Code(),
		DiscountPercentage: o.DiscountPercentage(),
		PointsAwarded:      loyalty.PointsForDiscount(o.DiscountPercentage()),
		ClaimedAt:          c.ClaimedAt(),
		ExpiresAt:          c.ExpiresAt(),
	})
}

func (p *CouponEventPublisher) CouponCancelled(ctx context.Context, c *coupon.Coupon) {
	p.publish(ctx, events.CouponCancelled, c, p.statusChanged(c))
}

func (p *CouponEventPublisher) CouponRedeemed(ctx context.Context, c *coupon.Coupon) {
	p.publish(ctx, events.CouponRedeemed, c, p.statusChanged(c))
}

func (p *CouponEventPublisher) CouponExpired(ctx context.Context, c *coupon.Coupon) {
	p.publish(ctx, events.CouponExpired, c, p.statusChanged(c))
}

func (p *CouponEventPublisher) statusChanged(c *coupon.Coupon) events.CouponStatusChangedEvent {
	occurredAt := p.now()
	if c.UsedAt() != nil {
		occurredAt = *c.UsedAt()
	}
	return events.CouponStatusChangedEvent{
		CouponID:     c.ID(),
		OfferID:      c.OfferID(),
		RestaurantID: c.RestaurantID(),
		UserID:       c.UserID(),
		CouponCode:   c.Code(),
		Status:       string(c.Status()),
		OccurredAt:   occurredAt,
	}
}

func (p *CouponEventPublisher) publish(ctx context.Context, eventType string, c *coupon.Coupon, data interface{}) {
	ce, err := kafka.NewCloudEvent(Source, eventType, data)
	if err != nil {
		p.logger.Error("failed to build coupon event", zap.String("type", eventType), zap.Error(err))
		return
	}
	// Keyed by offer so one offer's events stay in order.
	ce.Subject = c.OfferID().String()

	// The transition is already committed; a cancelled request must not drop its event.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.publisher.PublishEvent(ctx, events.TopicCouponEvents, ce); err != nil {
		p.logger.Warn("failed to publish coupon event",
			zap.String("type", eventType),
			zap.String("coupon_id", c.ID().String()),
			zap.Error(err),
		)
	}
}
