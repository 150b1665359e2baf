package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
	"github.com/Lokeshwarrior12/FineDine/internal/common/events"
	"github.com/Lokeshwarrior12/FineDine/internal/domain/offer"
)

// OfferService manages the offers coupons are claimed against. It never
// changes an offer's claimed count.
type OfferService struct {
	txm    Transactor
	repo   offer.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewOfferService creates a new OfferService.
func NewOfferService(txm Transactor, repo offer.Repository, logger *zap.Logger) *OfferService {
	return &OfferService{txm: txm, repo: repo, logger: logger, now: utcNow}
}

// RegisterOffer creates an offer owned by restaurantID.
func (s *OfferService) RegisterOffer(ctx context.Context, restaurantID uuid.UUID, req RegisterOfferRequest) (*OfferDTO, error) {
	o, err := offer.NewOffer(restaurantID, offer.Details{
		RestaurantName:     req.RestaurantName,
		Title:              req.Title,
		Description:        req.Description,
		DiscountPercentage: req.DiscountPercentage,
		OfferType:          offer.Type(req.OfferType),
		ValidFrom:          req.ValidFrom,
		ValidUntil:         req.ValidUntil,
	}, req.MaxCoupons)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, o); err != nil {
		s.logger.Error("failed to save offer", zap.Error(err))
		return nil, err
	}

	s.logger.Info("offer registered",
		zap.String("offer_id", o.ID().String()),
		zap.String("restaurant_id", restaurantID.String()),
		zap.Int("max_coupons", o.MaxCoupons()),
	)
	dto := toOfferDTO(o)
	return &dto, nil
}

// GetOffer retrieves an offer by its ID.
func (s *OfferService) GetOffer(ctx context.Context, offerID uuid.UUID) (*OfferDTO, error) {
	o, err := s.repo.FindByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	dto := toOfferDTO(o)
	return &dto, nil
}

// ListClaimable returns the offers a customer can claim right now, best
// discount first. restaurantID narrows the list to one restaurant.
func (s *OfferService) ListClaimable(ctx context.Context, restaurantID *uuid.UUID) ([]OfferDTO, error) {
	offers, err := s.repo.ListClaimable(ctx, s.now(), restaurantID)
	if err != nil {
		return nil, err
	}
	dtos := make([]OfferDTO, len(offers))
	for i, o := range offers {
		dtos[i] = toOfferDTO(o)
	}
	return dtos, nil
}

// RaiseCapacity sets a higher max_coupons. A non-nil scope restricts the
// change to that restaurant's offers.
func (s *OfferService) RaiseCapacity(ctx context.Context, offerID uuid.UUID, scope *uuid.UUID, maxCoupons int) (*OfferDTO, error) {
	return s.modify(ctx, offerID, scope, func(o *offer.Offer) error {
		return o.RaiseCapacity(maxCoupons)
	})
}

// DeactivateOffer stops further claims. Issued coupons stay valid.
func (s *OfferService) DeactivateOffer(ctx context.Context, offerID uuid.UUID, scope *uuid.UUID) (*OfferDTO, error) {
	return s.modify(ctx, offerID, scope, func(o *offer.Offer) error {
		o.Deactivate()
		return nil
	})
}

func (s *OfferService) modify(ctx context.Context, offerID uuid.UUID, scope *uuid.UUID, change func(o *offer.Offer) error) (*OfferDTO, error) {
	var o *offer.Offer
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.repo.FindByID(ctx, offerID)
		if err != nil {
			return err
		}
		if scope != nil {
			if err := o.CheckManagedBy(*scope); err != nil {
				return err
			}
		}
		if err := change(o); err != nil {
			return err
		}
		return s.repo.Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("offer updated",
		zap.String("offer_id", o.ID().String()),
		zap.Int("max_coupons", o.MaxCoupons()),
		zap.Bool("is_active", o.IsActive()),
	)
	dto := toOfferDTO(o)
	return &dto, nil
}

// HandleOfferUpserted creates or updates an offer from the catalog. The
// claimed count of an existing offer is left untouched and capacity may
// not shrink.
func (s *OfferService) HandleOfferUpserted(ctx context.Context, event events.OfferUpsertedEvent) error {
	details := offer.Details{
		RestaurantName:     event.RestaurantName,
		Title:              event.Title,
		Description:        event.Description,
		DiscountPercentage: event.DiscountPercentage,
		OfferType:          offer.Type(event.OfferType),
		ValidFrom:          event.ValidFrom,
		ValidUntil:         event.ValidUntil,
	}

	return s.txm.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.FindByID(ctx, event.OfferID)
		if errors.Is(err, domain.ErrNotFound) {
			created, err := offer.NewOfferWithID(event.OfferID, event.RestaurantID, details, event.MaxCoupons)
			if err != nil {
				return err
			}
			if !event.IsActive {
				created.Deactivate()
			}
			s.logger.Info("offer imported from catalog", zap.String("offer_id", event.OfferID.String()))
			return s.repo.Save(ctx, created)
		}
		if err != nil {
			return err
		}

		if o.RestaurantID() != event.RestaurantID {
			s.logger.Warn("catalog event names a different restaurant, keeping the original",
				zap.String("offer_id", event.OfferID.String()),
				zap.String("restaurant_id", o.RestaurantID().String()),
				zap.String("event_restaurant_id", event.RestaurantID.String()),
			)
		}
		if err := o.UpdateDetails(details); err != nil {
			return err
		}
		if event.MaxCoupons > o.MaxCoupons() {
			if err := o.RaiseCapacity(event.MaxCoupons); err != nil {
				return err
			}
		} else if event.MaxCoupons < o.MaxCoupons() {
			s.logger.Warn("catalog lowered max_coupons, keeping current capacity",
				zap.String("offer_id", event.OfferID.String()),
				zap.Int("max_coupons", o.MaxCoupons()),
				zap.Int("event_max_coupons", event.MaxCoupons),
			)
		}
		if event.IsActive {
			o.Activate()
		} else {
			o.Deactivate()
		}
		s.logger.Info("offer updated from catalog", zap.String("offer_id", event.OfferID.String()))
		return s.repo.Update(ctx, o)
	})
}

// HandleOfferDeactivated deactivates an offer. Unknown offers are ignored.
func (s *OfferService) HandleOfferDeactivated(ctx context.Context, event events.OfferDeactivatedEvent) error {
	_, err := s.DeactivateOffer(ctx, event.OfferID, nil)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("deactivation for unknown offer, skipping", zap.String("offer_id", event.OfferID.String()))
		return nil
	}
	return err
}
