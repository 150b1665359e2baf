package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Lokeshwarrior12/FineDine/internal/common/database"
	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
	offerDomain "github.com/Lokeshwarrior12/FineDine/internal/domain/offer"
)

// OfferModel is the GORM model for the offers table.
type OfferModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	RestaurantID       uuid.UUID `gorm:"type:uuid;not null;index"`
	RestaurantName     string    `gorm:"type:varchar(200);not null;default:''"`
	Title              string    `gorm:"type:varchar(200);not null"`
	Description        string    `gorm:"type:text;not null;default:''"`
	DiscountPercentage int       `gorm:"not null;check:chk_offers_discount,discount_percentage BETWEEN 30 AND 50"`
	OfferType          string    `gorm:"type:varchar(20);not null;check:chk_offers_type,offer_type IN ('dine_in','pickup','both')"`
	MaxCoupons         int       `gorm:"not null;check:chk_offers_max,max_coupons >= 1"`
	CouponsClaimed     int       `gorm:"not null;default:0;check:chk_offers_claimed,coupons_claimed >= 0 AND coupons_claimed <= max_coupons"`
	ValidFrom          *time.Time
	ValidUntil         time.Time `gorm:"not null;index"`
	IsActive           bool      `gorm:"not null"`
	Version            int64     `gorm:"not null;default:1"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (OfferModel) TableName() string { return "offers" }

// GormOfferRepository implements offer.Repository using GORM. It is also
// the offer ledger: the claimed count is only changed by the conditional
// updates in TryReserveSlot and ReleaseSlot.
type GormOfferRepository struct {
	db *gorm.DB
}

// NewGormOfferRepository creates a new GormOfferRepository.
func NewGormOfferRepository(db *gorm.DB) *GormOfferRepository {
	return &GormOfferRepository{db: db}
}

// TryReserveSlot increments coupons_claimed only while it is below
// max_coupons and the offer is claimable at now. The row lock taken by the
// update serializes concurrent reservations on the same offer.
func (r *GormOfferRepository) TryReserveSlot(ctx context.Context, offerID uuid.UUID, now time.Time) error {
	now = dbTime(now)
	res := database.Conn(ctx, r.db).Model(&OfferModel{}).
		Where("id = ? AND is_active = ? AND coupons_claimed < max_coupons", offerID, true).
		Where("valid_until >= ? AND (valid_from IS NULL OR valid_from <= ?)", now, now).
		Updates(map[string]interface{}{
			"coupons_claimed": gorm.Expr("coupons_claimed + 1"),
			"version":         gorm.Expr("version + 1"),
			"updated_at":      now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	o, err := r.FindByID(ctx, offerID)
	if err != nil {
		return err
	}
	if err := o.CheckClaimable(now); err != nil {
		return err
	}
	return offerDomain.ErrCapacityExceeded
}

// ReleaseSlot decrements coupons_claimed, never below zero.
func (r *GormOfferRepository) ReleaseSlot(ctx context.Context, offerID uuid.UUID) error {
	res := database.Conn(ctx, r.db).Model(&OfferModel{}).
		Where("id = ? AND coupons_claimed > 0", offerID).
		Updates(map[string]interface{}{
			"coupons_claimed": gorm.Expr("coupons_claimed - 1"),
			"version":         gorm.Expr("version + 1"),
			"updated_at":      dbTime(time.Now()),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, offerID); err != nil {
			return err
		}
	}
	return nil
}

// Save persists a new offer.
func (r *GormOfferRepository) Save(ctx context.Context, o *offerDomain.Offer) error {
	model := toOfferModel(o)
	if err := database.Conn(ctx, r.db).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("offer " + o.ID().String() + " already exists")
		}
		return err
	}
	return nil
}

// Update writes catalog attributes and capacity. The max_coupons guard
// rejects a write that would lower a capacity raised concurrently.
func (r *GormOfferRepository) Update(ctx context.Context, o *offerDomain.Offer) error {
	model := toOfferModel(o)
	res := database.Conn(ctx, r.db).Model(&OfferModel{}).
		Where("id = ? AND max_coupons <= ?", model.ID, model.MaxCoupons).
		Updates(map[string]interface{}{
			"restaurant_name":     model.RestaurantName,
			"title":               model.Title,
			"description":         model.Description,
			"discount_percentage": model.DiscountPercentage,
			"offer_type":          model.OfferType,
			"max_coupons":         model.MaxCoupons,
			"valid_from":          model.ValidFrom,
			"valid_until":         model.ValidUntil,
			"is_active":           model.IsActive,
			"version":             gorm.Expr("version + 1"),
			"updated_at":          model.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, model.ID); err != nil {
			return err
		}
		return domain.NewConflictError("offer capacity was changed concurrently")
	}
	return nil
}

// FindByID returns an offer with a fresh claimed count.
func (r *GormOfferRepository) FindByID(ctx context.Context, id uuid.UUID) (*offerDomain.Offer, error) {
	var model OfferModel
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("offer", id.String())
		}
		return nil, err
	}
	return toOfferDomain(&model), nil
}

// ListClaimable returns active offers inside their window with capacity
// left, best discount first.
func (r *GormOfferRepository) ListClaimable(ctx context.Context, now time.Time, restaurantID *uuid.UUID) ([]*offerDomain.Offer, error) {
	now = dbTime(now)
	q := database.Conn(ctx, r.db).
		Where("is_active = ? AND coupons_claimed < max_coupons", true).
		Where("valid_until >= ? AND (valid_from IS NULL OR valid_from <= ?)", now, now)
	if restaurantID != nil {
		q = q.Where("restaurant_id = ?", *restaurantID)
	}

	var models []OfferModel
	if err := q.Order("discount_percentage DESC").Order("valid_until ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	offers := make([]*offerDomain.Offer, len(models))
	for i := range models {
		offers[i] = toOfferDomain(&models[i])
	}
	return offers, nil
}

// --- Mappers ---

func toOfferModel(o *offerDomain.Offer) OfferModel {
	var validFrom *time.Time
	if o.ValidFrom() != nil {
		t := dbTime(*o.ValidFrom())
		validFrom = &t
	}
	return OfferModel{
		ID:                 o.ID(),
		RestaurantID:       o.RestaurantID(),
		RestaurantName:     o.RestaurantName(),
		Title:              o.Title(),
		Description:        o.Description(),
		DiscountPercentage: o.DiscountPercentage(),
		OfferType:          string(o.OfferType()),
		MaxCoupons:         o.MaxCoupons(),
		CouponsClaimed:     o.CouponsClaimed(),
		ValidFrom:          validFrom,
		ValidUntil:         dbTime(o.ValidUntil()),
		IsActive:           o.IsActive(),
		Version:            o.Version(),
		CreatedAt:          dbTime(o.CreatedAt()),
		UpdatedAt:          dbTime(o.UpdatedAt()),
	}
}

func toOfferDomain(m *OfferModel) *offerDomain.Offer {
	var validFrom *time.Time
	if m.ValidFrom != nil {
		t := m.ValidFrom.UTC()
		validFrom = &t
	}
	return offerDomain.Reconstruct(
		m.ID, m.RestaurantID, m.RestaurantName, m.Title, m.Description,
		m.DiscountPercentage, offerDomain.Type(m.OfferType),
		m.MaxCoupons, m.CouponsClaimed,
		validFrom, m.ValidUntil.UTC(), m.IsActive, m.Version,
		m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	)
}

// dbTime normalizes t to the precision both Postgres and sqlite keep.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
