package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Lokeshwarrior12/FineDine/internal/common/database"
	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
	couponDomain "github.com/Lokeshwarrior12/FineDine/internal/domain/coupon"
)

// CouponModel is the GORM model for the coupons table. idx_coupons_active_holder
// allows one non-cancelled coupon per (offer, user).
type CouponModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	OfferID      uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_coupons_active_holder,priority:1,where:status <> 'cancelled'"`
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index:idx_coupons_user_claimed,priority:1;uniqueIndex:idx_coupons_active_holder,priority:2,where:status <> 'cancelled'"`
	CouponCode   string    `gorm:"type:varchar(40);uniqueIndex;not null"`
	QRPayload    string    `gorm:"column:qr_payload;type:text;not null"`
	Status       string    `gorm:"type:varchar(20);not null;index;check:chk_coupons_status,status IN ('active','used','expired','cancelled')"`
	ClaimedAt    time.Time `gorm:"not null;index:idx_coupons_user_claimed,priority:2"`
	UsedAt       *time.Time
	ExpiresAt    time.Time `gorm:"not null;index"`
}

// TableName sets the table name.
func (CouponModel) TableName() string { return "coupons" }

// GormCouponRepository implements coupon.Repository using GORM.
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository.
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// Insert persists a new coupon inside a savepoint so that a unique
// violation leaves an enclosing transaction usable.
func (r *GormCouponRepository) Insert(ctx context.Context, c *couponDomain.Coupon) error {
	model := toCouponModel(c)
	conn := database.Conn(ctx, r.db)

	err := conn.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&model).Error
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}

	var taken int64
	if err := conn.Model(&CouponModel{}).Where("coupon_code = ?", model.CouponCode).Count(&taken).Error; err != nil {
		return err
	}
	if taken > 0 {
		return couponDomain.ErrCodeTaken
	}
	return couponDomain.ErrAlreadyClaimed
}

// FindByID returns a coupon by ID.
func (r *GormCouponRepository) FindByID(ctx context.Context, id uuid.UUID) (*couponDomain.Coupon, error) {
	var model CouponModel
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("coupon", id.String())
		}
		return nil, err
	}
	return toCouponDomain(&model), nil
}

// FindByCode returns a coupon by its code.
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*couponDomain.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var model CouponModel
	if err := database.Conn(ctx, r.db).Where("coupon_code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("coupon", code)
		}
		return nil, err
	}
	return toCouponDomain(&model), nil
}

// FindActiveByOfferAndUser returns the user's non-cancelled coupon for the
// offer, or nil if there is none.
func (r *GormCouponRepository) FindActiveByOfferAndUser(ctx context.Context, offerID, userID uuid.UUID) (*couponDomain.Coupon, error) {
	var models []CouponModel
	if err := database.Conn(ctx, r.db).
		Where("offer_id = ? AND user_id = ? AND status <> ?", offerID, userID, string(couponDomain.StatusCancelled)).
		Limit(1).
		Find(&models).Error; err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	return toCouponDomain(&models[0]), nil
}

// ListByUser returns the user's coupons, most recent claim first.
func (r *GormCouponRepository) ListByUser(ctx context.Context, userID uuid.UUID, status couponDomain.Status) ([]*couponDomain.Coupon, error) {
	q := database.Conn(ctx, r.db).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}

	var models []CouponModel
	if err := q.Order("claimed_at DESC").Order("id DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	coupons := make([]*couponDomain.Coupon, len(models))
	for i := range models {
		coupons[i] = toCouponDomain(&models[i])
	}
	return coupons, nil
}

// MarkUsed moves an active coupon to used.
func (r *GormCouponRepository) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error) {
	return r.transition(ctx, id, map[string]interface{}{
		"status":  string(couponDomain.StatusUsed),
		"used_at": dbTime(usedAt),
	})
}

// MarkCancelled moves an active coupon to cancelled.
func (r *GormCouponRepository) MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(ctx, id, map[string]interface{}{
		"status": string(couponDomain.StatusCancelled),
	})
}

func (r *GormCouponRepository) transition(ctx context.Context, id uuid.UUID, values map[string]interface{}) (bool, error) {
	res := database.Conn(ctx, r.db).Model(&CouponModel{}).
		Where("id = ? AND status = ?", id, string(couponDomain.StatusActive)).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkExpired moves an active coupon to expired.
func (r *GormCouponRepository) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(ctx, id, map[string]interface{}{
		"status": string(couponDomain.StatusExpired),
	})
}

// ListDue returns up to limit active coupons whose expires_at is before now.
func (r *GormCouponRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*couponDomain.Coupon, error) {
	var models []CouponModel
	if err := database.Conn(ctx, r.db).
		Where("status = ? AND expires_at < ?", string(couponDomain.StatusActive), dbTime(now)).
		Order("expires_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}

	coupons := make([]*couponDomain.Coupon, len(models))
	for i := range models {
		coupons[i] = toCouponDomain(&models[i])
	}
	return coupons, nil
}

// --- Mappers ---

func toCouponModel(c *couponDomain.Coupon) CouponModel {
	var usedAt *time.Time
	if c.UsedAt() != nil {
		t := dbTime(*c.UsedAt())
		usedAt = &t
	}
	return CouponModel{
		ID:           c.ID(),
		OfferID:      c.OfferID(),
		RestaurantID: c.RestaurantID(),
		UserID:       c.UserID(),
		CouponCode:   c.Code(),
		QRPayload:    c.QRPayload(),
		Status:       string(c.Status()),
		ClaimedAt:    dbTime(c.ClaimedAt()),
		UsedAt:       usedAt,
		ExpiresAt:    dbTime(c.ExpiresAt()),
	}
}

func toCouponDomain(m *CouponModel) *couponDomain.Coupon {
	var usedAt *time.Time
	if m.UsedAt != nil {
		t := m.UsedAt.UTC()
		usedAt = &t
	}
	return couponDomain.Reconstruct(
		m.ID, m.OfferID, m.RestaurantID, m.UserID,
		m.CouponCode, m.QRPayload, couponDomain.Status(m.Status),
		m.ClaimedAt.UTC(), usedAt, m.ExpiresAt.UTC(),
	)
}
