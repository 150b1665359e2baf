package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Lokeshwarrior12/FineDine/internal/common/database"
	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
	loyaltyDomain "github.com/Lokeshwarrior12/FineDine/internal/domain/loyalty"
)

// LoyaltyAccountModel is the GORM model for the loyalty_accounts table.
type LoyaltyAccountModel struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Points    int       `gorm:"not null;default:0;check:chk_loyalty_points,points >= 0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (LoyaltyAccountModel) TableName() string { return "loyalty_accounts" }

// LoyaltyTransactionModel is the GORM model for the loyalty_transactions table.
type LoyaltyTransactionModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Points      int       `gorm:"not null"`
	Reason      string    `gorm:"type:varchar(40);not null"`
	ReferenceID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (LoyaltyTransactionModel) TableName() string { return "loyalty_transactions" }

// GormLoyaltyRepository implements loyalty.Repository using GORM.
type GormLoyaltyRepository struct {
	db *gorm.DB
}

// NewGormLoyaltyRepository creates a new GormLoyaltyRepository.
func NewGormLoyaltyRepository(db *gorm.DB) *GormLoyaltyRepository {
	return &GormLoyaltyRepository{db: db}
}

// Credit writes the ledger row and upserts the balance. The unique
// reference_id turns a repeated credit for the same coupon into a conflict.
func (r *GormLoyaltyRepository) Credit(ctx context.Context, t loyaltyDomain.Transaction) error {
	entry := LoyaltyTransactionModel{
		ID:          t.ID,
		UserID:      t.UserID,
		Points:      t.Points,
		Reason:      string(t.Reason),
		ReferenceID: t.ReferenceID,
		CreatedAt:   dbTime(t.CreatedAt),
	}

	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.NewConflictError("points already credited for " + t.ReferenceID.String())
			}
			return err
		}

		account := LoyaltyAccountModel{UserID: t.UserID, Points: t.Points, UpdatedAt: entry.CreatedAt}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"points":     gorm.Expr("loyalty_accounts.points + ?", t.Points),
				"updated_at": entry.CreatedAt,
			}),
		}).Create(&account).Error
	})
}

// Balance returns the user's balance, zero if the user never earned points.
func (r *GormLoyaltyRepository) Balance(ctx context.Context, userID uuid.UUID) (*loyaltyDomain.Account, error) {
	var model LoyaltyAccountModel
	err := database.Conn(ctx, r.db).Where("user_id = ?", userID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &loyaltyDomain.Account{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &loyaltyDomain.Account{UserID: model.UserID, Points: model.Points, UpdatedAt: model.UpdatedAt.UTC()}, nil
}

// ListTransactions returns the user's most recent ledger entries.
func (r *GormLoyaltyRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]loyaltyDomain.Transaction, error) {
	var models []LoyaltyTransactionModel
	if err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]loyaltyDomain.Transaction, len(models))
	for i := range models {
		out[i] = toLoyaltyTransaction(&models[i])
	}
	return out, nil
}

// FindByReference returns the ledger entry for referenceID.
func (r *GormLoyaltyRepository) FindByReference(ctx context.Context, referenceID uuid.UUID) (*loyaltyDomain.Transaction, error) {
	var model LoyaltyTransactionModel
	err := database.Conn(ctx, r.db).Where("reference_id = ?", referenceID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewNotFoundError("loyalty transaction", referenceID.String())
	}
	if err != nil {
		return nil, err
	}
	t := toLoyaltyTransaction(&model)
	return &t, nil
}

func toLoyaltyTransaction(m *LoyaltyTransactionModel) loyaltyDomain.Transaction {
	return loyaltyDomain.Transaction{
		ID:          m.ID,
		UserID:      m.UserID,
		Points:      m.Points,
		Reason:      loyaltyDomain.Reason(m.Reason),
		ReferenceID: m.ReferenceID,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}
