package repository

import "gorm.io/gorm"

// AutoMigrate creates the schema from the GORM models. Postgres deployments
// use the SQL files under migrations/ instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&OfferModel{},
		&CouponModel{},
		&LoyaltyAccountModel{},
		&LoyaltyTransactionModel{},
	)
}
