package loyalty

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
)

// Reason labels why points were credited.
type Reason string

const ReasonCouponClaim Reason = "coupon_claim"

// PointsForDiscount is the fixed earning rule: half the discount percentage,
// rounded half up.
func PointsForDiscount(discountPercentage int) int {
	if discountPercentage <= 0 {
		return 0
	}
	return int(math.Round(float64(discountPercentage) / 2))
}

// Account is a user's point balance.
type Account struct {
	UserID    uuid.UUID
	Points    int
	UpdatedAt time.Time
}

// Transaction is one ledger entry. ReferenceID is unique, so the same
// coupon can never be credited twice.
type Transaction struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Points      int
	Reason      Reason
	ReferenceID uuid.UUID
	CreatedAt   time.Time
}

// NewCouponCredit builds the ledger entry for a claimed coupon.
func NewCouponCredit(userID, couponID uuid.UUID, discountPercentage int, now time.Time) Transaction {
	return Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Points:      PointsForDiscount(discountPercentage),
		Reason:      ReasonCouponClaim,
		ReferenceID: couponID,
		CreatedAt:   now.UTC(),
	}
}

// Repository defines persistence operations for loyalty balances.
type Repository interface {
	// Credit records tx and adds its points to the balance in one step.
	Credit(ctx context.Context, tx Transaction) error
	// Balance returns the account, or a zero balance if the user never earned points.
	Balance(ctx context.Context, userID uuid.UUID) (*Account, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]Transaction, error)
	// FindByReference returns the credit recorded for referenceID.
	FindByReference(ctx context.Context, referenceID uuid.UUID) (*Transaction, error)
}
