package offer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ledger owns the claimed-count of every offer. Both methods are single
// conditional statements against the store; callers never read-modify-write
// the count themselves.
type Ledger interface {
	// TryReserveSlot consumes one unit of capacity. It fails with
	// ErrCapacityExceeded, ErrOfferNotClaimable or a not found error.
	TryReserveSlot(ctx context.Context, offerID uuid.UUID, now time.Time) error
	// ReleaseSlot gives back one unit of capacity, never going below zero.
	ReleaseSlot(ctx context.Context, offerID uuid.UUID) error
}

// Repository defines persistence operations for offers.
type Repository interface {
	Ledger
	Save(ctx context.Context, o *Offer) error
	// Update writes the catalog attributes and capacity. It never touches
	// the claimed count.
	Update(ctx context.Context, o *Offer) error
	FindByID(ctx context.Context, id uuid.UUID) (*Offer, error)
	ListClaimable(ctx context.Context, now time.Time, restaurantID *uuid.UUID) ([]*Offer, error)
}
