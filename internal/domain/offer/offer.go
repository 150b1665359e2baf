package offer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
)

// Type is where an offer may be used.
type Type string

const (
	TypeDineIn Type = "dine_in"
	TypePickup Type = "pickup"
	TypeBoth   Type = "both"
)

// Valid reports whether t is one of the known offer types.
func (t Type) Valid() bool {
	switch t {
	case TypeDineIn, TypePickup, TypeBoth:
		return true
	}
	return false
}

// Discount bounds accepted for new offers.
const (
	MinDiscount = 30
	MaxDiscount = 50
)

var (
	ErrOfferNotClaimable = domain.New(domain.ErrUnprocessable, "offer_not_claimable", "offer is not claimable")
	ErrCapacityExceeded  = domain.New(domain.ErrConflict, "sold_out", "offer is sold out")
	ErrNotOfferOwner     = domain.New(domain.ErrForbidden, "not_offer_owner", "offer belongs to another restaurant")
)

// Offer is the aggregate root for a restaurant's capped discount offer.
// couponsClaimed is owned by the ledger and only ever changes in storage.
type Offer struct {
	id                 uuid.UUID
	restaurantID       uuid.UUID
	restaurantName     string
	title              string
	description        string
	discountPercentage int
	offerType          Type
	maxCoupons         int
	couponsClaimed     int
	validFrom          *time.Time
	validUntil         time.Time
	isActive           bool
	version            int64
	createdAt          time.Time
	updatedAt          time.Time
}

// Details are the catalog attributes of an offer.
type Details struct {
	RestaurantName     string
	Title              string
	Description        string
	DiscountPercentage int
	OfferType          Type
	ValidFrom          *time.Time
	ValidUntil         time.Time
}

func (d *Details) normalize() error {
	d.Title = strings.TrimSpace(d.Title)
	d.RestaurantName = strings.TrimSpace(d.RestaurantName)
	d.Description = strings.TrimSpace(d.Description)
	if d.Title == "" {
		return domain.NewValidationError("title is required")
	}
	if d.DiscountPercentage < MinDiscount || d.DiscountPercentage > MaxDiscount {
		return domain.NewValidationError(fmt.Sprintf("discount_percentage must be between %d and %d", MinDiscount, MaxDiscount))
	}
	if !d.OfferType.Valid() {
		return domain.NewValidationError(fmt.Sprintf("invalid offer_type: %s", d.OfferType))
	}
	if d.ValidUntil.IsZero() {
		return domain.NewValidationError("valid_until is required")
	}
	d.ValidUntil = d.ValidUntil.UTC()
	if d.ValidFrom != nil {
		if d.ValidFrom.IsZero() {
			d.ValidFrom = nil
		} else {
			from := d.ValidFrom.UTC()
			if !d.ValidUntil.After(from) {
				return domain.NewValidationError("valid_until must be after valid_from")
			}
			d.ValidFrom = &from
		}
	}
	return nil
}

// NewOffer validates d and creates an active offer with no claimed coupons.
func NewOffer(restaurantID uuid.UUID, d Details, maxCoupons int) (*Offer, error) {
	return NewOfferWithID(uuid.New(), restaurantID, d, maxCoupons)
}

// NewOfferWithID is NewOffer for offers whose identity is assigned by the catalog.
func NewOfferWithID(id, restaurantID uuid.UUID, d Details, maxCoupons int) (*Offer, error) {
	if id == uuid.Nil || restaurantID == uuid.Nil {
		return nil, domain.NewValidationError("offer and restaurant ids are required")
	}
	if err := d.normalize(); err != nil {
		return nil, err
	}
	if maxCoupons < 1 {
		return nil, domain.NewValidationError("max_coupons must be at least 1")
	}

	now := time.Now().UTC()
	return &Offer{
		id:                 id,
		restaurantID:       restaurantID,
		restaurantName:     d.RestaurantName,
		title:              d.Title,
		description:        d.Description,
		discountPercentage: d.DiscountPercentage,
		offerType:          d.OfferType,
		maxCoupons:         maxCoupons,
		validFrom:          d.ValidFrom,
		validUntil:         d.ValidUntil,
		isActive:           true,
		version:            1,
		createdAt:          now,
		updatedAt:          now,
	}, nil
}

// Reconstruct rebuilds an Offer from persistence.
func Reconstruct(id, restaurantID uuid.UUID, restaurantName, title, description string, discountPercentage int, offerType Type, maxCoupons, couponsClaimed int, validFrom *time.Time, validUntil time.Time, isActive bool, version int64, createdAt, updatedAt time.Time) *Offer {
	return &Offer{
		id: id, restaurantID: restaurantID, restaurantName: restaurantName,
		title: title, description: description,
		discountPercentage: discountPercentage, offerType: offerType,
		maxCoupons: maxCoupons, couponsClaimed: couponsClaimed,
		validFrom: validFrom, validUntil: validUntil, isActive: isActive,
		version: version, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// CheckClaimable returns ErrOfferNotClaimable when the offer is inactive or
// now falls outside its validity window. Capacity is not checked here; it is
// decided atomically by the ledger.
func (o *Offer) CheckClaimable(now time.Time) error {
	switch {
	case !o.isActive:
		return fmt.Errorf("%w: offer is inactive", ErrOfferNotClaimable)
	case o.validFrom != nil && now.Before(*o.validFrom):
		return fmt.Errorf("%w: offer is not valid yet", ErrOfferNotClaimable)
	case now.After(o.validUntil):
		return fmt.Errorf("%w: offer has ended", ErrOfferNotClaimable)
	}
	return nil
}

// IsClaimable reports whether a claim at now could succeed given the last
// loaded claimed count.
func (o *Offer) IsClaimable(now time.Time) bool {
	return o.CheckClaimable(now) == nil && o.couponsClaimed < o.maxCoupons
}

// Remaining is the number of unclaimed coupons as of the last load.
func (o *Offer) Remaining() int {
	if o.couponsClaimed >= o.maxCoupons {
		return 0
	}
	return o.maxCoupons - o.couponsClaimed
}

// RaiseCapacity sets a new max_coupons. Capacity may only grow.
func (o *Offer) RaiseCapacity(maxCoupons int) error {
	if maxCoupons < o.maxCoupons {
		return domain.NewValidationError(fmt.Sprintf("max_coupons can only be raised (current %d)", o.maxCoupons))
	}
	o.maxCoupons = maxCoupons
	o.updatedAt = time.Now().UTC()
	return nil
}

// UpdateDetails replaces the catalog attributes.
func (o *Offer) UpdateDetails(d Details) error {
	if err := d.normalize(); err != nil {
		return err
	}
	o.restaurantName = d.RestaurantName
	o.title = d.Title
	o.description = d.Description
	o.discountPercentage = d.DiscountPercentage
	o.offerType = d.OfferType
	o.validFrom = d.ValidFrom
	o.validUntil = d.ValidUntil
	o.updatedAt = time.Now().UTC()
	return nil
}

// CheckManagedBy returns ErrNotOfferOwner unless restaurantID owns the offer.
func (o *Offer) CheckManagedBy(restaurantID uuid.UUID) error {
	if o.restaurantID != restaurantID {
		return ErrNotOfferOwner
	}
	return nil
}

// Deactivate stops further claims. Existing coupons are unaffected.
func (o *Offer) Deactivate() {
	o.isActive = false
	o.updatedAt = time.Now().UTC()
}

// Activate re-opens the offer for claims.
func (o *Offer) Activate() {
	o.isActive = true
	o.updatedAt = time.Now().UTC()
}

// Getters.
func (o *Offer) ID() uuid.UUID             { return o.id }
func (o *Offer) RestaurantID() uuid.UUID   { return o.restaurantID }
func (o *Offer) RestaurantName() string    { return o.restaurantName }
func (o *Offer) Title() string             { return o.title }
func (o *Offer) Description() string       { return o.description }
func (o *Offer) DiscountPercentage() int   { return o.discountPercentage }
func (o *Offer) OfferType() Type           { return o.offerType }
func (o *Offer) MaxCoupons() int           { return o.maxCoupons }
func (o *Offer) CouponsClaimed() int       { return o.couponsClaimed }
func (o *Offer) ValidFrom() *time.Time     { return o.validFrom }
func (o *Offer) ValidUntil() time.Time     { return o.validUntil }
func (o *Offer) IsActive() bool            { return o.isActive }
func (o *Offer) Version() int64            { return o.version }
func (o *Offer) CreatedAt() time.Time      { return o.createdAt }
func (o *Offer) UpdatedAt() time.Time      { return o.updatedAt }
