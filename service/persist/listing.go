package persist

import (
	"context"
	"fmt"
	"time"
)

// Listing is a lender's standing offer to rent out an asset. At most one
// listing exists per asset; re-publishing replaces the prior one. A listing
// may coexist with a live delegation, it just can't be fulfilled until that
// delegation expires.
type Listing struct {
	ID           DBID            `json:"id" binding:"required"`
	Version      NullInt32       `json:"version"`
	CreationTime CreationTime    `json:"created_at"`
	Deleted      NullBool        `json:"-"`
	LastUpdated  LastUpdatedTime `json:"last_updated"`

	ContractAddress EthereumAddress `json:"contract_address"`
	TokenID         TokenID         `json:"token_id"`
	Chain           Chain           `json:"chain"`
	LenderAddress   EthereumAddress `json:"lender_address"`

	PricePerDay   Amount    `json:"price_per_day"`
	MinDays       int64     `json:"min_days"`
	MaxDays       int64     `json:"max_days"`
	ListExpiresAt time.Time `json:"list_expires_at"`
}

// IsActive returns true while the listing itself has not expired
func (l Listing) IsActive(at time.Time) bool {
	return at.Before(l.ListExpiresAt)
}

// ListingRepository represents a repository for interacting with persisted listings
type ListingRepository interface {
	GetByIdentifiers(context.Context, EthereumAddress, TokenID, Chain) (Listing, error)
	GetByLender(context.Context, EthereumAddress, int64, int64) ([]Listing, error)
	Publish(context.Context, Listing) (Listing, error)
	Cancel(context.Context, EthereumAddress, TokenID, Chain, EthereumAddress) error
}

// ErrListingNotFound is returned when no listing exists for the asset
type ErrListingNotFound struct {
	ContractAddress EthereumAddress
	TokenID         TokenID
	Chain           Chain
}

func (e ErrListingNotFound) Error() string {
	return fmt.Sprintf("no listing for contract %s token %s chain %d", e.ContractAddress, e.TokenID, e.Chain)
}

// ErrInvalidPrice is returned when a listing's price per day is not positive
type ErrInvalidPrice struct {
	PricePerDay Amount
}

func (e ErrInvalidPrice) Error() string {
	return fmt.Sprintf("price per day must be positive, got %s", e.PricePerDay)
}

// ErrInvalidDayBounds is returned when a listing's duration bounds are inconsistent
type ErrInvalidDayBounds struct {
	MinDays int64
	MaxDays int64
}

func (e ErrInvalidDayBounds) Error() string {
	return fmt.Sprintf("day bounds must satisfy 1 <= min <= max, got min=%d max=%d", e.MinDays, e.MaxDays)
}

// ErrListingExpiryInPast is returned when a listing's expiry is not in the future
type ErrListingExpiryInPast struct {
	ListExpiresAt time.Time
}

func (e ErrListingExpiryInPast) Error() string {
	return fmt.Sprintf("listing expiry %s is not in the future", e.ListExpiresAt)
}

// ErrListingExpired is returned when fulfilling a listing past its expiry
type ErrListingExpired struct {
	ListExpiresAt time.Time
}

func (e ErrListingExpired) Error() string {
	return fmt.Sprintf("listing expired at %s", e.ListExpiresAt)
}
