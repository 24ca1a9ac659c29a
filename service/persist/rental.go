package persist

import (
	"context"
	"fmt"
	"time"
)

// DayDuration is the fixed length of a rental day
const DayDuration = 86400 * time.Second

// Rental is the receipt of a successful rent call: a delegation was written
// and funds moved, all in one atomic step.
type Rental struct {
	ID           DBID         `json:"id"`
	CreationTime CreationTime `json:"created_at"`

	ContractAddress EthereumAddress `json:"contract_address"`
	TokenID         TokenID         `json:"token_id"`
	Chain           Chain           `json:"chain"`
	LenderAddress   EthereumAddress `json:"lender_address"`
	RenterAddress   EthereumAddress `json:"renter_address"`

	Days       int64     `json:"days"`
	TotalPrice Amount    `json:"total_price"`
	Fee        Amount    `json:"fee"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// RentalInput is the caller-supplied side of a rent call. Payment must equal
// the listing's price per day times days exactly.
type RentalInput struct {
	ContractAddress EthereumAddress `json:"contract_address"`
	TokenID         TokenID         `json:"token_id"`
	Chain           Chain           `json:"chain"`
	RenterAddress   EthereumAddress `json:"renter_address"`
	Days            int64           `json:"days"`
	Payment         Amount          `json:"payment"`
}

// RentalRepository executes rent calls atomically and reads back receipts
type RentalRepository interface {
	Rent(context.Context, RentalInput, time.Time) (Rental, error)
	GetByAsset(context.Context, EthereumAddress, TokenID, Chain, int64, int64) ([]Rental, error)
}

// ErrRentalPeriodTooShort is returned when days is below the listing's minimum
type ErrRentalPeriodTooShort struct {
	Days    int64
	MinDays int64
}

func (e ErrRentalPeriodTooShort) Error() string {
	return fmt.Sprintf("rental period too short: %d days, minimum is %d", e.Days, e.MinDays)
}

// ErrRentalPeriodTooLong is returned when days is above the listing's maximum
type ErrRentalPeriodTooLong struct {
	Days    int64
	MaxDays int64
}

func (e ErrRentalPeriodTooLong) Error() string {
	return fmt.Sprintf("rental period too long: %d days, maximum is %d", e.Days, e.MaxDays)
}

// ErrAssetCurrentlyRented is returned when the asset already has a live delegation
type ErrAssetCurrentlyRented struct {
	ContractAddress EthereumAddress
	TokenID         TokenID
	Chain           Chain
	User            EthereumAddress
	ExpiresAt       time.Time
}

func (e ErrAssetCurrentlyRented) Error() string {
	return fmt.Sprintf("asset %s/%s is rented to %s until %s", e.ContractAddress, e.TokenID, e.User, e.ExpiresAt)
}

// ErrIncorrectPayment is returned when payment differs from the exact total
// price; both under- and over-payment are rejected.
type ErrIncorrectPayment struct {
	Payment    Amount
	TotalPrice Amount
}

func (e ErrIncorrectPayment) Error() string {
	return fmt.Sprintf("payment %s does not match total price %s", e.Payment, e.TotalPrice)
}

// ErrInvalidFeeBPS is returned when the configured platform fee is out of range
type ErrInvalidFeeBPS struct {
	FeeBPS int64
}

func (e ErrInvalidFeeBPS) Error() string {
	return fmt.Sprintf("platform fee basis points out of range: %d", e.FeeBPS)
}

// ErrSettlementFailed is returned when the funds transfer was refused; no
// delegation is written in that case.
type ErrSettlementFailed struct {
	Err error
}

func (e ErrSettlementFailed) Error() string {
	return fmt.Sprintf("settlement failed: %s", e.Err)
}

func (e ErrSettlementFailed) Unwrap() error {
	return e.Err
}
