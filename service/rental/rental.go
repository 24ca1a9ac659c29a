// Package rental holds the execution rules of the rental marketplace as pure
// functions over persisted state. The postgres layer runs them inside the
// transaction that holds the asset row lock, so every check below is evaluated
// against a consistent snapshot and the whole rent call is all-or-nothing.
package rental

import (
	"math"
	"time"

	"github.com/rentfi/go-rentfi/service/persist"
)

// feeDenominator is the basis-point denominator for platform fees
const feeDenominator = 10000

// MaxRentalDays is the longest rental the delegation expiry arithmetic can
// represent without wrapping the time.Duration domain
const MaxRentalDays = int64(math.MaxInt64) / int64(persist.DayDuration)

// TotalPrice computes pricePerDay * days in the currency's integer domain.
// Results wider than the currency width are rejected, never wrapped.
func TotalPrice(pricePerDay persist.Amount, days int64) (persist.Amount, error) {
	return pricePerDay.MulInt64(days)
}

// ExpiryFor returns the delegation expiry for a rental of the given length
// starting now. A day is fixed at 86400 seconds. Days must not exceed
// MaxRentalDays; Validate enforces the bound before any state is written.
func ExpiryFor(now time.Time, days int64) time.Time {
	return now.Add(time.Duration(days) * persist.DayDuration)
}

// Validate applies the rent checks in order against the listing and the
// asset's current delegation, returning the exact total price on success.
// Each failure is a hard rejection point; callers must not mutate any state
// once a check has failed.
func Validate(listing persist.Listing, asset persist.Asset, input persist.RentalInput, now time.Time) (persist.Amount, error) {
	if !listing.IsActive(now) {
		return persist.Amount{}, persist.ErrListingExpired{ListExpiresAt: listing.ListExpiresAt}
	}

	if input.Days < listing.MinDays {
		return persist.Amount{}, persist.ErrRentalPeriodTooShort{Days: input.Days, MinDays: listing.MinDays}
	}
	if input.Days > listing.MaxDays {
		return persist.Amount{}, persist.ErrRentalPeriodTooLong{Days: input.Days, MaxDays: listing.MaxDays}
	}
	if input.Days > MaxRentalDays {
		return persist.Amount{}, persist.ErrRentalPeriodTooLong{Days: input.Days, MaxDays: MaxRentalDays}
	}

	if user := asset.EffectiveUser(now); user != persist.ZeroAddress {
		return persist.Amount{}, persist.ErrAssetCurrentlyRented{
			ContractAddress: asset.ContractAddress,
			TokenID:         asset.TokenID,
			Chain:           asset.Chain,
			User:            user,
			ExpiresAt:       asset.Delegation.ExpiresAt,
		}
	}

	totalPrice, err := TotalPrice(listing.PricePerDay, input.Days)
	if err != nil {
		return persist.Amount{}, err
	}

	if input.Payment.Cmp(totalPrice) != 0 {
		return persist.Amount{}, persist.ErrIncorrectPayment{Payment: input.Payment, TotalPrice: totalPrice}
	}

	return totalPrice, nil
}

// ValidateListing applies the publish-time listing checks
func ValidateListing(listing persist.Listing, now time.Time) error {
	if listing.PricePerDay.IsZero() {
		return persist.ErrInvalidPrice{PricePerDay: listing.PricePerDay}
	}
	if listing.MinDays < 1 || listing.MinDays > listing.MaxDays || listing.MaxDays > MaxRentalDays {
		return persist.ErrInvalidDayBounds{MinDays: listing.MinDays, MaxDays: listing.MaxDays}
	}
	if !listing.ListExpiresAt.After(now) {
		return persist.ErrListingExpiryInPast{ListExpiresAt: listing.ListExpiresAt}
	}
	return nil
}

// SplitFee splits a total into the platform fee and the lender's share. The
// fee is totalPrice * feeBPS / 10000 with integer division, so the fee rounds
// down and the remainder stays with the lender.
func SplitFee(totalPrice persist.Amount, feeBPS int64) (fee persist.Amount, lenderShare persist.Amount, err error) {
	if feeBPS < 0 || feeBPS > feeDenominator {
		return persist.Amount{}, persist.Amount{}, persist.ErrInvalidFeeBPS{FeeBPS: feeBPS}
	}
	if feeBPS == 0 {
		return persist.Amount{}, totalPrice, nil
	}

	scaled, err := totalPrice.MulInt64(feeBPS)
	if err != nil {
		return persist.Amount{}, persist.Amount{}, err
	}
	fee, err = scaled.DivInt64(feeDenominator)
	if err != nil {
		return persist.Amount{}, persist.Amount{}, err
	}
	lenderShare, err = totalPrice.Sub(fee)
	if err != nil {
		return persist.Amount{}, persist.Amount{}, err
	}
	return fee, lenderShare, nil
}
