package rental

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentfi/go-rentfi/service/persist"
)

var (
	testContract = persist.EthereumAddress("0x47a91457a3a1f700097199fd63c039c4784384ab")
	testLender   = persist.EthereumAddress("0x8914496dc01efcc49a2fa340331fb90969b6f1d2")
	testRenter   = persist.EthereumAddress("0x9a90491fd0beb5e03d87d81dbd6ed6e9233ba2de")
)

func newTestListing(now time.Time) persist.Listing {
	return persist.Listing{
		ContractAddress: testContract,
		TokenID:         "1",
		Chain:           persist.ChainETH,
		LenderAddress:   testLender,
		PricePerDay:     persist.NewAmount(100),
		MinDays:         1,
		MaxDays:         7,
		ListExpiresAt:   now.Add(persist.DayDuration),
	}
}

func newTestAsset() persist.Asset {
	return persist.Asset{
		ContractAddress: testContract,
		TokenID:         "1",
		Chain:           persist.ChainETH,
		OwnerAddress:    testLender,
	}
}

func newTestInput(days int64, payment int64) persist.RentalInput {
	return persist.RentalInput{
		ContractAddress: testContract,
		TokenID:         "1",
		Chain:           persist.ChainETH,
		RenterAddress:   testRenter,
		Days:            days,
		Payment:         persist.NewAmount(payment),
	}
}

func TestValidate_Succeeds(t *testing.T) {
	now := time.Now()
	total, err := Validate(newTestListing(now), newTestAsset(), newTestInput(3, 300), now)
	require.NoError(t, err)
	assert.Equal(t, "300", total.String())
}

func TestValidate_DayBoundaries(t *testing.T) {
	now := time.Now()
	listing := newTestListing(now)
	asset := newTestAsset()

	tests := []struct {
		name    string
		days    int64
		payment int64
		wantErr error
	}{
		{name: "minimum days succeeds", days: 1, payment: 100},
		{name: "maximum days succeeds", days: 7, payment: 700},
		{name: "below minimum fails", days: 0, payment: 0, wantErr: persist.ErrRentalPeriodTooShort{Days: 0, MinDays: 1}},
		{name: "above maximum fails", days: 8, payment: 800, wantErr: persist.ErrRentalPeriodTooLong{Days: 8, MaxDays: 7}},
		{name: "negative days fails", days: -1, payment: 0, wantErr: persist.ErrRentalPeriodTooShort{Days: -1, MinDays: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(listing, asset, newTestInput(tt.days, tt.payment), now)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_ZeroDaysAlwaysTooShort(t *testing.T) {
	now := time.Now()
	listing := newTestListing(now)
	listing.MinDays = 1
	listing.MaxDays = 1

	_, err := Validate(listing, newTestAsset(), newTestInput(0, 0), now)
	assert.IsType(t, persist.ErrRentalPeriodTooShort{}, err)
}

func TestValidate_ExactPayment(t *testing.T) {
	now := time.Now()
	listing := newTestListing(now)
	asset := newTestAsset()

	t.Run("one unit under fails", func(t *testing.T) {
		_, err := Validate(listing, asset, newTestInput(3, 299), now)
		assert.IsType(t, persist.ErrIncorrectPayment{}, err)
	})

	t.Run("one unit over fails", func(t *testing.T) {
		_, err := Validate(listing, asset, newTestInput(3, 301), now)
		assert.IsType(t, persist.ErrIncorrectPayment{}, err)
	})

	t.Run("exact amount succeeds", func(t *testing.T) {
		total, err := Validate(listing, asset, newTestInput(3, 300), now)
		assert.NoError(t, err)
		assert.Equal(t, "300", total.String())
	})
}

func TestValidate_ListingExpired(t *testing.T) {
	now := time.Now()
	listing := newTestListing(now)
	listing.ListExpiresAt = now.Add(-time.Second)

	_, err := Validate(listing, newTestAsset(), newTestInput(3, 300), now)
	assert.IsType(t, persist.ErrListingExpired{}, err)
}

func TestValidate_ListingExpiryIsExclusive(t *testing.T) {
	now := time.Now()
	listing := newTestListing(now)
	listing.ListExpiresAt = now

	// listExpiresAt > now is required, so expiring exactly now is expired
	_, err := Validate(listing, newTestAsset(), newTestInput(3, 300), now)
	assert.IsType(t, persist.ErrListingExpired{}, err)
}

func TestValidate_AssetCurrentlyRented(t *testing.T) {
	now := time.Now()
	asset := newTestAsset()
	asset.Delegation = persist.Delegation{User: testRenter, ExpiresAt: now.Add(time.Hour)}

	_, err := Validate(newTestListing(now), asset, newTestInput(3, 300), now)
	require.IsType(t, persist.ErrAssetCurrentlyRented{}, err)
	assert.Equal(t, testRenter, err.(persist.ErrAssetCurrentlyRented).User)
}

func TestValidate_ExpiredDelegationIsRentable(t *testing.T) {
	now := time.Now()
	asset := newTestAsset()
	asset.Delegation = persist.Delegation{User: testRenter, ExpiresAt: now.Add(-time.Second)}

	// no reclaim step is needed once the prior rental has lapsed
	_, err := Validate(newTestListing(now), asset, newTestInput(3, 300), now)
	assert.NoError(t, err)
}

// The lifecycle scenario from the marketplace contract tests: rent 3 days at
// 100/day, the asset is unavailable one second in and free again one second
// after the delegation lapses.
func TestValidate_RentalLifecycle(t *testing.T) {
	now := time.Now()
	listing := newTestListing(now)
	asset := newTestAsset()
	input := newTestInput(3, 300)

	total, err := Validate(listing, asset, input, now)
	require.NoError(t, err)
	require.Equal(t, "300", total.String())

	expiresAt := ExpiryFor(now, input.Days)
	assert.Equal(t, now.Add(3*persist.DayDuration), expiresAt)
	asset.Delegation = persist.Delegation{User: testRenter, ExpiresAt: expiresAt}

	_, err = Validate(listing, asset, input, now.Add(time.Second))
	assert.IsType(t, persist.ErrAssetCurrentlyRented{}, err)

	// keep the listing itself alive past the delegation for the re-rent check
	listing.ListExpiresAt = expiresAt.Add(persist.DayDuration)
	_, err = Validate(listing, asset, input, expiresAt.Add(time.Second))
	assert.NoError(t, err)
}

func TestValidate_CheckOrderListingBeforeDays(t *testing.T) {
	now := time.Now()
	listing := newTestListing(now)
	listing.ListExpiresAt = now.Add(-time.Second)

	// an expired listing wins over a bad day count
	_, err := Validate(listing, newTestAsset(), newTestInput(0, 0), now)
	assert.IsType(t, persist.ErrListingExpired{}, err)
}

func TestTotalPrice_Overflow(t *testing.T) {
	// close to 2^256, so multiplying by any day count overflows
	huge, err := persist.NewAmountFromString("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	require.NoError(t, err)

	_, err = TotalPrice(huge, 2)
	assert.IsType(t, persist.ErrAmountOverflow{}, err)
}

func TestEffectiveUser_ExpiryBoundary(t *testing.T) {
	now := time.Now()
	asset := newTestAsset()
	asset.Delegation = persist.Delegation{User: testRenter, ExpiresAt: now}

	// t >= expiresAt resolves to the zero address, t < expiresAt to the user
	assert.Equal(t, persist.ZeroAddress, asset.EffectiveUser(now))
	assert.Equal(t, persist.ZeroAddress, asset.EffectiveUser(now.Add(time.Hour)))
	assert.Equal(t, testRenter, asset.EffectiveUser(now.Add(-time.Second)))
}

func TestValidateListing(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		mutate  func(*persist.Listing)
		wantErr interface{}
	}{
		{name: "valid listing", mutate: func(l *persist.Listing) {}},
		{name: "zero price", mutate: func(l *persist.Listing) { l.PricePerDay = persist.NewAmount(0) }, wantErr: persist.ErrInvalidPrice{}},
		{name: "zero min days", mutate: func(l *persist.Listing) { l.MinDays = 0 }, wantErr: persist.ErrInvalidDayBounds{}},
		{name: "min above max", mutate: func(l *persist.Listing) { l.MinDays = 8 }, wantErr: persist.ErrInvalidDayBounds{}},
		{name: "max beyond expiry domain", mutate: func(l *persist.Listing) { l.MaxDays = MaxRentalDays + 1 }, wantErr: persist.ErrInvalidDayBounds{}},
		{name: "expiry in past", mutate: func(l *persist.Listing) { l.ListExpiresAt = now.Add(-time.Minute) }, wantErr: persist.ErrListingExpiryInPast{}},
		{name: "expiry exactly now", mutate: func(l *persist.Listing) { l.ListExpiresAt = now }, wantErr: persist.ErrListingExpiryInPast{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := newTestListing(now)
			tt.mutate(&listing)
			err := ValidateListing(listing, now)
			if tt.wantErr != nil {
				assert.IsType(t, tt.wantErr, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitFee(t *testing.T) {
	tests := []struct {
		name        string
		total       int64
		feeBPS      int64
		wantFee     string
		wantLender  string
		wantErrType interface{}
	}{
		{name: "no fee", total: 300, feeBPS: 0, wantFee: "0", wantLender: "300"},
		{name: "round fee", total: 10000, feeBPS: 250, wantFee: "250", wantLender: "9750"},
		{name: "fee rounds down, remainder to lender", total: 333, feeBPS: 250, wantFee: "8", wantLender: "325"},
		{name: "tiny total rounds fee to zero", total: 3, feeBPS: 250, wantFee: "0", wantLender: "3"},
		{name: "full fee", total: 100, feeBPS: 10000, wantFee: "100", wantLender: "0"},
		{name: "negative bps", total: 100, feeBPS: -1, wantErrType: persist.ErrInvalidFeeBPS{}},
		{name: "bps above denominator", total: 100, feeBPS: 10001, wantErrType: persist.ErrInvalidFeeBPS{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, lender, err := SplitFee(persist.NewAmount(tt.total), tt.feeBPS)
			if tt.wantErrType != nil {
				assert.IsType(t, tt.wantErrType, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFee, fee.String())
			assert.Equal(t, tt.wantLender, lender.String())
		})
	}
}

func TestExpiryFor(t *testing.T) {
	now := time.Now()
	assert.Equal(t, now.Add(7*24*time.Hour), ExpiryFor(now, 7))
}

func TestValidate_DaysBeyondExpiryDomain(t *testing.T) {
	now := time.Now()
	listing := newTestListing(now)
	listing.PricePerDay = persist.NewAmount(1)
	listing.MaxDays = 300000

	// 200000 days is within the listing's bounds but would wrap the duration
	// arithmetic into an expiry before now; it must be rejected before any
	// payment settles
	_, err := Validate(listing, newTestAsset(), newTestInput(200000, 200000), now)
	assert.Equal(t, persist.ErrRentalPeriodTooLong{Days: 200000, MaxDays: MaxRentalDays}, err)
}

func TestExpiryFor_MaxRentalDaysStaysInFuture(t *testing.T) {
	now := time.Now()
	assert.True(t, ExpiryFor(now, MaxRentalDays).After(now))
}
