package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rentfi/go-rentfi/publicapi"
	"github.com/rentfi/go-rentfi/service/persist"
	"github.com/rentfi/go-rentfi/service/persist/postgres"
)

func TestRent_Lifecycle(t *testing.T) {
	a, repos := setupTest(t)
	ctx := context.Background()
	now := time.Now()

	seedRentScenario(ctx, t, repos, now)

	receipt, err := repos.RentalRepository.Rent(ctx, rentalInput(testRenter, 3, 300), now)
	a.NoError(err)
	a.Equal("300", receipt.TotalPrice.String())
	a.True(receipt.Fee.IsZero())
	a.Equal(testLender, receipt.LenderAddress)

	t.Run("it settles the ledger", func(t *testing.T) {
		a.Equal("700", balanceOf(ctx, t, repos, testRenter))
		a.Equal("300", balanceOf(ctx, t, repos, testLender))
	})

	t.Run("it writes the delegation for the rental period", func(t *testing.T) {
		asset, err := repos.AssetRepository.GetByIdentifiers(ctx, testContract, testToken, persist.ChainETH)
		a.NoError(err)
		a.Equal(testRenter, asset.EffectiveUser(now.Add(time.Hour)))
		a.Equal(persist.ZeroAddress, asset.EffectiveUser(receipt.ExpiresAt))
	})

	t.Run("it rejects a second rent while the first is live", func(t *testing.T) {
		if _, err := repos.AccountRepository.Deposit(ctx, testRenter2, persist.NewAmount(1000)); err != nil {
			t.Fatal(err)
		}
		_, err := repos.RentalRepository.Rent(ctx, rentalInput(testRenter2, 2, 200), now.Add(time.Second))
		a.IsType(persist.ErrAssetCurrentlyRented{}, err)
	})

	t.Run("it rents again once the delegation has lapsed", func(t *testing.T) {
		// the listing would have expired by then in real time, so extend it
		_, err := repos.ListingRepository.Publish(ctx, persist.Listing{
			ContractAddress: testContract,
			TokenID:         testToken,
			Chain:           persist.ChainETH,
			LenderAddress:   testLender,
			PricePerDay:     persist.NewAmount(100),
			MinDays:         1,
			MaxDays:         7,
			ListExpiresAt:   receipt.ExpiresAt.Add(time.Hour),
		})
		a.NoError(err)

		second, err := repos.RentalRepository.Rent(ctx, rentalInput(testRenter2, 2, 200), receipt.ExpiresAt.Add(time.Second))
		a.NoError(err)
		a.Equal(testRenter2, second.RenterAddress)

		receipts, err := repos.RentalRepository.GetByAsset(ctx, testContract, testToken, persist.ChainETH, 0, 0)
		a.NoError(err)
		a.Len(receipts, 2)
	})
}

func TestRent_ExactPayment(t *testing.T) {
	a, repos := setupTest(t)
	ctx := context.Background()
	now := time.Now()

	seedRentScenario(ctx, t, repos, now)

	for _, payment := range []int64{299, 301} {
		_, err := repos.RentalRepository.Rent(ctx, rentalInput(testRenter, 3, payment), now)
		a.IsType(persist.ErrIncorrectPayment{}, err)
	}

	// nothing moved
	a.Equal("1000", balanceOf(ctx, t, repos, testRenter))
}

func TestRent_RollsBackOnSettlementFailure(t *testing.T) {
	a, repos := setupTest(t)
	ctx := context.Background()
	now := time.Now()

	seedRentScenario(ctx, t, repos, now)

	// drain the renter below the total price
	if _, err := repos.AccountRepository.Withdraw(ctx, testRenter, persist.NewAmount(900)); err != nil {
		t.Fatal(err)
	}

	_, err := repos.RentalRepository.Rent(ctx, rentalInput(testRenter, 3, 300), now)
	a.IsType(persist.ErrSettlementFailed{}, err)

	t.Run("no partial state is observable", func(t *testing.T) {
		asset, err := repos.AssetRepository.GetByIdentifiers(ctx, testContract, testToken, persist.ChainETH)
		a.NoError(err)
		a.Equal(persist.ZeroAddress, asset.EffectiveUser(now))

		a.Equal("100", balanceOf(ctx, t, repos, testRenter))

		receipts, err := repos.RentalRepository.GetByAsset(ctx, testContract, testToken, persist.ChainETH, 0, 0)
		a.NoError(err)
		a.Len(receipts, 0)
	})
}

func TestRent_PlatformFee(t *testing.T) {
	a, repos := setupTest(t)
	ctx := context.Background()
	now := time.Now()

	seedRentScenario(ctx, t, repos, now)

	// 250 bps of 300 is 7.5, rounded down: 7 to the platform, 293 to the lender
	db := postgres.MustCreateClient()
	t.Cleanup(func() { db.Close() })
	withFee := postgres.NewRentalRepository(db, postgres.NewAccountRepository(db), 250, testFeeAddr)

	receipt, err := withFee.Rent(ctx, rentalInput(testRenter, 3, 300), now)
	a.NoError(err)
	a.Equal("300", receipt.TotalPrice.String())
	a.Equal("7", receipt.Fee.String())

	a.Equal("700", balanceOf(ctx, t, repos, testRenter))
	a.Equal("293", balanceOf(ctx, t, repos, testLender))
	a.Equal("7", balanceOf(ctx, t, repos, testFeeAddr))
}

func TestRent_ConcurrentCallsSerialize(t *testing.T) {
	a, repos := setupTest(t)
	ctx := context.Background()
	now := time.Now()

	seedRentScenario(ctx, t, repos, now)
	if _, err := repos.AccountRepository.Deposit(ctx, testRenter2, persist.NewAmount(1000)); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, renter := range []persist.EthereumAddress{testRenter, testRenter2} {
		wg.Add(1)
		go func(i int, renter persist.EthereumAddress) {
			defer wg.Done()
			_, errs[i] = repos.RentalRepository.Rent(ctx, rentalInput(renter, 3, 300), now)
		}(i, renter)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		switch err.(type) {
		case nil:
			successes++
		case persist.ErrAssetCurrentlyRented:
			conflicts++
		default:
			t.Fatalf("unexpected error: %s", err)
		}
	}
	a.Equal(1, successes)
	a.Equal(1, conflicts)

	t.Run("only the winner was debited", func(t *testing.T) {
		total := 0
		for _, renter := range []persist.EthereumAddress{testRenter, testRenter2} {
			if balanceOf(ctx, t, repos, renter) == "700" {
				total++
			}
		}
		a.Equal(1, total)
		a.Equal("300", balanceOf(ctx, t, repos, testLender))
	})
}

func TestListing_CancelThenRent(t *testing.T) {
	a, repos := setupTest(t)
	ctx := context.Background()
	now := time.Now()

	seedRentScenario(ctx, t, repos, now)

	t.Run("only the lender may cancel", func(t *testing.T) {
		err := repos.ListingRepository.Cancel(ctx, testContract, testToken, persist.ChainETH, testRenter)
		a.IsType(persist.ErrUnauthorized{}, err)
	})

	a.NoError(repos.ListingRepository.Cancel(ctx, testContract, testToken, persist.ChainETH, testLender))

	t.Run("a cancelled listing cannot be rented", func(t *testing.T) {
		_, err := repos.RentalRepository.Rent(ctx, rentalInput(testRenter, 3, 300), now)
		a.IsType(persist.ErrListingNotFound{}, err)
	})

	t.Run("re-publishing revives the asset's listing", func(t *testing.T) {
		_, err := repos.ListingRepository.Publish(ctx, persist.Listing{
			ContractAddress: testContract,
			TokenID:         testToken,
			Chain:           persist.ChainETH,
			LenderAddress:   testLender,
			PricePerDay:     persist.NewAmount(50),
			MinDays:         1,
			MaxDays:         7,
			ListExpiresAt:   now.Add(time.Hour),
		})
		a.NoError(err)

		receipt, err := repos.RentalRepository.Rent(ctx, rentalInput(testRenter, 2, 100), now)
		a.NoError(err)
		a.Equal("100", receipt.TotalPrice.String())
	})
}

func TestDelegation_Authorization(t *testing.T) {
	a, repos := setupTest(t)
	ctx := context.Background()
	now := time.Now()
	operator := persist.EthereumAddress("0x2c6b29b69601e585b8fb40749eee8ec4eca4cf0f")

	if _, err := repos.AssetRepository.Mint(ctx, testContract, testToken, persist.ChainETH, testLender); err != nil {
		t.Fatal(err)
	}

	t.Run("a stranger may not delegate", func(t *testing.T) {
		_, err := repos.AssetRepository.SetDelegation(ctx, testContract, testToken, persist.ChainETH, testRenter, testRenter, now.Add(time.Hour))
		a.IsType(persist.ErrUnauthorized{}, err)
	})

	t.Run("the owner may delegate and clear", func(t *testing.T) {
		asset, err := repos.AssetRepository.SetDelegation(ctx, testContract, testToken, persist.ChainETH, testLender, testRenter, now.Add(time.Hour))
		a.NoError(err)
		a.Equal(testRenter, asset.EffectiveUser(now))

		asset, err = repos.AssetRepository.ClearDelegation(ctx, testContract, testToken, persist.ChainETH, testLender)
		a.NoError(err)
		a.Equal(persist.ZeroAddress, asset.EffectiveUser(now))
	})

	t.Run("an approved operator may delegate", func(t *testing.T) {
		a.NoError(repos.AssetRepository.SetOperatorApproval(ctx, testLender, operator, true))

		approved, err := repos.AssetRepository.IsApprovedForAll(ctx, testLender, operator)
		a.NoError(err)
		a.True(approved)

		asset, err := repos.AssetRepository.SetDelegation(ctx, testContract, testToken, persist.ChainETH, operator, testRenter2, now.Add(time.Hour))
		a.NoError(err)
		a.Equal(testRenter2, asset.EffectiveUser(now))
	})

	t.Run("a revoked operator may not delegate", func(t *testing.T) {
		a.NoError(repos.AssetRepository.SetOperatorApproval(ctx, testLender, operator, false))

		_, err := repos.AssetRepository.SetDelegation(ctx, testContract, testToken, persist.ChainETH, operator, testRenter2, now.Add(time.Hour))
		a.IsType(persist.ErrUnauthorized{}, err)
	})

	t.Run("minting the same asset twice fails", func(t *testing.T) {
		_, err := repos.AssetRepository.Mint(ctx, testContract, testToken, persist.ChainETH, testRenter)
		a.IsType(persist.ErrAssetAlreadyExists{}, err)
	})
}

func TestEffectiveUser_NoneWithoutLiveDelegation(t *testing.T) {
	a, repos := setupTest(t)
	now := time.Now()
	ctx := publicapi.PushTo(context.Background(), publicapi.New(context.Background(), repos, nil, nil, nil))
	api := publicapi.For(ctx)

	seedRentScenario(ctx, t, repos, now)

	t.Run("never delegated resolves to no user, not the owner", func(t *testing.T) {
		user, err := api.Asset.EffectiveUser(ctx, testContract, testToken, persist.ChainETH, now)
		a.NoError(err)
		a.Equal(persist.ZeroAddress, user)
	})

	receipt, err := repos.RentalRepository.Rent(ctx, rentalInput(testRenter, 3, 300), now)
	a.NoError(err)

	t.Run("a live delegation resolves to the renter", func(t *testing.T) {
		user, err := api.Asset.EffectiveUser(ctx, testContract, testToken, persist.ChainETH, now.Add(time.Hour))
		a.NoError(err)
		a.Equal(testRenter, user)
	})

	t.Run("an expired delegation resolves to no user, not the owner", func(t *testing.T) {
		user, err := api.Asset.EffectiveUser(ctx, testContract, testToken, persist.ChainETH, receipt.ExpiresAt)
		a.NoError(err)
		a.Equal(persist.ZeroAddress, user)
	})
}
