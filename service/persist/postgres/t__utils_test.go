package postgres_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	migrate "github.com/rentfi/go-rentfi/db"
	"github.com/rentfi/go-rentfi/docker"
	"github.com/rentfi/go-rentfi/service/persist"
	"github.com/rentfi/go-rentfi/service/persist/postgres"
)

const (
	testContract = persist.EthereumAddress("0x47a91457a3a1f700097199fd63c039c4784384ab")
	testToken    = persist.TokenID("1a")

	testLender  = persist.EthereumAddress("0x8914496dc01efcc49a2fa340331fb90969b6f1d2")
	testRenter  = persist.EthereumAddress("0x9a3f9764b21adaf3c6fdf6f947e6d3340a3f8ac5")
	testRenter2 = persist.EthereumAddress("0xcf3f2b2b5b02ffa0d135f9693fae638dbd2d575f")
	testFeeAddr = persist.EthereumAddress("0x70d04384b5c3a466ec4d8cfb8213efc31c6a9d15")
)

func setupTest(t *testing.T) (*assert.Assertions, *postgres.Repositories) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	r, err := docker.StartPostgres()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		r.Close()
	})

	hostAndPort := strings.Split(r.GetHostPort("5432/tcp"), ":")
	t.Setenv("POSTGRES_HOST", hostAndPort[0])
	t.Setenv("POSTGRES_PORT", hostAndPort[1])
	t.Setenv("POSTGRES_USER", "postgres")
	t.Setenv("POSTGRES_PASSWORD", "")
	t.Setenv("POSTGRES_DB", "postgres")
	t.Setenv("PLATFORM_FEE_BPS", "0")
	t.Setenv("PLATFORM_FEE_ADDRESS", "")
	viper.AutomaticEnv()

	if err := migrate.RunMigrations(postgres.MustCreateClient(), "../../../db/migrations/core"); err != nil {
		t.Fatal(err)
	}

	db := postgres.MustCreateClient()
	pool := postgres.NewPgxClient()
	t.Cleanup(func() {
		db.Close()
		pool.Close()
	})

	return assert.New(t), postgres.NewRepositories(db, pool)
}

// seedRentScenario mints an asset for the lender, funds the renter and
// publishes a 100/day listing for 1-7 days expiring in an hour
func seedRentScenario(ctx context.Context, t *testing.T, repos *postgres.Repositories, now time.Time) persist.Listing {
	t.Helper()

	if _, err := repos.AssetRepository.Mint(ctx, testContract, testToken, persist.ChainETH, testLender); err != nil {
		t.Fatalf("failed to mint asset: %s", err)
	}

	if _, err := repos.AccountRepository.Deposit(ctx, testRenter, persist.NewAmount(1000)); err != nil {
		t.Fatalf("failed to fund renter: %s", err)
	}

	listing, err := repos.ListingRepository.Publish(ctx, persist.Listing{
		ContractAddress: testContract,
		TokenID:         testToken,
		Chain:           persist.ChainETH,
		LenderAddress:   testLender,
		PricePerDay:     persist.NewAmount(100),
		MinDays:         1,
		MaxDays:         7,
		ListExpiresAt:   now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("failed to publish listing: %s", err)
	}

	return listing
}

func rentalInput(renter persist.EthereumAddress, days int64, payment int64) persist.RentalInput {
	return persist.RentalInput{
		ContractAddress: testContract,
		TokenID:         testToken,
		Chain:           persist.ChainETH,
		RenterAddress:   renter,
		Days:            days,
		Payment:         persist.NewAmount(payment),
	}
}

func balanceOf(ctx context.Context, t *testing.T, repos *postgres.Repositories, address persist.EthereumAddress) string {
	t.Helper()
	account, err := repos.AccountRepository.GetByAddress(ctx, address)
	if err != nil {
		t.Fatalf("failed to read balance of %s: %s", address, err)
	}
	return account.Balance.String()
}
