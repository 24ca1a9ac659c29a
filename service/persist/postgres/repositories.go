package postgres

import (
	"database/sql"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/rentfi/go-rentfi/env"
	"github.com/rentfi/go-rentfi/service/persist"
)

// Repositories is the full set of postgres-backed repositories
type Repositories struct {
	AssetRepository   *AssetRepository
	ListingRepository *ListingRepository
	AccountRepository *AccountRepository
	RentalRepository  *RentalRepository
	EventRepository   *EventRepository
}

// NewRepositories wires every repository over the given clients. The platform
// fee configuration is read once here so the rental repository stays a plain
// mechanism.
func NewRepositories(db *sql.DB, pool *pgxpool.Pool) *Repositories {
	accounts := NewAccountRepository(db)

	feeBPS := env.GetInt64("PLATFORM_FEE_BPS")
	feeAddress := persist.EthereumAddress(env.GetString("PLATFORM_FEE_ADDRESS"))

	return &Repositories{
		AssetRepository:   NewAssetRepository(db),
		ListingRepository: NewListingRepository(db),
		AccountRepository: accounts,
		RentalRepository:  NewRentalRepository(db, accounts, feeBPS, feeAddress),
		EventRepository:   &EventRepository{Pool: pool},
	}
}
