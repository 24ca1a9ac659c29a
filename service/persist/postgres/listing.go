package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/rentfi/go-rentfi/service/persist"
)

// ListingRepository represents the listing store in the postgres database.
// Listings hold no funds and never consult delegation state; the cross-checks
// live in the rental repository.
type ListingRepository struct {
	db                      *sql.DB
	getByIdentifiersStmt    *sql.Stmt
	getByLenderStmt         *sql.Stmt
	getByLenderPaginateStmt *sql.Stmt
	upsertStmt              *sql.Stmt
	cancelStmt              *sql.Stmt
}

// NewListingRepository creates a new postgres repository for interacting with listings
func NewListingRepository(db *sql.DB) *ListingRepository {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	listingColumns := `ID,VERSION,CREATED_AT,LAST_UPDATED,CONTRACT_ADDRESS,TOKEN_ID,CHAIN,LENDER_ADDRESS,PRICE_PER_DAY,MIN_DAYS,MAX_DAYS,LIST_EXPIRES_AT`

	getByIdentifiersStmt, err := db.PrepareContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE CONTRACT_ADDRESS = $1 AND TOKEN_ID = $2 AND CHAIN = $3 AND DELETED = false;`)
	checkNoErr(err)

	getByLenderStmt, err := db.PrepareContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE LENDER_ADDRESS = $1 AND DELETED = false ORDER BY LAST_UPDATED DESC;`)
	checkNoErr(err)

	getByLenderPaginateStmt, err := db.PrepareContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE LENDER_ADDRESS = $1 AND DELETED = false ORDER BY LAST_UPDATED DESC LIMIT $2 OFFSET $3;`)
	checkNoErr(err)

	// publishing again for the same asset replaces the prior listing in place
	upsertStmt, err := db.PrepareContext(ctx, `INSERT INTO listings (ID,VERSION,CONTRACT_ADDRESS,TOKEN_ID,CHAIN,LENDER_ADDRESS,PRICE_PER_DAY,MIN_DAYS,MAX_DAYS,LIST_EXPIRES_AT) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (CONTRACT_ADDRESS,TOKEN_ID,CHAIN) DO UPDATE SET LENDER_ADDRESS = EXCLUDED.LENDER_ADDRESS, PRICE_PER_DAY = EXCLUDED.PRICE_PER_DAY, MIN_DAYS = EXCLUDED.MIN_DAYS, MAX_DAYS = EXCLUDED.MAX_DAYS, LIST_EXPIRES_AT = EXCLUDED.LIST_EXPIRES_AT, DELETED = false, LAST_UPDATED = now();`)
	checkNoErr(err)

	cancelStmt, err := db.PrepareContext(ctx, `UPDATE listings SET DELETED = true, LAST_UPDATED = now() WHERE CONTRACT_ADDRESS = $1 AND TOKEN_ID = $2 AND CHAIN = $3 AND LENDER_ADDRESS = $4 AND DELETED = false;`)
	checkNoErr(err)

	return &ListingRepository{
		db:                      db,
		getByIdentifiersStmt:    getByIdentifiersStmt,
		getByLenderStmt:         getByLenderStmt,
		getByLenderPaginateStmt: getByLenderPaginateStmt,
		upsertStmt:              upsertStmt,
		cancelStmt:              cancelStmt,
	}
}

func scanListing(row interface {
	Scan(dest ...interface{}) error
}) (persist.Listing, error) {
	var listing persist.Listing
	err := row.Scan(&listing.ID, &listing.Version, &listing.CreationTime, &listing.LastUpdated, &listing.ContractAddress, &listing.TokenID, &listing.Chain, &listing.LenderAddress, &listing.PricePerDay, &listing.MinDays, &listing.MaxDays, &listing.ListExpiresAt)
	return listing, err
}

// GetByIdentifiers gets the listing for an asset
func (l *ListingRepository) GetByIdentifiers(pCtx context.Context, pContractAddress persist.EthereumAddress, pTokenID persist.TokenID, pChain persist.Chain) (persist.Listing, error) {
	listing, err := scanListing(l.getByIdentifiersStmt.QueryRowContext(pCtx, pContractAddress, pTokenID, pChain))
	if err != nil {
		if err == sql.ErrNoRows {
			return persist.Listing{}, persist.ErrListingNotFound{ContractAddress: pContractAddress, TokenID: pTokenID, Chain: pChain}
		}
		return persist.Listing{}, err
	}
	return listing, nil
}

// GetByLender retrieves all listings published by a lender
func (l *ListingRepository) GetByLender(pCtx context.Context, pLender persist.EthereumAddress, limit int64, offset int64) ([]persist.Listing, error) {
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = l.getByLenderPaginateStmt.QueryContext(pCtx, pLender, limit, offset)
	} else {
		rows, err = l.getByLenderStmt.QueryContext(pCtx, pLender)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := make([]persist.Listing, 0, 10)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return listings, nil
}

// Publish stores a listing, replacing any prior listing for the same asset
func (l *ListingRepository) Publish(pCtx context.Context, pListing persist.Listing) (persist.Listing, error) {
	_, err := l.upsertStmt.ExecContext(pCtx, persist.GenerateID(), pListing.Version, pListing.ContractAddress, pListing.TokenID, pListing.Chain, pListing.LenderAddress, pListing.PricePerDay, pListing.MinDays, pListing.MaxDays, pListing.ListExpiresAt)
	if err != nil {
		return persist.Listing{}, err
	}
	return l.GetByIdentifiers(pCtx, pListing.ContractAddress, pListing.TokenID, pListing.Chain)
}

// Cancel removes a lender's listing for an asset
func (l *ListingRepository) Cancel(pCtx context.Context, pContractAddress persist.EthereumAddress, pTokenID persist.TokenID, pChain persist.Chain, pLender persist.EthereumAddress) error {
	res, err := l.cancelStmt.ExecContext(pCtx, pContractAddress, pTokenID, pChain, pLender)
	if err != nil {
		return err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		// either no listing, or the caller isn't the lender; look it up to
		// return the right error
		listing, err := l.GetByIdentifiers(pCtx, pContractAddress, pTokenID, pChain)
		if err != nil {
			return err
		}
		return persist.ErrUnauthorized{Caller: pLender, Reason: "only the lender " + listing.LenderAddress.String() + " may cancel the listing"}
	}
	return nil
}
