package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/rentfi/go-rentfi/service/logger"
	"github.com/rentfi/go-rentfi/service/persist"
	"github.com/rentfi/go-rentfi/service/rental"
	"github.com/rentfi/go-rentfi/util"
)

// RentalRepository executes rent calls against the postgres database. Each
// call runs as one transaction holding the asset row lock, so the
// validate-then-write sequence is atomic and two rents racing for the same
// asset serialize: the loser observes the winner's delegation and is rejected.
type RentalRepository struct {
	db       *sql.DB
	accounts *AccountRepository

	feeBPS     int64
	feeAddress persist.EthereumAddress

	lockAssetStmt       *sql.Stmt
	getListingStmt      *sql.Stmt
	setDelegationStmt   *sql.Stmt
	insertRentalStmt    *sql.Stmt
	getByAssetStmt      *sql.Stmt
	getByAssetPagedStmt *sql.Stmt
}

// NewRentalRepository creates a new postgres repository for executing rentals.
// A feeBPS of 0 disables the platform fee; otherwise fee rounds down and the
// remainder goes to the lender.
func NewRentalRepository(db *sql.DB, accounts *AccountRepository, feeBPS int64, feeAddress persist.EthereumAddress) *RentalRepository {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	assetColumns := `ID,VERSION,CREATED_AT,LAST_UPDATED,CONTRACT_ADDRESS,TOKEN_ID,CHAIN,OWNER_ADDRESS,USER_ADDRESS,USER_EXPIRES_AT`
	rentalColumns := `ID,CREATED_AT,CONTRACT_ADDRESS,TOKEN_ID,CHAIN,LENDER_ADDRESS,RENTER_ADDRESS,DAYS,TOTAL_PRICE,FEE,EXPIRES_AT`

	lockAssetStmt, err := db.PrepareContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE CONTRACT_ADDRESS = $1 AND TOKEN_ID = $2 AND CHAIN = $3 AND DELETED = false FOR UPDATE;`)
	checkNoErr(err)

	getListingStmt, err := db.PrepareContext(ctx, `SELECT ID,VERSION,CREATED_AT,LAST_UPDATED,CONTRACT_ADDRESS,TOKEN_ID,CHAIN,LENDER_ADDRESS,PRICE_PER_DAY,MIN_DAYS,MAX_DAYS,LIST_EXPIRES_AT FROM listings WHERE CONTRACT_ADDRESS = $1 AND TOKEN_ID = $2 AND CHAIN = $3 AND DELETED = false;`)
	checkNoErr(err)

	setDelegationStmt, err := db.PrepareContext(ctx, `UPDATE assets SET USER_ADDRESS = $1, USER_EXPIRES_AT = $2, LAST_UPDATED = now() WHERE CONTRACT_ADDRESS = $3 AND TOKEN_ID = $4 AND CHAIN = $5 AND DELETED = false;`)
	checkNoErr(err)

	insertRentalStmt, err := db.PrepareContext(ctx, `INSERT INTO rentals (ID,CONTRACT_ADDRESS,TOKEN_ID,CHAIN,LENDER_ADDRESS,RENTER_ADDRESS,DAYS,TOTAL_PRICE,FEE,EXPIRES_AT) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`)
	checkNoErr(err)

	getByAssetStmt, err := db.PrepareContext(ctx, `SELECT `+rentalColumns+` FROM rentals WHERE CONTRACT_ADDRESS = $1 AND TOKEN_ID = $2 AND CHAIN = $3 ORDER BY CREATED_AT DESC;`)
	checkNoErr(err)

	getByAssetPagedStmt, err := db.PrepareContext(ctx, `SELECT `+rentalColumns+` FROM rentals WHERE CONTRACT_ADDRESS = $1 AND TOKEN_ID = $2 AND CHAIN = $3 ORDER BY CREATED_AT DESC LIMIT $4 OFFSET $5;`)
	checkNoErr(err)

	return &RentalRepository{
		db:                  db,
		accounts:            accounts,
		feeBPS:              feeBPS,
		feeAddress:          feeAddress,
		lockAssetStmt:       lockAssetStmt,
		getListingStmt:      getListingStmt,
		setDelegationStmt:   setDelegationStmt,
		insertRentalStmt:    insertRentalStmt,
		getByAssetStmt:      getByAssetStmt,
		getByAssetPagedStmt: getByAssetPagedStmt,
	}
}

// Rent validates the rent request against the listing and the asset's current
// delegation, settles payment and writes the new delegation, all inside one
// transaction. Any failure rolls the whole call back; no partial state is
// ever observable.
func (r *RentalRepository) Rent(pCtx context.Context, pInput persist.RentalInput, pNow time.Time) (persist.Rental, error) {
	defer util.Track("RentalRepository.Rent", time.Now())

	tx, err := r.db.BeginTx(pCtx, nil)
	if err != nil {
		return persist.Rental{}, err
	}
	defer tx.Rollback()

	// the asset row lock is the per-asset mutual exclusion around the
	// validate-then-write sequence
	asset, err := scanAsset(tx.StmtContext(pCtx, r.lockAssetStmt).QueryRowContext(pCtx, pInput.ContractAddress, pInput.TokenID, pInput.Chain))
	if err != nil {
		if err == sql.ErrNoRows {
			return persist.Rental{}, persist.ErrAssetNotFoundByIdentifiers{ContractAddress: pInput.ContractAddress, TokenID: pInput.TokenID, Chain: pInput.Chain}
		}
		return persist.Rental{}, err
	}

	listing, err := scanListing(tx.StmtContext(pCtx, r.getListingStmt).QueryRowContext(pCtx, pInput.ContractAddress, pInput.TokenID, pInput.Chain))
	if err != nil {
		if err == sql.ErrNoRows {
			return persist.Rental{}, persist.ErrListingNotFound{ContractAddress: pInput.ContractAddress, TokenID: pInput.TokenID, Chain: pInput.Chain}
		}
		return persist.Rental{}, err
	}

	totalPrice, err := rental.Validate(listing, asset, pInput, pNow)
	if err != nil {
		return persist.Rental{}, err
	}

	fee, lenderShare, err := rental.SplitFee(totalPrice, r.feeBPS)
	if err != nil {
		return persist.Rental{}, err
	}

	if err := r.accounts.transferTx(pCtx, tx, pInput.RenterAddress, listing.LenderAddress, lenderShare); err != nil {
		return persist.Rental{}, persist.ErrSettlementFailed{Err: err}
	}
	if !fee.IsZero() {
		if err := r.accounts.transferTx(pCtx, tx, pInput.RenterAddress, r.feeAddress, fee); err != nil {
			return persist.Rental{}, persist.ErrSettlementFailed{Err: err}
		}
	}

	expiresAt := rental.ExpiryFor(pNow, pInput.Days)
	if _, err := tx.StmtContext(pCtx, r.setDelegationStmt).ExecContext(pCtx, pInput.RenterAddress, expiresAt, pInput.ContractAddress, pInput.TokenID, pInput.Chain); err != nil {
		return persist.Rental{}, err
	}

	receipt := persist.Rental{
		ID:              persist.GenerateID(),
		ContractAddress: pInput.ContractAddress,
		TokenID:         pInput.TokenID,
		Chain:           pInput.Chain,
		LenderAddress:   listing.LenderAddress,
		RenterAddress:   pInput.RenterAddress,
		Days:            pInput.Days,
		TotalPrice:      totalPrice,
		Fee:             fee,
		ExpiresAt:       expiresAt,
	}

	if _, err := tx.StmtContext(pCtx, r.insertRentalStmt).ExecContext(pCtx, receipt.ID, receipt.ContractAddress, receipt.TokenID, receipt.Chain, receipt.LenderAddress, receipt.RenterAddress, receipt.Days, receipt.TotalPrice, receipt.Fee, receipt.ExpiresAt); err != nil {
		return persist.Rental{}, err
	}

	if err := tx.Commit(); err != nil {
		return persist.Rental{}, err
	}

	logger.For(pCtx).WithField("asset", persist.NewAssetIdentifiers(receipt.ContractAddress, receipt.TokenID, receipt.Chain)).
		Infof("rented to %s for %d days at %s", receipt.RenterAddress, receipt.Days, receipt.TotalPrice)

	return receipt, nil
}

func scanRental(row interface {
	Scan(dest ...interface{}) error
}) (persist.Rental, error) {
	var rentalRow persist.Rental
	err := row.Scan(&rentalRow.ID, &rentalRow.CreationTime, &rentalRow.ContractAddress, &rentalRow.TokenID, &rentalRow.Chain, &rentalRow.LenderAddress, &rentalRow.RenterAddress, &rentalRow.Days, &rentalRow.TotalPrice, &rentalRow.Fee, &rentalRow.ExpiresAt)
	return rentalRow, err
}

// GetByAsset retrieves the rental receipts for an asset, most recent first
func (r *RentalRepository) GetByAsset(pCtx context.Context, pContractAddress persist.EthereumAddress, pTokenID persist.TokenID, pChain persist.Chain, limit int64, offset int64) ([]persist.Rental, error) {
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.getByAssetPagedStmt.QueryContext(pCtx, pContractAddress, pTokenID, pChain, limit, offset)
	} else {
		rows, err = r.getByAssetStmt.QueryContext(pCtx, pContractAddress, pTokenID, pChain)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rentals := make([]persist.Rental, 0, 10)
	for rows.Next() {
		rentalRow, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, rentalRow)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rentals, nil
}
