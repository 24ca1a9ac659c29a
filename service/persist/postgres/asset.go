package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/rentfi/go-rentfi/service/persist"
)

// AssetRepository represents the asset registry in the postgres database. It
// owns the ownership and delegation slots of every asset; all delegation
// writes go through it and are guarded by the owner/operator check.
type AssetRepository struct {
	db                     *sql.DB
	getByIdentifiersStmt   *sql.Stmt
	getByOwnerStmt         *sql.Stmt
	getByOwnerPaginateStmt *sql.Stmt
	lockByIdentifiersStmt  *sql.Stmt
	insertStmt             *sql.Stmt
	setDelegationStmt      *sql.Stmt
	upsertApprovalStmt     *sql.Stmt
	getApprovalStmt        *sql.Stmt
}

// NewAssetRepository creates a new postgres repository for interacting with assets
func NewAssetRepository(db *sql.DB) *AssetRepository {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	assetColumns := `ID,VERSION,CREATED_AT,LAST_UPDATED,CONTRACT_ADDRESS,TOKEN_ID,CHAIN,OWNER_ADDRESS,USER_ADDRESS,USER_EXPIRES_AT`

	getByIdentifiersStmt, err := db.PrepareContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE CONTRACT_ADDRESS = $1 AND TOKEN_ID = $2 AND CHAIN = $3 AND DELETED = false;`)
	checkNoErr(err)

	getByOwnerStmt, err := db.PrepareContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE OWNER_ADDRESS = $1 AND DELETED = false ORDER BY LAST_UPDATED DESC;`)
	checkNoErr(err)

	getByOwnerPaginateStmt, err := db.PrepareContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE OWNER_ADDRESS = $1 AND DELETED = false ORDER BY LAST_UPDATED DESC LIMIT $2 OFFSET $3;`)
	checkNoErr(err)

	lockByIdentifiersStmt, err := db.PrepareContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE CONTRACT_ADDRESS = $1 AND TOKEN_ID = $2 AND CHAIN = $3 AND DELETED = false FOR UPDATE;`)
	checkNoErr(err)

	insertStmt, err := db.PrepareContext(ctx, `INSERT INTO assets (ID,VERSION,CONTRACT_ADDRESS,TOKEN_ID,CHAIN,OWNER_ADDRESS) VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (CONTRACT_ADDRESS,TOKEN_ID,CHAIN) DO NOTHING;`)
	checkNoErr(err)

	setDelegationStmt, err := db.PrepareContext(ctx, `UPDATE assets SET USER_ADDRESS = $1, USER_EXPIRES_AT = $2, LAST_UPDATED = now() WHERE CONTRACT_ADDRESS = $3 AND TOKEN_ID = $4 AND CHAIN = $5 AND DELETED = false;`)
	checkNoErr(err)

	upsertApprovalStmt, err := db.PrepareContext(ctx, `INSERT INTO operator_approvals (ID,OWNER_ADDRESS,OPERATOR_ADDRESS,APPROVED) VALUES ($1,$2,$3,$4) ON CONFLICT (OWNER_ADDRESS,OPERATOR_ADDRESS) DO UPDATE SET APPROVED = EXCLUDED.APPROVED, LAST_UPDATED = now();`)
	checkNoErr(err)

	getApprovalStmt, err := db.PrepareContext(ctx, `SELECT APPROVED FROM operator_approvals WHERE OWNER_ADDRESS = $1 AND OPERATOR_ADDRESS = $2;`)
	checkNoErr(err)

	return &AssetRepository{
		db:                     db,
		getByIdentifiersStmt:   getByIdentifiersStmt,
		getByOwnerStmt:         getByOwnerStmt,
		getByOwnerPaginateStmt: getByOwnerPaginateStmt,
		lockByIdentifiersStmt:  lockByIdentifiersStmt,
		insertStmt:             insertStmt,
		setDelegationStmt:      setDelegationStmt,
		upsertApprovalStmt:     upsertApprovalStmt,
		getApprovalStmt:        getApprovalStmt,
	}
}

func scanAsset(row interface {
	Scan(dest ...interface{}) error
}) (persist.Asset, error) {
	var asset persist.Asset
	err := row.Scan(&asset.ID, &asset.Version, &asset.CreationTime, &asset.LastUpdated, &asset.ContractAddress, &asset.TokenID, &asset.Chain, &asset.OwnerAddress, &asset.Delegation.User, &asset.Delegation.ExpiresAt)
	return asset, err
}

// GetByIdentifiers gets an asset by its contract address, token ID and chain
func (a *AssetRepository) GetByIdentifiers(pCtx context.Context, pContractAddress persist.EthereumAddress, pTokenID persist.TokenID, pChain persist.Chain) (persist.Asset, error) {
	asset, err := scanAsset(a.getByIdentifiersStmt.QueryRowContext(pCtx, pContractAddress, pTokenID, pChain))
	if err != nil {
		if err == sql.ErrNoRows {
			return persist.Asset{}, persist.ErrAssetNotFoundByIdentifiers{ContractAddress: pContractAddress, TokenID: pTokenID, Chain: pChain}
		}
		return persist.Asset{}, err
	}
	return asset, nil
}

// GetByOwner retrieves all assets owned by an address
func (a *AssetRepository) GetByOwner(pCtx context.Context, pAddress persist.EthereumAddress, limit int64, offset int64) ([]persist.Asset, error) {
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = a.getByOwnerPaginateStmt.QueryContext(pCtx, pAddress, limit, offset)
	} else {
		rows, err = a.getByOwnerStmt.QueryContext(pCtx, pAddress)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := make([]persist.Asset, 0, 10)
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assets, nil
}

// Mint registers a new asset with its owner. The registry is the source of
// truth for ownership; minting an already-registered asset fails.
func (a *AssetRepository) Mint(pCtx context.Context, pContractAddress persist.EthereumAddress, pTokenID persist.TokenID, pChain persist.Chain, pOwner persist.EthereumAddress) (persist.Asset, error) {
	res, err := a.insertStmt.ExecContext(pCtx, persist.GenerateID(), 0, pContractAddress, pTokenID, pChain, pOwner)
	if err != nil {
		return persist.Asset{}, err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return persist.Asset{}, err
	}
	if rowsAffected == 0 {
		return persist.Asset{}, persist.ErrAssetAlreadyExists{ContractAddress: pContractAddress, TokenID: pTokenID, Chain: pChain}
	}
	return a.GetByIdentifiers(pCtx, pContractAddress, pTokenID, pChain)
}

// SetDelegation writes the asset's delegation slot. The caller must be the
// asset's owner or an operator the owner has approved; any prior delegation
// is overwritten unconditionally. No future-expiry policy is enforced here.
func (a *AssetRepository) SetDelegation(pCtx context.Context, pContractAddress persist.EthereumAddress, pTokenID persist.TokenID, pChain persist.Chain, pCaller persist.EthereumAddress, pUser persist.EthereumAddress, pExpiresAt time.Time) (persist.Asset, error) {
	tx, err := a.db.BeginTx(pCtx, nil)
	if err != nil {
		return persist.Asset{}, err
	}
	defer tx.Rollback()

	asset, err := scanAsset(tx.StmtContext(pCtx, a.lockByIdentifiersStmt).QueryRowContext(pCtx, pContractAddress, pTokenID, pChain))
	if err != nil {
		if err == sql.ErrNoRows {
			return persist.Asset{}, persist.ErrAssetNotFoundByIdentifiers{ContractAddress: pContractAddress, TokenID: pTokenID, Chain: pChain}
		}
		return persist.Asset{}, err
	}

	if err := a.authorizeTx(pCtx, tx, asset.OwnerAddress, pCaller); err != nil {
		return persist.Asset{}, err
	}

	if _, err := tx.StmtContext(pCtx, a.setDelegationStmt).ExecContext(pCtx, pUser, pExpiresAt, pContractAddress, pTokenID, pChain); err != nil {
		return persist.Asset{}, err
	}

	if err := tx.Commit(); err != nil {
		return persist.Asset{}, err
	}

	asset.Delegation = persist.Delegation{User: pUser, ExpiresAt: pExpiresAt}
	return asset, nil
}

// ClearDelegation resets the asset's delegation slot to the zero address
func (a *AssetRepository) ClearDelegation(pCtx context.Context, pContractAddress persist.EthereumAddress, pTokenID persist.TokenID, pChain persist.Chain, pCaller persist.EthereumAddress) (persist.Asset, error) {
	return a.SetDelegation(pCtx, pContractAddress, pTokenID, pChain, pCaller, persist.ZeroAddress, time.Unix(0, 0))
}

// SetOperatorApproval grants or revokes an operator's right to manage all of
// the owner's assets, mirroring an ERC-721 approval-for-all.
func (a *AssetRepository) SetOperatorApproval(pCtx context.Context, pOwner persist.EthereumAddress, pOperator persist.EthereumAddress, pApproved bool) error {
	_, err := a.upsertApprovalStmt.ExecContext(pCtx, persist.GenerateID(), pOwner, pOperator, pApproved)
	return err
}

// IsApprovedForAll returns whether the operator is approved for all of the owner's assets
func (a *AssetRepository) IsApprovedForAll(pCtx context.Context, pOwner persist.EthereumAddress, pOperator persist.EthereumAddress) (bool, error) {
	var approved bool
	err := a.getApprovalStmt.QueryRowContext(pCtx, pOwner, pOperator).Scan(&approved)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return approved, nil
}

func (a *AssetRepository) authorizeTx(pCtx context.Context, tx *sql.Tx, pOwner persist.EthereumAddress, pCaller persist.EthereumAddress) error {
	if pCaller.String() == pOwner.String() {
		return nil
	}

	var approved bool
	err := tx.StmtContext(pCtx, a.getApprovalStmt).QueryRowContext(pCtx, pOwner, pCaller).Scan(&approved)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if !approved {
		return persist.ErrUnauthorized{Caller: pCaller, Reason: "caller is neither owner nor approved operator"}
	}
	return nil
}
