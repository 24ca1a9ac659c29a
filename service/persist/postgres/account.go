package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/rentfi/go-rentfi/service/persist"
)

// AccountRepository represents the ledger in the postgres database. Transfers
// between accounts during settlement use the transactional helpers so they
// participate in the rent call's transaction.
type AccountRepository struct {
	db               *sql.DB
	getByAddressStmt *sql.Stmt
	lockStmt         *sql.Stmt
	upsertAddStmt    *sql.Stmt
	debitStmt        *sql.Stmt
}

// NewAccountRepository creates a new postgres repository for interacting with ledger accounts
func NewAccountRepository(db *sql.DB) *AccountRepository {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	getByAddressStmt, err := db.PrepareContext(ctx, `SELECT ID,VERSION,CREATED_AT,LAST_UPDATED,ADDRESS,BALANCE FROM accounts WHERE ADDRESS = $1;`)
	checkNoErr(err)

	lockStmt, err := db.PrepareContext(ctx, `SELECT ID,VERSION,CREATED_AT,LAST_UPDATED,ADDRESS,BALANCE FROM accounts WHERE ADDRESS = $1 FOR UPDATE;`)
	checkNoErr(err)

	upsertAddStmt, err := db.PrepareContext(ctx, `INSERT INTO accounts (ID,VERSION,ADDRESS,BALANCE) VALUES ($1,0,$2,$3) ON CONFLICT (ADDRESS) DO UPDATE SET BALANCE = accounts.BALANCE + EXCLUDED.BALANCE, LAST_UPDATED = now();`)
	checkNoErr(err)

	debitStmt, err := db.PrepareContext(ctx, `UPDATE accounts SET BALANCE = BALANCE - $1, LAST_UPDATED = now() WHERE ADDRESS = $2 AND BALANCE >= $1;`)
	checkNoErr(err)

	return &AccountRepository{
		db:               db,
		getByAddressStmt: getByAddressStmt,
		lockStmt:         lockStmt,
		upsertAddStmt:    upsertAddStmt,
		debitStmt:        debitStmt,
	}
}

func scanAccount(row interface {
	Scan(dest ...interface{}) error
}) (persist.Account, error) {
	var account persist.Account
	err := row.Scan(&account.ID, &account.Version, &account.CreationTime, &account.LastUpdated, &account.Address, &account.Balance)
	return account, err
}

// GetByAddress gets the ledger account for an address
func (a *AccountRepository) GetByAddress(pCtx context.Context, pAddress persist.EthereumAddress) (persist.Account, error) {
	account, err := scanAccount(a.getByAddressStmt.QueryRowContext(pCtx, pAddress))
	if err != nil {
		if err == sql.ErrNoRows {
			return persist.Account{}, persist.ErrAccountNotFound{Address: pAddress}
		}
		return persist.Account{}, err
	}
	return account, nil
}

// Deposit credits an account, creating it when missing
func (a *AccountRepository) Deposit(pCtx context.Context, pAddress persist.EthereumAddress, pAmount persist.Amount) (persist.Account, error) {
	if _, err := a.upsertAddStmt.ExecContext(pCtx, persist.GenerateID(), pAddress, pAmount); err != nil {
		return persist.Account{}, err
	}
	return a.GetByAddress(pCtx, pAddress)
}

// Withdraw debits an account, failing when the balance can't cover the amount
func (a *AccountRepository) Withdraw(pCtx context.Context, pAddress persist.EthereumAddress, pAmount persist.Amount) (persist.Account, error) {
	res, err := a.debitStmt.ExecContext(pCtx, pAmount, pAddress)
	if err != nil {
		return persist.Account{}, err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return persist.Account{}, err
	}
	if rowsAffected == 0 {
		account, err := a.GetByAddress(pCtx, pAddress)
		if err != nil {
			return persist.Account{}, err
		}
		return persist.Account{}, persist.ErrInsufficientBalance{Address: pAddress, Balance: account.Balance, Needed: pAmount}
	}
	return a.GetByAddress(pCtx, pAddress)
}

// transferTx moves an amount between two accounts inside an open transaction.
// The sender row is locked first so concurrent settlements against the same
// account serialize; the receiving account is created on the fly.
func (a *AccountRepository) transferTx(pCtx context.Context, tx *sql.Tx, pFrom persist.EthereumAddress, pTo persist.EthereumAddress, pAmount persist.Amount) error {
	if pAmount.IsZero() {
		return nil
	}

	sender, err := scanAccount(tx.StmtContext(pCtx, a.lockStmt).QueryRowContext(pCtx, pFrom))
	if err != nil {
		if err == sql.ErrNoRows {
			return persist.ErrAccountNotFound{Address: pFrom}
		}
		return err
	}

	if sender.Balance.Cmp(pAmount) < 0 {
		return persist.ErrInsufficientBalance{Address: pFrom, Balance: sender.Balance, Needed: pAmount}
	}

	res, err := tx.StmtContext(pCtx, a.debitStmt).ExecContext(pCtx, pAmount, pFrom)
	if err != nil {
		return err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return persist.ErrInsufficientBalance{Address: pFrom, Balance: sender.Balance, Needed: pAmount}
	}

	if _, err := tx.StmtContext(pCtx, a.upsertAddStmt).ExecContext(pCtx, persist.GenerateID(), pTo, pAmount); err != nil {
		return err
	}

	return nil
}
