package persist

import (
	"context"
	"fmt"
)

// Account is a ledger account holding a balance in the asset currency's
// smallest unit. The ledger stands in for the chain-level value-transfer
// mechanism: rent settlement debits the renter and credits the lender (and
// platform) inside the same transaction that writes the delegation.
type Account struct {
	ID           DBID            `json:"id"`
	Version      NullInt32       `json:"version"`
	CreationTime CreationTime    `json:"created_at"`
	LastUpdated  LastUpdatedTime `json:"last_updated"`

	Address EthereumAddress `json:"address"`
	Balance Amount          `json:"balance"`
}

// AccountRepository represents a repository for interacting with ledger accounts
type AccountRepository interface {
	GetByAddress(context.Context, EthereumAddress) (Account, error)
	Deposit(context.Context, EthereumAddress, Amount) (Account, error)
	Withdraw(context.Context, EthereumAddress, Amount) (Account, error)
}

// ErrAccountNotFound is returned when no ledger account exists for an address
type ErrAccountNotFound struct {
	Address EthereumAddress
}

func (e ErrAccountNotFound) Error() string {
	return fmt.Sprintf("no account for address %s", e.Address)
}

// ErrInsufficientBalance is returned when an account can't cover a debit
type ErrInsufficientBalance struct {
	Address EthereumAddress
	Balance Amount
	Needed  Amount
}

func (e ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("account %s holds %s, needs %s", e.Address, e.Balance, e.Needed)
}
