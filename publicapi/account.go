package publicapi

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/rentfi/go-rentfi/service/persist"
	"github.com/rentfi/go-rentfi/service/persist/postgres"
	"github.com/rentfi/go-rentfi/validate"
)

// AccountAPI exposes the internal settlement ledger
type AccountAPI struct {
	repos     *postgres.Repositories
	validator *validator.Validate
}

// GetBalance returns the ledger balance of the given address
func (api AccountAPI) GetBalance(ctx context.Context, address persist.EthereumAddress) (persist.Account, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"address": validate.WithTag(address, "required,eth_addr"),
	}); err != nil {
		return persist.Account{}, err
	}

	return api.repos.AccountRepository.GetByAddress(ctx, address)
}

// Deposit credits the authenticated caller's ledger balance
func (api AccountAPI) Deposit(ctx context.Context, amount persist.Amount) (persist.Account, error) {
	caller, err := getAuthenticatedAddress(ctx)
	if err != nil {
		return persist.Account{}, err
	}

	if amount.IsZero() {
		return persist.Account{}, validate.ErrInvalidInput{Parameters: []string{"amount"}, Reasons: []string{"must be positive"}}
	}

	return api.repos.AccountRepository.Deposit(ctx, caller, amount)
}

// Withdraw debits the authenticated caller's ledger balance
func (api AccountAPI) Withdraw(ctx context.Context, amount persist.Amount) (persist.Account, error) {
	caller, err := getAuthenticatedAddress(ctx)
	if err != nil {
		return persist.Account{}, err
	}

	if amount.IsZero() {
		return persist.Account{}, validate.ErrInvalidInput{Parameters: []string{"amount"}, Reasons: []string{"must be positive"}}
	}

	return api.repos.AccountRepository.Withdraw(ctx, caller, amount)
}
