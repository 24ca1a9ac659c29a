package publicapi

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/rentfi/go-rentfi/service/auth"
	"github.com/rentfi/go-rentfi/service/persist"
	"github.com/rentfi/go-rentfi/validate"
)

// AuthAPI exposes nonce issuance and signature-based login
type AuthAPI struct {
	validator *validator.Validate
	nonces    *auth.NonceStore
}

// GetNonce issues a one-time login nonce for the address to sign
func (api AuthAPI) GetNonce(ctx context.Context, address persist.EthereumAddress) (string, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"address": validate.WithTag(address, "required,eth_addr"),
	}); err != nil {
		return "", err
	}

	return api.nonces.NewNonce(ctx, address)
}

// Login verifies a signed nonce and returns an auth token for the address
func (api AuthAPI) Login(ctx context.Context, address persist.EthereumAddress, signature string) (string, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"address":   validate.WithTag(address, "required,eth_addr"),
		"signature": validate.WithTag(signature, "required"),
	}); err != nil {
		return "", err
	}

	return auth.Login(ctx, api.nonces, address, signature)
}
