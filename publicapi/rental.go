package publicapi

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rentfi/go-rentfi/event"
	"github.com/rentfi/go-rentfi/service/logger"
	"github.com/rentfi/go-rentfi/service/persist"
	"github.com/rentfi/go-rentfi/service/persist/postgres"
	"github.com/rentfi/go-rentfi/service/redis"
	"github.com/rentfi/go-rentfi/validate"
)

// RentalAPI executes rent calls and reads back receipts
type RentalAPI struct {
	repos        *postgres.Repositories
	validator    *validator.Validate
	listingCache *redis.Cache
	assetCache   *redis.Cache
}

// Rent fulfills the asset's listing for the authenticated caller: it settles
// payment and writes the delegation in one atomic step, returning the receipt
func (api RentalAPI) Rent(ctx context.Context, contractAddress persist.EthereumAddress, tokenID persist.TokenID, chain persist.Chain, days int64, payment persist.Amount) (persist.Rental, error) {
	caller, err := getAuthenticatedAddress(ctx)
	if err != nil {
		return persist.Rental{}, err
	}

	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"contractAddress": validate.WithTag(contractAddress, "required,eth_addr"),
		"tokenID":         validate.WithTag(tokenID, "required,hex_token_id"),
	}); err != nil {
		return persist.Rental{}, err
	}

	input := persist.RentalInput{
		ContractAddress: contractAddress,
		TokenID:         tokenID,
		Chain:           chain,
		RenterAddress:   caller,
		Days:            days,
		Payment:         payment,
	}

	receipt, err := api.repos.RentalRepository.Rent(ctx, input, time.Now())
	if err != nil {
		return persist.Rental{}, err
	}

	api.invalidateCaches(ctx, contractAddress, tokenID, chain)
	api.dispatchRentalCompleted(ctx, receipt)
	return receipt, nil
}

// GetRentalsByAsset returns the asset's rental receipts, newest first
func (api RentalAPI) GetRentalsByAsset(ctx context.Context, contractAddress persist.EthereumAddress, tokenID persist.TokenID, chain persist.Chain, limit, offset int64) ([]persist.Rental, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"contractAddress": validate.WithTag(contractAddress, "required,eth_addr"),
		"tokenID":         validate.WithTag(tokenID, "required,hex_token_id"),
	}); err != nil {
		return nil, err
	}

	return api.repos.RentalRepository.GetByAsset(ctx, contractAddress, tokenID, chain, limit, offset)
}

func (api RentalAPI) invalidateCaches(ctx context.Context, contractAddress persist.EthereumAddress, tokenID persist.TokenID, chain persist.Chain) {
	key := persist.NewAssetIdentifiers(contractAddress, tokenID, chain).String()
	for _, cache := range []*redis.Cache{api.listingCache, api.assetCache} {
		if cache == nil {
			continue
		}
		if err := cache.Delete(ctx, key); err != nil {
			logger.For(ctx).Warnf("failed to invalidate %s: %s", key, err)
		}
	}
}

func (api RentalAPI) dispatchRentalCompleted(ctx context.Context, receipt persist.Rental) {
	totalPrice := receipt.TotalPrice
	err := event.Dispatch(ctx, persist.Event{
		ActorAddress:    receipt.RenterAddress,
		Action:          persist.ActionRentalCompleted,
		ResourceType:    persist.ResourceTypeRental,
		ContractAddress: receipt.ContractAddress,
		TokenID:         receipt.TokenID,
		Chain:           receipt.Chain,
		Data: persist.EventData{
			LenderAddress: receipt.LenderAddress,
			RenterAddress: receipt.RenterAddress,
			Days:          receipt.Days,
			TotalPrice:    &totalPrice,
			ExpiresAt:     receipt.ExpiresAt.Unix(),
		},
	})
	if err != nil {
		logger.For(ctx).Errorf("failed to dispatch rental event: %s", err)
	}
}
