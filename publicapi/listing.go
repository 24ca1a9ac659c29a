package publicapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rentfi/go-rentfi/event"
	"github.com/rentfi/go-rentfi/service/logger"
	"github.com/rentfi/go-rentfi/service/persist"
	"github.com/rentfi/go-rentfi/service/persist/postgres"
	"github.com/rentfi/go-rentfi/service/redis"
	"github.com/rentfi/go-rentfi/service/rental"
	"github.com/rentfi/go-rentfi/validate"
)

const listingCacheTTL = time.Minute

// ListingAPI exposes the rental listing store
type ListingAPI struct {
	repos     *postgres.Repositories
	validator *validator.Validate
	cache     *redis.Cache
}

// ListingInput is the caller-supplied side of a publish call
type ListingInput struct {
	ContractAddress persist.EthereumAddress `json:"contract_address" binding:"required"`
	TokenID         persist.TokenID         `json:"token_id" binding:"required"`
	Chain           persist.Chain           `json:"chain"`
	PricePerDay     persist.Amount          `json:"price_per_day"`
	MinDays         int64                   `json:"min_days"`
	MaxDays         int64                   `json:"max_days"`
	ListExpiresAt   time.Time               `json:"list_expires_at"`
}

// GetListing returns the active listing for the asset, preferring the cache
func (api ListingAPI) GetListing(ctx context.Context, contractAddress persist.EthereumAddress, tokenID persist.TokenID, chain persist.Chain) (persist.Listing, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"contractAddress": validate.WithTag(contractAddress, "required,eth_addr"),
		"tokenID":         validate.WithTag(tokenID, "required,hex_token_id"),
	}); err != nil {
		return persist.Listing{}, err
	}

	key := persist.NewAssetIdentifiers(contractAddress, tokenID, chain).String()
	if api.cache != nil {
		if cached, err := api.cache.Get(ctx, key); err == nil {
			var listing persist.Listing
			if err := json.Unmarshal(cached, &listing); err == nil {
				return listing, nil
			}
		}
	}

	listing, err := api.repos.ListingRepository.GetByIdentifiers(ctx, contractAddress, tokenID, chain)
	if err != nil {
		return persist.Listing{}, err
	}

	api.cacheListing(ctx, key, listing)
	return listing, nil
}

// GetListingsByLender returns the listings published by the given address
func (api ListingAPI) GetListingsByLender(ctx context.Context, lenderAddress persist.EthereumAddress, limit, offset int64) ([]persist.Listing, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"lenderAddress": validate.WithTag(lenderAddress, "required,eth_addr"),
	}); err != nil {
		return nil, err
	}

	return api.repos.ListingRepository.GetByLender(ctx, lenderAddress, limit, offset)
}

// PublishListing creates or replaces the listing for an asset the
// authenticated caller owns
func (api ListingAPI) PublishListing(ctx context.Context, input ListingInput) (persist.Listing, error) {
	caller, err := getAuthenticatedAddress(ctx)
	if err != nil {
		return persist.Listing{}, err
	}

	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"contractAddress": validate.WithTag(input.ContractAddress, "required,eth_addr"),
		"tokenID":         validate.WithTag(input.TokenID, "required,hex_token_id"),
	}); err != nil {
		return persist.Listing{}, err
	}

	listing := persist.Listing{
		ContractAddress: input.ContractAddress,
		TokenID:         input.TokenID,
		Chain:           input.Chain,
		LenderAddress:   caller,
		PricePerDay:     input.PricePerDay,
		MinDays:         input.MinDays,
		MaxDays:         input.MaxDays,
		ListExpiresAt:   input.ListExpiresAt,
	}

	if err := rental.ValidateListing(listing, time.Now()); err != nil {
		return persist.Listing{}, err
	}

	asset, err := api.repos.AssetRepository.GetByIdentifiers(ctx, input.ContractAddress, input.TokenID, input.Chain)
	if err != nil {
		return persist.Listing{}, err
	}
	if asset.OwnerAddress != caller {
		return persist.Listing{}, persist.ErrUnauthorized{Caller: caller, Reason: "only the owner may list an asset"}
	}

	published, err := api.repos.ListingRepository.Publish(ctx, listing)
	if err != nil {
		return persist.Listing{}, err
	}

	api.invalidateListing(ctx, input.ContractAddress, input.TokenID, input.Chain)
	api.dispatchListingEvent(ctx, caller, published, persist.ActionListingCreated)
	return published, nil
}

// CancelListing removes the authenticated caller's listing for the asset
func (api ListingAPI) CancelListing(ctx context.Context, contractAddress persist.EthereumAddress, tokenID persist.TokenID, chain persist.Chain) error {
	caller, err := getAuthenticatedAddress(ctx)
	if err != nil {
		return err
	}

	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"contractAddress": validate.WithTag(contractAddress, "required,eth_addr"),
		"tokenID":         validate.WithTag(tokenID, "required,hex_token_id"),
	}); err != nil {
		return err
	}

	if err := api.repos.ListingRepository.Cancel(ctx, contractAddress, tokenID, chain, caller); err != nil {
		return err
	}

	api.invalidateListing(ctx, contractAddress, tokenID, chain)
	api.dispatchListingEvent(ctx, caller, persist.Listing{
		ContractAddress: contractAddress,
		TokenID:         tokenID,
		Chain:           chain,
		LenderAddress:   caller,
	}, persist.ActionListingCancelled)
	return nil
}

func (api ListingAPI) cacheListing(ctx context.Context, key string, listing persist.Listing) {
	if api.cache == nil {
		return
	}
	marshalled, err := json.Marshal(listing)
	if err != nil {
		return
	}
	if err := api.cache.Set(ctx, key, marshalled, listingCacheTTL); err != nil {
		logger.For(ctx).Warnf("failed to cache listing %s: %s", key, err)
	}
}

func (api ListingAPI) invalidateListing(ctx context.Context, contractAddress persist.EthereumAddress, tokenID persist.TokenID, chain persist.Chain) {
	if api.cache == nil {
		return
	}
	key := persist.NewAssetIdentifiers(contractAddress, tokenID, chain).String()
	if err := api.cache.Delete(ctx, key); err != nil {
		logger.For(ctx).Warnf("failed to invalidate listing %s: %s", key, err)
	}
}

func (api ListingAPI) dispatchListingEvent(ctx context.Context, caller persist.EthereumAddress, listing persist.Listing, action persist.Action) {
	pricePerDay := listing.PricePerDay
	err := event.Dispatch(ctx, persist.Event{
		ActorAddress:    caller,
		Action:          action,
		ResourceType:    persist.ResourceTypeListing,
		ContractAddress: listing.ContractAddress,
		TokenID:         listing.TokenID,
		Chain:           listing.Chain,
		Data: persist.EventData{
			LenderAddress: listing.LenderAddress,
			PricePerDay:   &pricePerDay,
			MinDays:       listing.MinDays,
			MaxDays:       listing.MaxDays,
			ExpiresAt:     listing.ListExpiresAt.Unix(),
		},
	})
	if err != nil {
		logger.For(ctx).Errorf("failed to dispatch listing event: %s", err)
	}
}
