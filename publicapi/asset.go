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
	"github.com/rentfi/go-rentfi/validate"
)

const assetCacheTTL = time.Minute

// AssetAPI exposes the registry: ownership, delegation and operator approvals
type AssetAPI struct {
	repos     *postgres.Repositories
	validator *validator.Validate
	cache     *redis.Cache
}

// GetAsset returns the asset with the given identifiers, preferring the cache
func (api AssetAPI) GetAsset(ctx context.Context, contractAddress persist.EthereumAddress, tokenID persist.TokenID, chain persist.Chain) (persist.Asset, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"contractAddress": validate.WithTag(contractAddress, "required,eth_addr"),
		"tokenID":         validate.WithTag(tokenID, "required,hex_token_id"),
	}); err != nil {
		return persist.Asset{}, err
	}

	key := persist.NewAssetIdentifiers(contractAddress, tokenID, chain).String()
	if api.cache != nil {
		if cached, err := api.cache.Get(ctx, key); err == nil {
			var asset persist.Asset
			if err := json.Unmarshal(cached, &asset); err == nil {
				return asset, nil
			}
		}
	}

	asset, err := api.repos.AssetRepository.GetByIdentifiers(ctx, contractAddress, tokenID, chain)
	if err != nil {
		return persist.Asset{}, err
	}

	api.cacheAsset(ctx, key, asset)
	return asset, nil
}

// GetAssetsByOwner returns the assets owned by the given address
func (api AssetAPI) GetAssetsByOwner(ctx context.Context, ownerAddress persist.EthereumAddress, limit, offset int64) ([]persist.Asset, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"ownerAddress": validate.WithTag(ownerAddress, "required,eth_addr"),
	}); err != nil {
		return nil, err
	}

	return api.repos.AssetRepository.GetByOwner(ctx, ownerAddress, limit, offset)
}

// EffectiveUser returns the delegated user of the asset at the given time,
// or the zero address when no delegation is live
func (api AssetAPI) EffectiveUser(ctx context.Context, contractAddress persist.EthereumAddress, tokenID persist.TokenID, chain persist.Chain, at time.Time) (persist.EthereumAddress, error) {
	asset, err := api.GetAsset(ctx, contractAddress, tokenID, chain)
	if err != nil {
		return "", err
	}

	return asset.EffectiveUser(at), nil
}

// Mint registers a new asset under the authenticated caller's ownership
func (api AssetAPI) Mint(ctx context.Context, contractAddress persist.EthereumAddress, tokenID persist.TokenID, chain persist.Chain) (persist.Asset, error) {
	caller, err := getAuthenticatedAddress(ctx)
	if err != nil {
		return persist.Asset{}, err
	}

	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"contractAddress": validate.WithTag(contractAddress, "required,eth_addr"),
		"tokenID":         validate.WithTag(tokenID, "required,hex_token_id"),
	}); err != nil {
		return persist.Asset{}, err
	}

	return api.repos.AssetRepository.Mint(ctx, contractAddress, tokenID, chain, caller)
}

// SetDelegation directly writes a delegation for the asset. The caller must
// be the owner or an approved operator.
func (api AssetAPI) SetDelegation(ctx context.Context, contractAddress persist.EthereumAddress, tokenID persist.TokenID, chain persist.Chain, user persist.EthereumAddress, expiresAt time.Time) (persist.Asset, error) {
	caller, err := getAuthenticatedAddress(ctx)
	if err != nil {
		return persist.Asset{}, err
	}

	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"contractAddress": validate.WithTag(contractAddress, "required,eth_addr"),
		"tokenID":         validate.WithTag(tokenID, "required,hex_token_id"),
		"user":            validate.WithTag(user, "required,eth_addr"),
	}); err != nil {
		return persist.Asset{}, err
	}

	asset, err := api.repos.AssetRepository.SetDelegation(ctx, contractAddress, tokenID, chain, caller, user, expiresAt)
	if err != nil {
		return persist.Asset{}, err
	}

	api.invalidateAsset(ctx, contractAddress, tokenID, chain)
	api.dispatchDelegationChanged(ctx, caller, asset, user, expiresAt)
	return asset, nil
}

// ClearDelegation removes the asset's delegation, restoring the owner as the
// effective user
func (api AssetAPI) ClearDelegation(ctx context.Context, contractAddress persist.EthereumAddress, tokenID persist.TokenID, chain persist.Chain) (persist.Asset, error) {
	caller, err := getAuthenticatedAddress(ctx)
	if err != nil {
		return persist.Asset{}, err
	}

	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"contractAddress": validate.WithTag(contractAddress, "required,eth_addr"),
		"tokenID":         validate.WithTag(tokenID, "required,hex_token_id"),
	}); err != nil {
		return persist.Asset{}, err
	}

	asset, err := api.repos.AssetRepository.ClearDelegation(ctx, contractAddress, tokenID, chain, caller)
	if err != nil {
		return persist.Asset{}, err
	}

	api.invalidateAsset(ctx, contractAddress, tokenID, chain)
	api.dispatchDelegationChanged(ctx, caller, asset, persist.ZeroAddress, time.Unix(0, 0))
	return asset, nil
}

// SetOperatorApproval grants or revokes an operator's right to manage all of
// the caller's assets
func (api AssetAPI) SetOperatorApproval(ctx context.Context, operator persist.EthereumAddress, approved bool) error {
	caller, err := getAuthenticatedAddress(ctx)
	if err != nil {
		return err
	}

	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"operator": validate.WithTag(operator, "required,eth_addr"),
	}); err != nil {
		return err
	}

	return api.repos.AssetRepository.SetOperatorApproval(ctx, caller, operator, approved)
}

// IsApprovedForAll reports whether the operator may manage all of the owner's assets
func (api AssetAPI) IsApprovedForAll(ctx context.Context, owner, operator persist.EthereumAddress) (bool, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"owner":    validate.WithTag(owner, "required,eth_addr"),
		"operator": validate.WithTag(operator, "required,eth_addr"),
	}); err != nil {
		return false, err
	}

	return api.repos.AssetRepository.IsApprovedForAll(ctx, owner, operator)
}

func (api AssetAPI) cacheAsset(ctx context.Context, key string, asset persist.Asset) {
	if api.cache == nil {
		return
	}
	marshalled, err := json.Marshal(asset)
	if err != nil {
		return
	}
	if err := api.cache.Set(ctx, key, marshalled, assetCacheTTL); err != nil {
		logger.For(ctx).Warnf("failed to cache asset %s: %s", key, err)
	}
}

func (api AssetAPI) invalidateAsset(ctx context.Context, contractAddress persist.EthereumAddress, tokenID persist.TokenID, chain persist.Chain) {
	if api.cache == nil {
		return
	}
	key := persist.NewAssetIdentifiers(contractAddress, tokenID, chain).String()
	if err := api.cache.Delete(ctx, key); err != nil {
		logger.For(ctx).Warnf("failed to invalidate asset %s: %s", key, err)
	}
}

func (api AssetAPI) dispatchDelegationChanged(ctx context.Context, caller persist.EthereumAddress, asset persist.Asset, user persist.EthereumAddress, expiresAt time.Time) {
	err := event.Dispatch(ctx, persist.Event{
		ActorAddress:    caller,
		Action:          persist.ActionDelegationChanged,
		ResourceType:    persist.ResourceTypeAsset,
		ContractAddress: asset.ContractAddress,
		TokenID:         asset.TokenID,
		Chain:           asset.Chain,
		Data: persist.EventData{
			UserAddress: user,
			ExpiresAt:   expiresAt.Unix(),
		},
	})
	if err != nil {
		logger.For(ctx).Errorf("failed to dispatch delegation event: %s", err)
	}
}
