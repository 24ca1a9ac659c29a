package publicapi

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/rentfi/go-rentfi/service/auth"
	"github.com/rentfi/go-rentfi/service/persist"
	"github.com/rentfi/go-rentfi/service/persist/postgres"
	"github.com/rentfi/go-rentfi/service/redis"
	"github.com/rentfi/go-rentfi/util"
	"github.com/rentfi/go-rentfi/validate"
)

const apiContextKey = "publicapi.api"

// PublicAPI is the api layer all surfaces (REST, background workers) go
// through to read and mutate state
type PublicAPI struct {
	repos     *postgres.Repositories
	validator *validator.Validate

	Auth    *AuthAPI
	Asset   *AssetAPI
	Listing *ListingAPI
	Rental  *RentalAPI
	Account *AccountAPI
}

// New creates a PublicAPI wired to the given repositories and caches
func New(ctx context.Context, repos *postgres.Repositories, listingCache, assetCache *redis.Cache, nonces *auth.NonceStore) *PublicAPI {
	validator := validate.WithCustomValidators()

	return &PublicAPI{
		repos:     repos,
		validator: validator,

		Auth:    &AuthAPI{validator: validator, nonces: nonces},
		Asset:   &AssetAPI{repos: repos, validator: validator, cache: assetCache},
		Listing: &ListingAPI{repos: repos, validator: validator, cache: listingCache},
		Rental:  &RentalAPI{repos: repos, validator: validator, listingCache: listingCache, assetCache: assetCache},
		Account: &AccountAPI{repos: repos, validator: validator},
	}
}

// AddTo adds the specified PublicAPI to a gin context
func AddTo(ctx *gin.Context, api *PublicAPI) {
	ctx.Set(apiContextKey, api)
}

// PushTo pushes the specified PublicAPI onto the context stack and returns the new context
func PushTo(ctx context.Context, api *PublicAPI) context.Context {
	return context.WithValue(ctx, apiContextKey, api)
}

// For returns the PublicAPI instance available on the context
func For(ctx context.Context) *PublicAPI {
	if api, ok := ctx.Value(apiContextKey).(*PublicAPI); ok {
		return api
	}

	gc := util.GinContextFromContext(ctx)
	return gc.Value(apiContextKey).(*PublicAPI)
}

func getAuthenticatedAddress(ctx context.Context) (persist.EthereumAddress, error) {
	gc := util.GinContextFromContext(ctx)
	if authError := auth.GetAuthErrorFromCtx(gc); authError != nil {
		return "", authError
	}

	return auth.GetAddressFromCtx(gc), nil
}
