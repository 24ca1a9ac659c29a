package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rentfi/go-rentfi/debugtools"
	"github.com/rentfi/go-rentfi/event"
	"github.com/rentfi/go-rentfi/middleware"
	"github.com/rentfi/go-rentfi/publicapi"
	"github.com/rentfi/go-rentfi/service/auth"
	"github.com/rentfi/go-rentfi/service/persist"
	"github.com/rentfi/go-rentfi/service/persist/postgres"
	"github.com/rentfi/go-rentfi/util"
	"github.com/rentfi/go-rentfi/validate"
)

// HandlersInit registers all routes on the router
func HandlersInit(router *gin.Engine, api *publicapi.PublicAPI, repos *postgres.Repositories) *gin.Engine {
	router.GET("/alive", util.HealthCheckHandler())

	apiMiddleware := func(c *gin.Context) {
		publicapi.AddTo(c, api)
		event.AddTo(c, repos.EventRepository)
		c.Next()
	}

	router.Use(apiMiddleware, middleware.ContinueSession())

	authGroup := router.Group("/auth")
	authGroup.POST("/nonce", getNonce())
	authGroup.POST("/login", login())
	if debugtools.Enabled && debugtools.IsDebugEnv() {
		authGroup.POST("/debug/login", debugLogin())
	}

	assetsGroup := router.Group("/assets")
	assetsGroup.GET("/:contract/:token", getAsset())
	assetsGroup.GET("/:contract/:token/user", getEffectiveUser())
	assetsGroup.GET("/:contract/:token/rentals", getRentals())
	assetsGroup.GET("/:contract/:token/events", getEvents(repos))
	assetsGroup.POST("/mint", middleware.AuthRequired(), mintAsset())
	assetsGroup.POST("/delegation", middleware.AuthRequired(), setDelegation())
	assetsGroup.DELETE("/delegation", middleware.AuthRequired(), clearDelegation())
	assetsGroup.POST("/approval", middleware.AuthRequired(), setOperatorApproval())

	listingsGroup := router.Group("/listings")
	listingsGroup.GET("/:contract/:token", getListing())
	listingsGroup.POST("", middleware.AuthRequired(), publishListing())
	listingsGroup.DELETE("/:contract/:token", middleware.AuthRequired(), cancelListing())

	router.POST("/rentals", middleware.AuthRequired(), rent())

	accountsGroup := router.Group("/accounts")
	accountsGroup.GET("/:address/balance", getBalance())
	accountsGroup.POST("/deposit", middleware.AuthRequired(), deposit())
	accountsGroup.POST("/withdraw", middleware.AuthRequired(), withdraw())

	return router
}

type assetURI struct {
	Contract persist.EthereumAddress `uri:"contract" binding:"required"`
	Token    persist.TokenID         `uri:"token" binding:"required"`
}

type assetQuery struct {
	Chain  persist.Chain `form:"chain"`
	Limit  int64         `form:"limit"`
	Offset int64         `form:"offset"`
}

func getNonce() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Address persist.EthereumAddress `json:"address" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		nonce, err := publicapi.For(c).Auth.GetNonce(c, input.Address)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"nonce": nonce})
	}
}

func login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Address   persist.EthereumAddress `json:"address" binding:"required"`
			Signature string                  `json:"signature" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		token, err := publicapi.For(c).Auth.Login(c, input.Address, input.Signature)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"jwt_token": token})
	}
}

func debugLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Address persist.EthereumAddress `json:"address" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		token, err := debugtools.DebugLogin(c, input.Address)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"jwt_token": token})
	}
}

func getAsset() gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri assetURI
		var query assetQuery
		if err := bindAsset(c, &uri, &query); err != nil {
			return
		}

		asset, err := publicapi.For(c).Asset.GetAsset(c, uri.Contract, uri.Token, query.Chain)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, asset)
	}
}

func getEffectiveUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri assetURI
		var query assetQuery
		if err := bindAsset(c, &uri, &query); err != nil {
			return
		}

		at := time.Now()
		if raw := c.Query("at"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				util.ErrResponse(c, http.StatusBadRequest, err)
				return
			}
			at = parsed
		}

		user, err := publicapi.For(c).Asset.EffectiveUser(c, uri.Contract, uri.Token, query.Chain, at)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

func mintAsset() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			ContractAddress persist.EthereumAddress `json:"contract_address" binding:"required"`
			TokenID         persist.TokenID         `json:"token_id" binding:"required"`
			Chain           persist.Chain           `json:"chain"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		asset, err := publicapi.For(c).Asset.Mint(c, input.ContractAddress, input.TokenID, input.Chain)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, asset)
	}
}

func setDelegation() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			ContractAddress persist.EthereumAddress `json:"contract_address" binding:"required"`
			TokenID         persist.TokenID         `json:"token_id" binding:"required"`
			Chain           persist.Chain           `json:"chain"`
			User            persist.EthereumAddress `json:"user" binding:"required"`
			ExpiresAt       time.Time               `json:"expires_at" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		asset, err := publicapi.For(c).Asset.SetDelegation(c, input.ContractAddress, input.TokenID, input.Chain, input.User, input.ExpiresAt)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, asset)
	}
}

func clearDelegation() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			ContractAddress persist.EthereumAddress `json:"contract_address" binding:"required"`
			TokenID         persist.TokenID         `json:"token_id" binding:"required"`
			Chain           persist.Chain           `json:"chain"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		asset, err := publicapi.For(c).Asset.ClearDelegation(c, input.ContractAddress, input.TokenID, input.Chain)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, asset)
	}
}

func setOperatorApproval() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Operator persist.EthereumAddress `json:"operator" binding:"required"`
			Approved bool                    `json:"approved"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		if err := publicapi.For(c).Asset.SetOperatorApproval(c, input.Operator, input.Approved); err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, util.SuccessResponse{Success: true})
	}
}

func getListing() gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri assetURI
		var query assetQuery
		if err := bindAsset(c, &uri, &query); err != nil {
			return
		}

		listing, err := publicapi.For(c).Listing.GetListing(c, uri.Contract, uri.Token, query.Chain)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, listing)
	}
}

func publishListing() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input publicapi.ListingInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		listing, err := publicapi.For(c).Listing.PublishListing(c, input)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, listing)
	}
}

func cancelListing() gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri assetURI
		var query assetQuery
		if err := bindAsset(c, &uri, &query); err != nil {
			return
		}

		if err := publicapi.For(c).Listing.CancelListing(c, uri.Contract, uri.Token, query.Chain); err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, util.SuccessResponse{Success: true})
	}
}

// rentRequest leaves days unbound so out-of-range values surface as the
// typed rental period errors rather than a binding failure
type rentRequest struct {
	ContractAddress persist.EthereumAddress `json:"contract_address" binding:"required"`
	TokenID         persist.TokenID         `json:"token_id" binding:"required"`
	Chain           persist.Chain           `json:"chain"`
	Days            int64                   `json:"days"`
	Payment         persist.Amount          `json:"payment"`
}

func rent() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input rentRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		receipt, err := publicapi.For(c).Rental.Rent(c, input.ContractAddress, input.TokenID, input.Chain, input.Days, input.Payment)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, receipt)
	}
}

func getRentals() gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri assetURI
		var query assetQuery
		if err := bindAsset(c, &uri, &query); err != nil {
			return
		}

		rentals, err := publicapi.For(c).Rental.GetRentalsByAsset(c, uri.Contract, uri.Token, query.Chain, query.Limit, query.Offset)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, rentals)
	}
}

func getEvents(repos *postgres.Repositories) gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri assetURI
		var query assetQuery
		if err := bindAsset(c, &uri, &query); err != nil {
			return
		}

		events, err := repos.EventRepository.GetByAsset(c, uri.Contract, uri.Token, query.Chain, query.Limit)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, events)
	}
}

func getBalance() gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri struct {
			Address persist.EthereumAddress `uri:"address" binding:"required"`
		}
		if err := c.ShouldBindUri(&uri); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		account, err := publicapi.For(c).Account.GetBalance(c, uri.Address)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, account)
	}
}

func deposit() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Amount persist.Amount `json:"amount"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		account, err := publicapi.For(c).Account.Deposit(c, input.Amount)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, account)
	}
}

func withdraw() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Amount persist.Amount `json:"amount"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		account, err := publicapi.For(c).Account.Withdraw(c, input.Amount)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, account)
	}
}

func bindAsset(c *gin.Context, uri *assetURI, query *assetQuery) error {
	if err := c.ShouldBindUri(uri); err != nil {
		util.ErrResponse(c, http.StatusBadRequest, err)
		return err
	}
	if err := c.ShouldBindQuery(query); err != nil {
		util.ErrResponse(c, http.StatusBadRequest, err)
		return err
	}
	return nil
}

// respondWithError maps typed domain errors onto HTTP statuses
func respondWithError(c *gin.Context, err error) {
	switch err.(type) {
	case persist.ErrUnauthorized:
		util.ErrResponse(c, http.StatusForbidden, err)
	case validate.ErrInvalidInput, persist.ErrInvalidPrice, persist.ErrInvalidDayBounds,
		persist.ErrListingExpiryInPast, persist.ErrRentalPeriodTooShort,
		persist.ErrRentalPeriodTooLong, persist.ErrIncorrectPayment,
		persist.ErrAmountOverflow, persist.ErrInvalidFeeBPS:
		util.ErrResponse(c, http.StatusBadRequest, err)
	case persist.ErrAssetNotFoundByIdentifiers, persist.ErrListingNotFound, persist.ErrAccountNotFound:
		util.ErrResponse(c, http.StatusNotFound, err)
	case persist.ErrAssetCurrentlyRented, persist.ErrListingExpired, persist.ErrAssetAlreadyExists,
		persist.ErrInsufficientBalance, persist.ErrSettlementFailed:
		util.ErrResponse(c, http.StatusConflict, err)
	default:
		switch {
		case errors.Is(err, auth.ErrNoToken), errors.Is(err, auth.ErrInvalidJWT),
			errors.Is(err, auth.ErrNonceNotFound), errors.Is(err, auth.ErrAddressSignatureMismatch):
			util.ErrResponse(c, http.StatusUnauthorized, err)
		default:
			util.ErrResponse(c, http.StatusInternalServerError, err)
		}
	}
}
