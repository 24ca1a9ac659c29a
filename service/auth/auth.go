package auth

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/rentfi/go-rentfi/service/persist"
)

const (
	authContextKey      = "auth.authenticated"
	addressContextKey   = "auth.address"
	authErrorContextKey = "auth.error"
)

// ErrNoToken is returned when a request carries no auth token at all
var ErrNoToken = errors.New("no auth token provided")

// SetAuthStateForCtx records the outcome of authentication on the request context
func SetAuthStateForCtx(c *gin.Context, address persist.EthereumAddress, err error) {
	c.Set(authContextKey, err == nil)
	c.Set(addressContextKey, address)
	c.Set(authErrorContextKey, err)
}

// GetAddressFromCtx returns the authenticated caller address, or the zero
// address when the request is unauthenticated
func GetAddressFromCtx(c *gin.Context) persist.EthereumAddress {
	if address, ok := c.Get(addressContextKey); ok {
		return address.(persist.EthereumAddress)
	}
	return persist.ZeroAddress
}

// GetAuthErrorFromCtx returns the authentication error for the request, if any
func GetAuthErrorFromCtx(c *gin.Context) error {
	if err, ok := c.Get(authErrorContextKey); ok && err != nil {
		return err.(error)
	}
	if authed, ok := c.Get(authContextKey); !ok || !authed.(bool) {
		return ErrNoToken
	}
	return nil
}
