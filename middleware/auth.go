package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rentfi/go-rentfi/service/auth"
	"github.com/rentfi/go-rentfi/service/persist"
	"github.com/rentfi/go-rentfi/util"
)

const authHeaderPrefix = "Bearer "

// ContinueSession parses the caller's auth token, if any, and records the
// authenticated address on the request context. Requests without a token are
// allowed through unauthenticated.
func ContinueSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			auth.SetAuthStateForCtx(c, persist.ZeroAddress, auth.ErrNoToken)
			c.Next()
			return
		}

		token := strings.TrimPrefix(header, authHeaderPrefix)
		claims, err := auth.ParseAuthToken(c.Request.Context(), token)
		if err != nil {
			auth.SetAuthStateForCtx(c, persist.ZeroAddress, err)
			c.Next()
			return
		}

		auth.SetAuthStateForCtx(c, claims.Address, nil)
		c.Next()
	}
}

// AuthRequired rejects requests that did not present a valid auth token
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.GetAuthErrorFromCtx(c); err != nil {
			util.ErrResponse(c, http.StatusUnauthorized, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
