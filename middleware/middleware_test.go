package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/rentfi/go-rentfi/service/auth"
	"github.com/rentfi/go-rentfi/service/persist"
)

func TestIsOriginAllowed(t *testing.T) {
	a := assert.New(t)
	viper.Set("ALLOWED_ORIGINS", "http://localhost:3000, https://rentfi.io")

	a.True(IsOriginAllowed("http://localhost:3000"))
	a.True(IsOriginAllowed("https://rentfi.io"))
	a.True(IsOriginAllowed("https://RentFi.io"))
	a.False(IsOriginAllowed("https://evil.example.com"))

	viper.Set("ALLOWED_ORIGINS", "*")
	a.True(IsOriginAllowed("https://anything.example.com"))
}

func TestContinueSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	viper.Set("AUTH_JWT_SECRET", "test-secret")
	viper.Set("AUTH_JWT_TTL", 3600)

	address := persist.EthereumAddress("0x8914496dc01efcc49a2fa340331fb90969b6f1d2")

	newRequest := func(authorization string) *gin.Context {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if authorization != "" {
			c.Request.Header.Set("Authorization", authorization)
		}
		return c
	}

	t.Run("a valid token authenticates the address", func(t *testing.T) {
		a := assert.New(t)
		token, err := auth.GenerateAuthToken(nil, address)
		a.NoError(err)

		c := newRequest("Bearer " + token)
		ContinueSession()(c)

		a.NoError(auth.GetAuthErrorFromCtx(c))
		a.Equal(address, auth.GetAddressFromCtx(c))
	})

	t.Run("no token passes through unauthenticated", func(t *testing.T) {
		a := assert.New(t)
		c := newRequest("")
		ContinueSession()(c)

		a.ErrorIs(auth.GetAuthErrorFromCtx(c), auth.ErrNoToken)
		a.Equal(persist.ZeroAddress, auth.GetAddressFromCtx(c))
	})

	t.Run("a bad token records the auth error", func(t *testing.T) {
		a := assert.New(t)
		c := newRequest("Bearer not.a.jwt")
		ContinueSession()(c)

		a.ErrorIs(auth.GetAuthErrorFromCtx(c), auth.ErrInvalidJWT)
	})

	t.Run("AuthRequired rejects unauthenticated requests", func(t *testing.T) {
		a := assert.New(t)
		c := newRequest("")
		ContinueSession()(c)
		AuthRequired()(c)

		a.True(c.IsAborted())
	})
}

func TestRecoveryHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := assert.New(t)

	router := gin.New()
	router.Use(RecoveryHandler())
	router.GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	a.Equal(http.StatusInternalServerError, w.Code)
	a.Contains(w.Body.String(), "kaboom")
}
