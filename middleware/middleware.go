package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/rentfi/go-rentfi/env"
	"github.com/rentfi/go-rentfi/service/logger"
	sentryutil "github.com/rentfi/go-rentfi/service/sentry"
	"github.com/rentfi/go-rentfi/util"
)

// GinContextToContext stores the gin context inside the request context so
// that code operating on a context.Context can recover it
func GinContextToContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), util.GinContextKey, c)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Sentry attaches a request-scoped sentry hub to the context and optionally
// reports errors attached to the gin context after the handler runs
func Sentry(reportGinErrors bool) gin.HandlerFunc {
	handler := sentrygin.New(sentrygin.Options{Repanic: true})

	return func(c *gin.Context) {
		handler(c)

		if reportGinErrors {
			if hub := sentrygin.GetHubFromContext(c); hub != nil {
				for _, err := range c.Errors {
					hub.CaptureException(err)
				}
			}
		}
	}
}

// Tracing adds request metadata to the logger context for all downstream logs
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logger.NewContextWithFields(c.Request.Context(), map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ErrLogger logs errors attached to the gin context after the handler runs
func ErrLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		for _, err := range c.Errors {
			logger.For(c.Request.Context()).Errorf("%s %s: %s", c.Request.Method, c.Request.URL.Path, err)
		}
	}
}

// HandleCORS sets the CORS headers for allowed origins and short-circuits
// preflight requests
func HandleCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestOrigin := c.Request.Header.Get("Origin")

		if IsOriginAllowed(requestOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", requestOrigin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// IsOriginAllowed reports whether the origin may make cross-origin requests
func IsOriginAllowed(requestOrigin string) bool {
	allowed := strings.Split(env.GetString("ALLOWED_ORIGINS"), ",")
	for i := range allowed {
		allowed[i] = strings.TrimSpace(allowed[i])
	}
	return util.Contains(allowed, "*") || util.Contains(allowed, requestOrigin)
}

// RecoveryHandler recovers from panics in handlers, reports them, and
// responds with a 500
func RecoveryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic in handler: %v", r)
				sentryutil.ReportError(c.Request.Context(), err)
				logger.For(c.Request.Context()).Error(err)
				util.ErrResponse(c, http.StatusInternalServerError, err)
			}
		}()
		c.Next()
	}
}
