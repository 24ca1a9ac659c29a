package util

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentfi/go-rentfi/service/logger"
)

// GinContextKey is the key the gin context is stored under when it is pushed
// into a plain context.Context.
const GinContextKey = "GinContextKey"

// SuccessResponse is a generic response for an operation with no payload
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is a generic error response for when something goes wrong
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrResponse logs the error and sends an ErrorResponse with the given status
func ErrResponse(c *gin.Context, status int, err error) {
	logger.For(c).Errorf("HTTP %d: %s", status, err)
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// HealthCheckHandler returns a trivial liveness handler
func HealthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, SuccessResponse{Success: true})
	}
}

// GinContextFromContext retrieves a gin.Context previously stored in ctx via
// middleware, or panics if none is present.
func GinContextFromContext(ctx context.Context) *gin.Context {
	// If the context is already a gin context, return it
	if gc, ok := ctx.(*gin.Context); ok {
		return gc
	}

	gc, ok := ctx.Value(GinContextKey).(*gin.Context)
	if !ok {
		panic(fmt.Errorf("gin context not found in context"))
	}

	return gc
}

// MustGetGinContext is like GinContextFromContext but returns nil instead of
// panicking when no gin context is present.
func MustGetGinContext(ctx context.Context) *gin.Context {
	if gc, ok := ctx.(*gin.Context); ok {
		return gc
	}

	gc, _ := ctx.Value(GinContextKey).(*gin.Context)
	return gc
}
