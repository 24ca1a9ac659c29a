package sentryutil

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/rentfi/go-rentfi/service/logger"
	"github.com/rentfi/go-rentfi/util"
)

// ReportError reports an error to sentry with optional scope mutations applied
// to a cloned hub so callers can't pollute each other's scopes.
func ReportError(ctx context.Context, err error, scopeFuncs ...func(*sentry.Scope)) {
	hub := SentryHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		for _, f := range scopeFuncs {
			f(scope)
		}
		hub.CaptureException(err)
	})
}

// RecoverAndRaise reports a panic to sentry and re-raises it
func RecoverAndRaise(ctx context.Context) {
	if err := recover(); err != nil {
		hub := SentryHubFromContext(ctx)
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}
		logger.For(ctx).Errorf("panic: %v", err)
		hub.Recover(err)
		panic(err)
	}
}

// SentryHubFromContext returns the hub stored on the context (gin or plain), or nil
func SentryHubFromContext(ctx context.Context) *sentry.Hub {
	if ctx == nil {
		return nil
	}
	if gc, ok := ctx.(*gin.Context); ok {
		return sentry.GetHubFromContext(gc.Request.Context())
	}
	return sentry.GetHubFromContext(ctx)
}

// NewSentryHubGinContext returns a copy of the request's gin context carrying
// a cloned hub, safe to hand to goroutines that outlive the request
func NewSentryHubGinContext(ctx context.Context) context.Context {
	gc, ok := ctx.(*gin.Context)
	if !ok {
		if gc, ok = ctx.Value(util.GinContextKey).(*gin.Context); !ok {
			return NewSentryHubContext(ctx)
		}
	}

	cpy := gc.Copy()
	cpy.Request = cpy.Request.WithContext(NewSentryHubContext(cpy.Request.Context()))
	return cpy
}

// NewSentryHubContext returns a copy of ctx with a cloned hub, so goroutines
// that outlive the request don't share the request's hub.
func NewSentryHubContext(ctx context.Context) context.Context {
	hub := SentryHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return sentry.SetHubOnContext(context.Background(), hub.Clone())
}
