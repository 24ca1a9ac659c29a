package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type contextKey string

const loggerContextKey contextKey = "logger.entry"

var defaultLogger = logrus.New()

// SetLoggerOptions configures the package-level logger.
func SetLoggerOptions(optionsFunc func(logger *logrus.Logger)) {
	optionsFunc(defaultLogger)
}

// For returns a log entry scoped to ctx. Fields previously added with
// NewContextWithFields are carried along. A nil ctx returns a plain entry.
func For(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return logrus.NewEntry(defaultLogger)
	}

	if entry, ok := ctx.Value(loggerContextKey).(*logrus.Entry); ok {
		return entry
	}

	return logrus.NewEntry(defaultLogger).WithContext(ctx)
}

// NewContextWithFields returns a new context with a log entry carrying fields.
func NewContextWithFields(ctx context.Context, fields logrus.Fields) context.Context {
	entry := For(ctx).WithFields(fields)
	return context.WithValue(ctx, loggerContextKey, entry)
}
