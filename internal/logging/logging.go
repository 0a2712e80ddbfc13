// Package logging wraps charmbracelet/log with the small set of
// conventions this controller's components share: a context-carried
// logger with structured key/value fields, and a default singleton
// configured from the environment.
package logging

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

type ctxKey struct{}

var root = log.NewWithOptions(os.Stderr, log.Options{
	Level:           log.InfoLevel,
	ReportTimestamp: true,
	TimeFormat:      "15:04:05",
})

// Configure sets the root logger's level from a string ("debug", "info",
// "warn", "error"), falling back to info for anything unrecognized.
func Configure(level string) {
	switch strings.ToLower(level) {
	case "debug":
		root.SetLevel(log.DebugLevel)
	case "warn", "warning":
		root.SetLevel(log.WarnLevel)
	case "error":
		root.SetLevel(log.ErrorLevel)
	default:
		root.SetLevel(log.InfoLevel)
	}
}

// ConfigureFromEnv applies LOG_LEVEL, falling back to debug when ENV=dev.
func ConfigureFromEnv() {
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		Configure(lvl)
		return
	}
	if os.Getenv("ENV") == "dev" {
		root.SetLevel(log.DebugLevel)
	}
}

// With returns a context carrying a logger with the given fields attached,
// layered on top of whatever logger was already in ctx (if any).
func With(ctx context.Context, keyvals ...interface{}) context.Context {
	l := From(ctx).With(keyvals...)
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger carried by ctx, or the root logger if none was
// attached.
func From(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*log.Logger); ok {
		return l
	}
	return root
}

// Component returns a context carrying a logger tagged with the
// component/adapter pair every log line in that code path should carry.
func Component(ctx context.Context, component string) context.Context {
	return With(ctx, "component", component)
}

// WrapErr logs err at error level with msg and returns an error that wraps
// it with msg, so the caller can both log and propagate in one call.
func WrapErr(ctx context.Context, err error, msg string) error {
	From(ctx).Error(msg, "error", err)
	return &wrappedError{msg: msg, err: err}
}

type wrappedError struct {
	msg string
	err error
}

func (w *wrappedError) Error() string { return w.msg + ": " + w.err.Error() }
func (w *wrappedError) Unwrap() error { return w.err }
