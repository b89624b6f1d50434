package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	apperrors "github.com/socialchef/recipebox/internal/errors"
)

// Init initializes Sentry with the provided configuration.
// If DSN is empty, Sentry initialization is skipped and nil is returned.
func Init(dsn, env, serviceName, serviceVersion string) error {
	if dsn == "" {
		return nil
	}

	options := sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		ServerName:       serviceName,
		Release:          serviceVersion,
		AttachStacktrace: true,
		TracesSampleRate: 0.0, // tracing goes through OpenTelemetry
	}

	if err := sentry.Init(options); err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}

	return nil
}

// Flush waits for all pending Sentry events to be sent.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// Recover captures a panic and forwards it to Sentry.
// Should be used with defer in goroutines.
func Recover() {
	sentry.Recover()
}

// CaptureError reports err on the hub bound to ctx (or the current hub).
// Operational AppErrors (unreachable pages, pages without recipes) are expected
// outcomes and are not reported.
func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	if appErr, ok := apperrors.As(err); ok {
		if appErr.IsOperational {
			return
		}
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("error_type", string(appErr.Type))
			scope.SetTag("error_code", appErr.Code())
			hub.CaptureException(err)
		})
		return
	}

	hub.CaptureException(err)
}
