package sentry

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// Initialize sets up Sentry if a DSN is provided. Without SENTRY_DSN in
// the environment every helper in this package is a no-op, so the engine
// can call them unconditionally.
func Initialize(version string) error {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return nil
	}

	environment := os.Getenv("SENTRY_ENVIRONMENT")
	if environment == "" {
		environment = "production"
	}

	sampleRate := 1.0
	if rate := os.Getenv("SENTRY_TRACES_SAMPLE_RATE"); rate != "" {
		fmt.Sscanf(rate, "%f", &sampleRate)
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          version,
		TracesSampleRate: sampleRate,
		Debug:            os.Getenv("SENTRY_DEBUG") == "true",
		AttachStacktrace: true,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			event.Extra["riskmap_namespace"] = os.Getenv("RISKMAP_NAMESPACE")
			event.Extra["riskmap_export_command"] = os.Getenv("RISKMAP_EXPORT_COMMAND")
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	return nil
}

// Flush waits for buffered events to be sent.
func Flush(timeout time.Duration) {
	if sentry.CurrentHub().Client() != nil {
		sentry.Flush(timeout)
	}
}

// StartSpan starts a tracing span for an engine operation.
func StartSpan(ctx context.Context, operation string, opts ...sentry.SpanOption) (*sentry.Span, context.Context) {
	if sentry.CurrentHub().Client() == nil {
		return nil, ctx
	}
	span := sentry.StartSpan(ctx, operation, opts...)
	return span, span.Context()
}

// CaptureError reports an error with tags and extras attached.
func CaptureError(err error, tags map[string]string, extras map[string]interface{}) {
	if sentry.CurrentHub().Client() == nil || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// AddBreadcrumb records a diagnostic breadcrumb. Swallowed source
// failures and watcher hiccups go through here so they remain visible
// without ever surfacing to resolution callers.
func AddBreadcrumb(category, message string, data map[string]interface{}) {
	if sentry.CurrentHub().Client() != nil {
		sentry.AddBreadcrumb(&sentry.Breadcrumb{
			Category:  category,
			Message:   message,
			Level:     sentry.LevelInfo,
			Data:      data,
			Timestamp: time.Now(),
		})
	}
}

// WithTransaction runs fn inside a named transaction, recording its
// outcome.
func WithTransaction(ctx context.Context, name string, fn func(context.Context) error) error {
	if sentry.CurrentHub().Client() == nil {
		return fn(ctx)
	}

	span := sentry.StartTransaction(ctx, name)
	defer span.Finish()

	err := fn(span.Context())
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		sentry.CaptureException(err)
	} else {
		span.Status = sentry.SpanStatusOK
	}
	return err
}
