// Package sentry initialises the Sentry SDK for error tracking. Any
// Sentry-compatible backend works, including Better Stack Errors.
package sentry

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/garyellow/unibot-go/internal/ctxutil"
)

// Config holds Sentry configuration.
type Config struct {
	// DSN is the project DSN. Empty disables Sentry.
	DSN string

	// Environment identifies the deployment environment (e.g., "production", "staging").
	Environment string

	// Release identifies the application release version.
	Release string

	// SampleRate controls error sampling (0.0-1.0, default 1.0 = 100%).
	SampleRate float64

	// Debug enables Sentry SDK debug logging.
	Debug bool
}

// Initialize sets up the Sentry SDK. An empty DSN leaves Sentry disabled and
// returns nil.
func Initialize(cfg Config) error {
	if cfg.DSN == "" {
		return nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
		BeforeSend:       scrubEvent,
	})
}

// scrubEvent drops request bodies and cookies; chat messages are user text.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		event.Request.Data = ""
		event.Request.Cookies = ""
	}
	return event
}

// Flush waits for buffered events to be sent to the server.
// Returns true if all events were sent within the timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns true if Sentry is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureException captures err on the context's hub, tagged with the
// session and request identifiers carried by ctx. Context cancellation is
// not reported.
func CaptureException(ctx context.Context, err error) {
	if err == nil || errors.Is(err, context.Canceled) || !IsEnabled() {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		if id := ctxutil.GetSessionID(ctx); id != "" {
			scope.SetTag("session_id", id)
		}
		if id, ok := ctxutil.GetRequestID(ctx); ok {
			scope.SetTag("request_id", id)
		}
		hub.CaptureException(err)
	})
}
