// Package config provides centralized timeout constants for the application.
//
// # LINE API Constraints
//
// LINE expects a quick 200 OK for every webhook delivery, so events are processed
// after the response is written. A reply token stays valid long enough that a
// turn bounded by TurnProcessing always replies in time.
package config

import "time"

// HTTP server timeouts
const (
	// HTTPRead is the server read timeout. Chat and webhook payloads are small.
	HTTPRead = 10 * time.Second

	// HTTPWrite must cover TurnProcessing plus serialization.
	HTTPWrite = 35 * time.Second

	// HTTPIdle is the keep-alive idle timeout.
	HTTPIdle = 120 * time.Second

	// ReadinessCheckTimeout bounds the database ping behind /readyz.
	ReadinessCheckTimeout = 3 * time.Second
)

// Turn timeouts
const (
	// TurnProcessing bounds one complete dialogue turn.
	TurnProcessing = 30 * time.Second

	// EncoderRequest is the default deadline for a single encoder call.
	// A turn whose encoder call exceeds it answers with a no-match phrase.
	EncoderRequest = 8 * time.Second

	// IndexBuild bounds encoding every knowledge-base question at startup.
	// Remote encoders embed in batches, and a cold start on a large KB takes minutes.
	IndexBuild = 10 * time.Minute
)

// Database timeouts
const (
	// DatabaseBusyTimeout is the SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour
)

// Background job intervals
const (
	// SessionSweepInterval is how often idle dialogue sessions are evicted.
	SessionSweepInterval = time.Minute

	// QueryLogFlush is the default interval between query-log batch flushes.
	QueryLogFlush = 30 * time.Second

	// MetricsUpdateInterval is how often gauge metrics are refreshed.
	MetricsUpdateInterval = time.Minute

	// RateLimiterCleanupInterval is how often inactive client limiters are removed.
	RateLimiterCleanupInterval = 5 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the default timeout for graceful server shutdown.
	GracefulShutdown = 30 * time.Second
)
