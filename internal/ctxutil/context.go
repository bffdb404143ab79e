// Package ctxutil carries tracing identifiers (dialogue session, LINE chat,
// HTTP request or webhook event) through a context.
package ctxutil

import (
	"context"
	"log/slog"
)

type tracingKey struct{}

// tracing is stored by value; every With* call copies it.
type tracing struct {
	sessionID string
	chatID    string
	requestID string
}

func get(ctx context.Context) tracing {
	t, _ := ctx.Value(tracingKey{}).(tracing)
	return t
}

func with(ctx context.Context, fn func(*tracing)) context.Context {
	t := get(ctx)
	fn(&t)
	return context.WithValue(ctx, tracingKey{}, t)
}

// WithSessionID tags ctx with the dialogue session a turn reads and updates.
func WithSessionID(ctx context.Context, id string) context.Context {
	return with(ctx, func(t *tracing) { t.sessionID = id })
}

// GetSessionID returns the session ID, or "".
func GetSessionID(ctx context.Context) string { return get(ctx).sessionID }

// WithChatID tags ctx with a LINE chat ID (user, group or room).
func WithChatID(ctx context.Context, id string) context.Context {
	return with(ctx, func(t *tracing) { t.chatID = id })
}

// GetChatID returns the chat ID, or "".
func GetChatID(ctx context.Context) string { return get(ctx).chatID }

// WithRequestID tags ctx with an HTTP request or webhook event ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return with(ctx, func(t *tracing) { t.requestID = id })
}

// GetRequestID returns the request ID and whether one is set.
func GetRequestID(ctx context.Context) (string, bool) {
	id := get(ctx).requestID
	return id, id != ""
}

// Attrs returns the set identifiers as log attributes.
func Attrs(ctx context.Context) []slog.Attr {
	t := get(ctx)
	attrs := make([]slog.Attr, 0, 3)
	if t.sessionID != "" {
		attrs = append(attrs, slog.String("session_id", t.sessionID))
	}
	if t.chatID != "" {
		attrs = append(attrs, slog.String("chat_id", t.chatID))
	}
	if t.requestID != "" {
		attrs = append(attrs, slog.String("request_id", t.requestID))
	}
	return attrs
}

// PreserveTracing returns a background context carrying only ctx's
// identifiers, for work that outlives the request (webhook events).
func PreserveTracing(ctx context.Context) context.Context {
	t := get(ctx)
	if t == (tracing{}) {
		return context.Background()
	}
	return context.WithValue(context.Background(), tracingKey{}, t)
}
