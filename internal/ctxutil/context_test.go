package ctxutil

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEmptyContext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert.Empty(t, GetSessionID(ctx))
	assert.Empty(t, GetChatID(ctx))
	_, ok := GetRequestID(ctx)
	assert.False(t, ok)
	assert.Empty(t, Attrs(ctx))
}

func TestSettersDoNotClobber(t *testing.T) {
	t.Parallel()
	base := WithRequestID(context.Background(), "req-1")
	a := WithSessionID(base, "sess-a")
	b := WithChatID(base, "U123")

	id, ok := GetRequestID(a)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
	assert.Equal(t, "sess-a", GetSessionID(a))
	assert.Empty(t, GetChatID(a), "sibling contexts are independent")
	assert.Equal(t, "U123", GetChatID(b))
	assert.Empty(t, GetSessionID(b))
}

func TestAttrs(t *testing.T) {
	t.Parallel()
	ctx := WithSessionID(WithChatID(context.Background(), "C9"), "sess-9")
	assert.Equal(t, []slog.Attr{
		slog.String("session_id", "sess-9"),
		slog.String("chat_id", "C9"),
	}, Attrs(ctx))
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()
	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	parent = WithRequestID(WithSessionID(parent, "sess-1"), "evt-1")
	cancel()

	detached := PreserveTracing(parent)
	assert.NoError(t, detached.Err(), "detached context ignores parent cancellation")
	_, hasDeadline := detached.Deadline()
	assert.False(t, hasDeadline)
	assert.Equal(t, "sess-1", GetSessionID(detached))
	id, _ := GetRequestID(detached)
	assert.Equal(t, "evt-1", id)

	assert.Equal(t, context.Background(), PreserveTracing(context.Background()))
}
