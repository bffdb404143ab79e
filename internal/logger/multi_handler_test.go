package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu      sync.Mutex
	level   slog.Level
	records []slog.Record
	err     error
	delay   time.Duration
}

func (h *recordingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return h.err
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func TestMultiHandler_FansOut(t *testing.T) {
	t.Parallel()

	infoH := &recordingHandler{level: slog.LevelInfo}
	errorH := &recordingHandler{level: slog.LevelError}
	log := slog.New(NewMultiHandler(infoH, nil, errorH))

	log.Info("one")
	log.Error("two")

	assert.Equal(t, 2, infoH.count())
	assert.Equal(t, 1, errorH.count())
}

func TestMultiHandler_Enabled(t *testing.T) {
	t.Parallel()

	h := NewMultiHandler(&recordingHandler{level: slog.LevelError})
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
	assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelError))
}

func TestMultiHandler_JoinsErrors(t *testing.T) {
	t.Parallel()

	errA := errors.New("a failed")
	h := NewMultiHandler(&recordingHandler{err: errA}, &recordingHandler{})

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
}

func TestMultiHandler_WithAttrsReachesJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	json := slog.NewJSONHandler(&buf, nil)
	log := slog.New(NewMultiHandler(json)).With("component", "querylog")
	log.Info("flushed")

	assert.Contains(t, buf.String(), `"component":"querylog"`)
}

func TestAsyncHandler_DrainsOnShutdown(t *testing.T) {
	t.Parallel()

	inner := &recordingHandler{delay: time.Millisecond}
	async := NewAsyncHandler(inner, AsyncOptions{BufferSize: 64})
	log := slog.New(async)

	for range 10 {
		log.Info("queued")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, async.Shutdown(ctx))
	assert.Equal(t, 10, inner.count())

	log.Info("after shutdown")
	assert.Equal(t, 10, inner.count())
	assert.NoError(t, async.Shutdown(ctx), "second shutdown is a no-op")
}

func TestAsyncHandler_DropsWhenFull(t *testing.T) {
	t.Parallel()

	inner := &recordingHandler{delay: 20 * time.Millisecond}
	async := NewAsyncHandler(inner, AsyncOptions{BufferSize: 1})
	log := slog.New(async)

	for range 20 {
		log.Info("burst")
	}
	assert.Positive(t, async.Dropped())

	require.NoError(t, async.Shutdown(context.Background()))
	assert.Equal(t, uint64(20), uint64(inner.count())+async.Dropped())
}
