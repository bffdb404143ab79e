package ratelimit

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is advanced by hand so refill math is exact.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(capacity, rate float64) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	return newLimiter(capacity, capacity, rate, clock.Now), clock
}

func TestLimiter_BurstThenDeny(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(3, 1)

	for i := range 3 {
		assert.True(t, l.Allow(), "request %d within burst", i+1)
	}
	ok, wait := l.Reserve()
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)
}

func TestLimiter_Refill(t *testing.T) {
	t.Parallel()
	l, clock := newTestLimiter(2, 4) // one token every 250ms
	require.True(t, l.Allow())
	require.True(t, l.Allow())

	clock.Advance(100 * time.Millisecond)
	ok, wait := l.Reserve()
	assert.False(t, ok)
	assert.InDelta(t, float64(150*time.Millisecond), float64(wait), float64(time.Millisecond))

	clock.Advance(150 * time.Millisecond)
	assert.True(t, l.Allow())

	clock.Advance(time.Hour)
	assert.InDelta(t, 2.0, l.Available(), 1e-9, "refill caps at capacity")
	assert.True(t, l.IsFull())
}

func TestLimiter_NoRefill(t *testing.T) {
	t.Parallel()
	l, clock := newTestLimiter(1, 0)
	require.True(t, l.Allow())

	clock.Advance(time.Hour)
	ok, wait := l.Reserve()
	assert.False(t, ok)
	assert.Equal(t, time.Duration(math.MaxInt64), wait)
	assert.False(t, l.IsFull())
}

func TestNewPerMinute(t *testing.T) {
	t.Parallel()
	l := NewPerMinute(120) // 2 per second
	assert.Equal(t, 2.0, l.rate)
	assert.Equal(t, 4.0, l.capacity)
	assert.InDelta(t, 2.0, l.Available(), 0.1)

	slow := NewPerMinute(6) // 0.1 per second still gets one token
	assert.Equal(t, 1.0, slow.capacity)
	assert.True(t, slow.Allow())
}

func TestLimiter_Wait(t *testing.T) {
	t.Parallel()

	t.Run("token available", func(t *testing.T) {
		t.Parallel()
		l := New(1, 1)
		assert.NoError(t, l.Wait(context.Background()))
	})

	t.Run("waits for refill", func(t *testing.T) {
		t.Parallel()
		l := New(1, 50) // 20ms per token
		require.True(t, l.Allow())

		start := time.Now()
		require.NoError(t, l.Wait(context.Background()))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("context canceled", func(t *testing.T) {
		t.Parallel()
		l := New(1, 0)
		require.True(t, l.Allow())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := l.Wait(ctx)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestLimiter_ConcurrentNeverOverspends(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(50, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for range 200 {
		wg.Go(func() {
			if l.Allow() {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	assert.Equal(t, 50, granted)
}
