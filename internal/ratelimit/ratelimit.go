// Package ratelimit provides token bucket rate limiters: a single shared
// bucket for outbound API calls and a keyed set of buckets for inbound clients.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Limiter is a token bucket: capacity tokens, refilled continuously at rate
// tokens per second, one token per request. It is safe for concurrent use.
type Limiter struct {
	capacity float64
	rate     float64
	now      func() time.Time

	mu     sync.Mutex
	tokens float64
	at     time.Time // when tokens was last brought up to date
}

// New returns a full bucket.
func New(capacity, rate float64) *Limiter {
	return newLimiter(capacity, capacity, rate, time.Now)
}

// NewPerMinute sizes a bucket for an API quota given in requests per minute:
// two seconds of burst, starting with one second's worth (at least one token).
func NewPerMinute(rpm float64) *Limiter {
	perSecond := rpm / 60
	return newLimiter(math.Max(perSecond, 1), math.Max(2*perSecond, 1), perSecond, time.Now)
}

func newLimiter(initial, capacity, rate float64, now func() time.Time) *Limiter {
	return &Limiter{capacity: capacity, rate: rate, now: now, tokens: initial, at: now()}
}

// settle brings tokens up to date. Callers hold mu.
func (l *Limiter) settle() {
	t := l.now()
	if elapsed := t.Sub(l.at).Seconds(); elapsed > 0 {
		l.tokens = math.Min(l.capacity, l.tokens+elapsed*l.rate)
	}
	l.at = t
}

// Reserve takes a token if one is available. Otherwise it reports how long
// until the next token; a bucket that never refills reports the maximum duration.
func (l *Limiter) Reserve() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.settle()
	if l.tokens >= 1 {
		l.tokens--
		return true, 0
	}
	if l.rate <= 0 {
		return false, time.Duration(math.MaxInt64)
	}
	return false, time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
}

// Allow is Reserve without the wait hint. It never blocks.
func (l *Limiter) Allow() bool {
	ok, _ := l.Reserve()
	return ok
}

// Wait blocks until it takes a token or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		ok, wait := l.Reserve()
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available returns the tokens in the bucket now.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settle()
	return l.tokens
}

// IsFull reports whether the bucket has refilled to capacity, meaning its
// client has been idle and the bucket can be dropped.
func (l *Limiter) IsFull() bool {
	return l.Available() >= l.capacity
}
