package ratelimit

import (
	"sync"
	"time"
)

// ClientConfig configures a ClientLimiter.
type ClientConfig struct {
	// Name labels drops in metrics (e.g. "chat", "line").
	Name string

	Burst      float64 // bucket capacity per client
	RefillRate float64 // tokens per second per client

	// CleanupPeriod is how often idle client buckets are dropped.
	// Zero disables the sweeper.
	CleanupPeriod time.Duration
}

// Decision is the outcome of one ClientLimiter check.
type Decision struct {
	Allowed bool
	// RetryAfter is how long a rejected client should wait. Zero when allowed.
	RetryAfter time.Duration
}

// ClientLimiter keeps one token bucket per client key (a session ID or an IP)
// and drops buckets that have been idle long enough to refill.
type ClientLimiter struct {
	cfg ClientConfig

	mu      sync.RWMutex
	buckets map[string]*Limiter

	onDrop   func(name string)
	onUpdate func(active int)

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewClientLimiter starts the idle sweeper when cfg.CleanupPeriod is positive.
// Call Stop to release it.
func NewClientLimiter(cfg ClientConfig) *ClientLimiter {
	if cfg.Name == "" {
		cfg.Name = "client"
	}
	cl := &ClientLimiter{
		cfg:     cfg,
		buckets: make(map[string]*Limiter),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	if cfg.CleanupPeriod > 0 {
		go cl.sweepLoop()
	} else {
		close(cl.done)
	}
	return cl
}

// Name returns the limiter's metrics label.
func (cl *ClientLimiter) Name() string { return cl.cfg.Name }

// OnDrop registers fn to run for every rejected request. Set it before use.
func (cl *ClientLimiter) OnDrop(fn func(name string)) { cl.onDrop = fn }

// OnUpdate registers fn to receive the active bucket count after each sweep.
func (cl *ClientLimiter) OnUpdate(fn func(active int)) { cl.onUpdate = fn }

// Check consumes a token for key. An empty key is never limited.
func (cl *ClientLimiter) Check(key string) Decision {
	if key == "" {
		return Decision{Allowed: true}
	}

	ok, wait := cl.bucket(key).Reserve()
	if !ok && cl.onDrop != nil {
		cl.onDrop(cl.cfg.Name)
	}
	return Decision{Allowed: ok, RetryAfter: wait}
}

// Allow is Check without the retry hint.
func (cl *ClientLimiter) Allow(key string) bool {
	return cl.Check(key).Allowed
}

func (cl *ClientLimiter) bucket(key string) *Limiter {
	cl.mu.RLock()
	b, ok := cl.buckets[key]
	cl.mu.RUnlock()
	if ok {
		return b
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if b, ok = cl.buckets[key]; !ok {
		b = New(cl.cfg.Burst, cl.cfg.RefillRate)
		cl.buckets[key] = b
	}
	return b
}

// Available returns key's remaining tokens. Unknown keys report Burst.
func (cl *ClientLimiter) Available(key string) float64 {
	cl.mu.RLock()
	b, ok := cl.buckets[key]
	cl.mu.RUnlock()
	if !ok {
		return cl.cfg.Burst
	}
	return b.Available()
}

// Active returns the number of tracked clients.
func (cl *ClientLimiter) Active() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.buckets)
}

// Sweep drops every full bucket and returns how many remain.
func (cl *ClientLimiter) Sweep() int {
	cl.mu.Lock()
	for key, b := range cl.buckets {
		if b.IsFull() {
			delete(cl.buckets, key)
		}
	}
	active := len(cl.buckets)
	cl.mu.Unlock()

	if cl.onUpdate != nil {
		cl.onUpdate(active)
	}
	return active
}

func (cl *ClientLimiter) sweepLoop() {
	defer close(cl.done)
	ticker := time.NewTicker(cl.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-cl.stopCh:
			return
		case <-ticker.C:
			cl.Sweep()
		}
	}
}

// Stop ends the sweeper and waits for it. Safe to call multiple times.
func (cl *ClientLimiter) Stop() {
	cl.stopOnce.Do(func() { close(cl.stopCh) })
	<-cl.done
}
