package genai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	domerrors "github.com/garyellow/unibot-go/internal/errors"
	"github.com/garyellow/unibot-go/internal/ratelimit"
)

// minEncodeBudget is the least time left on a caller deadline worth spending
// on a remote call.
const minEncodeBudget = 200 * time.Millisecond

// Observer receives the outcome of every encoder call ("success" or "error").
type Observer func(provider Provider, status string, duration time.Duration)

// Resilient wraps an Encoder with a request-rate limiter, a per-call deadline
// and Full Jitter retries. Every failure it returns wraps
// errors.ErrEncoderUnavailable.
type Resilient struct {
	inner    Encoder
	limiter  *ratelimit.Limiter
	timeout  time.Duration
	retry    RetryConfig
	observer Observer
}

// ResilientOption configures a Resilient encoder.
type ResilientOption func(*Resilient)

// WithRateLimit caps requests per minute sent to the inner encoder.
func WithRateLimit(rpm float64) ResilientOption {
	return func(r *Resilient) {
		if rpm > 0 {
			r.limiter = ratelimit.NewPerMinute(rpm)
		}
	}
}

// WithTimeout sets the deadline for one Encode call, retries included.
func WithTimeout(d time.Duration) ResilientOption {
	return func(r *Resilient) { r.timeout = d }
}

// WithRetryConfig overrides DefaultRetryConfig.
func WithRetryConfig(cfg RetryConfig) ResilientOption {
	return func(r *Resilient) { r.retry = cfg }
}

// WithObserver registers a callback for metrics.
func WithObserver(fn Observer) ResilientOption {
	return func(r *Resilient) { r.observer = fn }
}

// NewResilient wraps inner.
func NewResilient(inner Encoder, opts ...ResilientOption) *Resilient {
	r := &Resilient{inner: inner, retry: DefaultRetryConfig()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Encode implements Encoder.
func (r *Resilient) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if !hasBudget(ctx, minEncodeBudget) {
		return nil, r.fail(fmt.Errorf("%w: insufficient time budget", domerrors.ErrTimeout))
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	var vecs [][]float32
	onRetry := func(attempt int, err error) {
		slog.WarnContext(ctx, "Encoder call failed, retrying",
			"provider", r.inner.Provider(),
			"attempt", attempt,
			"error", err)
	}
	err := r.retry.do(ctx, onRetry, func() error {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		out, err := r.inner.Encode(ctx, texts)
		if err != nil {
			return err
		}
		if len(out) != len(texts) {
			return fmt.Errorf("encoder returned %d vectors for %d texts", len(out), len(texts))
		}
		vecs = out
		return nil
	})
	r.observe(err, time.Since(start))
	if err != nil {
		return nil, r.fail(err)
	}
	return vecs, nil
}

func (r *Resilient) fail(err error) error {
	return fmt.Errorf("%w: %s: %w", domerrors.ErrEncoderUnavailable, r.inner.Name(), err)
}

func (r *Resilient) observe(err error, d time.Duration) {
	if r.observer == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.observer(r.inner.Provider(), status, d)
}

// Dimension implements Encoder.
func (r *Resilient) Dimension() int { return r.inner.Dimension() }

// Name implements Encoder.
func (r *Resilient) Name() string { return r.inner.Name() }

// Provider implements Encoder.
func (r *Resilient) Provider() Provider { return r.inner.Provider() }
