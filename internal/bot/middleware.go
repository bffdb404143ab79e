package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	domerrors "github.com/garyellow/unibot-go/internal/errors"
	"github.com/garyellow/unibot-go/internal/intent"
	"github.com/garyellow/unibot-go/internal/logger"
	"github.com/garyellow/unibot-go/internal/metrics"
	"github.com/garyellow/unibot-go/internal/session"
)

// TurnFunc handles one turn. Orchestrator.HandleTurn is the innermost TurnFunc.
type TurnFunc func(ctx context.Context, raw string, state session.State) (Turn, session.State, error)

// Middleware wraps a TurnFunc.
type Middleware func(next TurnFunc) TurnFunc

// Chain applies mws so that the first one is outermost.
func Chain(h TurnFunc, mws ...Middleware) TurnFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// LoggingMiddleware logs turn execution with timing and result info.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(next TurnFunc) TurnFunc {
		return func(ctx context.Context, raw string, state session.State) (Turn, session.State, error) {
			start := time.Now()

			turn, nextState, err := next(ctx, raw, state)

			entry := log.WithField("intent", turn.Intent.String()).
				WithField("text_length", len(raw)).
				WithField("score", turn.Score).
				WithField("related", len(turn.Related)).
				WithField("duration_ms", time.Since(start).Milliseconds())
			switch {
			case err == nil:
				entry.DebugContext(ctx, "Turn completed")
			case errors.Is(err, domerrors.ErrEmptyInput), errors.Is(err, domerrors.ErrInvalidUTF8):
				entry.WithError(err).DebugContext(ctx, "Turn rejected input")
			case domerrors.IsEncoderUnavailable(err):
				entry.WithError(err).WarnContext(ctx, "Encoder unavailable, answered with no-match")
			default:
				entry.WithError(err).WarnContext(ctx, "Turn degraded to no-match")
			}
			return turn, nextState, err
		}
	}
}

// MetricsMiddleware records turn outcome, latency and retrieval score.
func MetricsMiddleware(m *metrics.Metrics) Middleware {
	return func(next TurnFunc) TurnFunc {
		return func(ctx context.Context, raw string, state session.State) (Turn, session.State, error) {
			start := time.Now()

			turn, nextState, err := next(ctx, raw, state)

			if m != nil {
				outcome := "answered"
				switch {
				case err != nil:
					outcome = "error"
				case !turn.Answered():
					outcome = "no_match"
				}
				m.RecordTurn(turn.Intent.String(), outcome, time.Since(start).Seconds())
				if turn.Intent == intent.SemanticFallback && err == nil && turn.Score > 0 {
					m.RecordRetrievalScore(turn.Score)
				}
			}
			return turn, nextState, err
		}
	}
}

// RecoveryMiddleware turns a panic into the fallback reply and keeps the
// session state unchanged.
func RecoveryMiddleware(log *logger.Logger, fallback func() Turn) Middleware {
	return func(next TurnFunc) TurnFunc {
		return func(ctx context.Context, raw string, state session.State) (turn Turn, nextState session.State, err error) {
			defer func() {
				if r := recover(); r != nil {
					// Log the panic with stack trace
					log.WithField("panic", r).
						WithField("stack", string(debug.Stack())).
						ErrorContext(ctx, "Turn panicked")
					turn, nextState, err = fallback(), state, fmt.Errorf("bot: turn panicked: %v", r)
				}
			}()

			return next(ctx, raw, state)
		}
	}
}
