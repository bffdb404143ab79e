package genai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/garyellow/unibot-go/internal/config"
)

// NewEncoder creates the encoder selected by cfg.Kind. Remote encoders come
// back wrapped in Resilient; extra options (metrics observer, retry tuning)
// are passed through to it.
func NewEncoder(ctx context.Context, cfg config.EncoderConfig, opts ...ResilientOption) (Encoder, error) {
	var inner Encoder
	switch cfg.Kind {
	case "", config.EncoderLocal:
		enc := NewLocalEncoder(cfg.Dimension)
		slog.InfoContext(ctx, "Encoder configured", "provider", enc.Provider(), "dimension", enc.Dimension())
		return enc, nil
	case config.EncoderGemini:
		enc, err := NewGeminiEncoder(ctx, cfg.APIKey, cfg.Model, cfg.Dimension, cfg.BatchSize)
		if err != nil {
			return nil, err
		}
		inner = enc
	case config.EncoderOpenAI:
		enc, err := NewOpenAIEncoder(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Dimension, cfg.BatchSize)
		if err != nil {
			return nil, err
		}
		inner = enc
	default:
		return nil, fmt.Errorf("unknown encoder kind %q", cfg.Kind)
	}

	base := []ResilientOption{WithRateLimit(cfg.RPM), WithTimeout(cfg.Timeout)}
	enc := NewResilient(inner, append(base, opts...)...)

	slog.InfoContext(ctx, "Encoder configured",
		"provider", enc.Provider(),
		"name", enc.Name(),
		"dimension", enc.Dimension())
	return enc, nil
}
