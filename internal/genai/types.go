// Package genai provides the text encoders behind semantic retrieval.
//
// Architecture:
//   - local: deterministic feature hashing, no network (default)
//   - gemini: google.golang.org/genai embeddings
//   - openai: github.com/openai/openai-go/v3 against any OpenAI-compatible /embeddings endpoint
//
// Remote encoders are wrapped by Resilient, which adds rate limiting, a per-call
// deadline and Full Jitter retries. There is no cross-provider fallback: every
// provider produces its own embedding space, so vectors from two providers are
// never comparable.
package genai

import (
	"context"
	"time"
)

// Provider identifies an embedding backend.
type Provider string

const (
	// ProviderLocal is the built-in hashing encoder.
	ProviderLocal Provider = "local"
	// ProviderGemini is Google's Gemini embedding API.
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is any OpenAI-compatible embeddings API.
	ProviderOpenAI Provider = "openai"
)

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// Encoder turns texts into fixed-dimension unit-length vectors, one row per
// input, in input order. Implementations are safe for concurrent use.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the length of every returned vector.
	Dimension() int
	// Name identifies the embedding space (provider and model). Vectors with
	// different names must not be compared.
	Name() string
	// Provider returns the backend type for metrics.
	Provider() Provider
}

// RetryConfig defines retry behavior for encoder API calls.
// Uses AWS-recommended Full Jitter exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	MaxAttempts int

	// InitialDelay is the base delay before first retry.
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration
}

// Retry configuration defaults
const (
	DefaultMaxRetryAttempts  = 3
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second
)

// DefaultRetryConfig returns the retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}

// Default models and dimensions per provider.
const (
	DefaultLocalDimension  = 384
	DefaultGeminiModel     = "gemini-embedding-001"
	DefaultGeminiDimension = 768
	DefaultOpenAIModel     = "text-embedding-3-small"
	DefaultOpenAIDimension = 512
	DefaultOpenAIBaseURL   = "https://api.openai.com/v1/"
	DefaultBatchSize       = 64
)
