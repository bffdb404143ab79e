package genai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// EmbeddingStore persists vectors keyed by encoder name, dimension and the
// sha256 of the input text.
type EmbeddingStore interface {
	GetEmbeddings(ctx context.Context, name string, dim int, hashes []string) (map[string][]float32, error)
	PutEmbeddings(ctx context.Context, name string, dim int, vectors map[string][]float32) error
}

// CachedEncoder serves repeated texts from an EmbeddingStore and only sends
// misses to the inner encoder. Store failures are logged and bypassed.
type CachedEncoder struct {
	inner Encoder
	store EmbeddingStore
}

// NewCachedEncoder wraps inner with store. A nil store returns inner as is.
func NewCachedEncoder(inner Encoder, store EmbeddingStore) Encoder {
	if store == nil {
		return inner
	}
	return &CachedEncoder{inner: inner, store: store}
}

// TextHash is the cache key for text.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Encode implements Encoder.
func (c *CachedEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	hashes := make([]string, len(texts))
	for i, t := range texts {
		hashes[i] = TextHash(t)
	}

	cached, err := c.store.GetEmbeddings(ctx, c.inner.Name(), c.inner.Dimension(), hashes)
	if err != nil {
		slog.WarnContext(ctx, "Embedding cache read failed", "error", err)
		cached = nil
	}

	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, h := range hashes {
		if v, ok := cached[h]; ok && len(v) == c.inner.Dimension() {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, texts[i])
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Encode(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("encoder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}

	fresh := make(map[string][]float32, len(vecs))
	for j, v := range vecs {
		out[missIdx[j]] = v
		fresh[hashes[missIdx[j]]] = v
	}
	if err := c.store.PutEmbeddings(ctx, c.inner.Name(), c.inner.Dimension(), fresh); err != nil {
		slog.WarnContext(ctx, "Embedding cache write failed", "error", err, "count", len(fresh))
	}

	slog.DebugContext(ctx, "Embeddings encoded",
		"cached", len(texts)-len(missTexts),
		"encoded", len(missTexts))
	return out, nil
}

// Dimension implements Encoder.
func (c *CachedEncoder) Dimension() int { return c.inner.Dimension() }

// Name implements Encoder.
func (c *CachedEncoder) Name() string { return c.inner.Name() }

// Provider implements Encoder.
func (c *CachedEncoder) Provider() Provider { return c.inner.Provider() }
