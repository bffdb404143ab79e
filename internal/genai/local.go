package genai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Feature weights for the hashing encoder. Whole words dominate; character
// trigrams give near-misses some overlap.
const (
	wordWeight    = 1.0
	trigramWeight = 0.35
)

// LocalEncoder is a deterministic feature-hashing encoder. Each text becomes a
// bag of words and padded character trigrams hashed into a fixed number of
// signed buckets, then L2-normalised. It needs no network and is the default
// encoder for development and tests.
type LocalEncoder struct {
	dim int
}

// NewLocalEncoder returns a hashing encoder producing dim-length vectors.
// A non-positive dim selects DefaultLocalDimension.
func NewLocalEncoder(dim int) *LocalEncoder {
	if dim <= 0 {
		dim = DefaultLocalDimension
	}
	return &LocalEncoder{dim: dim}
}

// Encode implements Encoder. It never fails unless ctx is done.
func (e *LocalEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(text)
	}
	return out, nil
}

// Dimension implements Encoder.
func (e *LocalEncoder) Dimension() int { return e.dim }

// Name implements Encoder.
func (e *LocalEncoder) Name() string { return "local/hashing-v1" }

// Provider implements Encoder.
func (e *LocalEncoder) Provider() Provider { return ProviderLocal }

func (e *LocalEncoder) embed(text string) []float32 {
	acc := make([]float64, e.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		e.add(acc, "w:"+w, wordWeight)
		padded := []rune("#" + w + "#")
		for i := 0; i+3 <= len(padded); i++ {
			e.add(acc, "t:"+string(padded[i:i+3]), trigramWeight)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, e.dim)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

// add hashes feature into a bucket; the top hash bit picks the sign so
// collisions cancel out on average.
func (e *LocalEncoder) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}

// normalizeVector scales v to unit length in place. Zero vectors are left as is.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
	return v
}
