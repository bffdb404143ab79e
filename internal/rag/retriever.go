// Package rag provides the semantic retriever over the knowledge base: an
// immutable matrix of question embeddings compared to the encoded utterance by
// cosine similarity, with a BM25 index over the same questions for lexical
// suggestions.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/garyellow/unibot-go/internal/config"
	"github.com/garyellow/unibot-go/internal/genai"
	"github.com/garyellow/unibot-go/internal/knowledge"
)

// Default thresholds for retrieval.
const (
	DefaultBestMatchThreshold = 0.60
	DefaultTopKThreshold      = 0.45
)

const defaultBuildConcurrency = 4

// Normalizer canonicalises text before encoding.
type Normalizer interface {
	Normalize(s string) (string, error)
}

// Options configures NewRetriever.
type Options struct {
	// Encoder encodes queries and, unless IndexEncoder is set, the index.
	Encoder genai.Encoder
	// IndexEncoder encodes the questions at build time, typically Encoder
	// behind a persistent cache.
	IndexEncoder genai.Encoder
	Normalizer   Normalizer
	// BatchSize is the number of questions per encode call while building.
	BatchSize int
	// Concurrency bounds parallel batches while building.
	Concurrency int
}

// Match is one retrieved knowledge-base row.
type Match struct {
	Index int
	Score float64
	Entry knowledge.QAEntry
}

// TopKResult is the primary answer plus related questions.
type TopKResult struct {
	Primary Match
	Related []string
}

// Retriever is immutable after NewRetriever returns and safe for concurrent use.
type Retriever struct {
	encoder genai.Encoder
	norm    Normalizer
	entries []knowledge.QAEntry
	index   [][]float32
	lexical *BM25Index
	group   singleflight.Group
}

// NewRetriever normalizes and encodes every entry question. The index is
// aligned with entries: index[i] embeds entries[i].Question.
func NewRetriever(ctx context.Context, entries []knowledge.QAEntry, opts Options) (*Retriever, error) {
	if opts.Encoder == nil {
		return nil, errors.New("rag: encoder is required")
	}
	if opts.Normalizer == nil {
		return nil, errors.New("rag: normalizer is required")
	}
	indexEncoder := opts.IndexEncoder
	if indexEncoder == nil {
		indexEncoder = opts.Encoder
	}
	if indexEncoder.Name() != opts.Encoder.Name() || indexEncoder.Dimension() != opts.Encoder.Dimension() {
		return nil, fmt.Errorf("rag: index encoder %s/%d does not match query encoder %s/%d",
			indexEncoder.Name(), indexEncoder.Dimension(), opts.Encoder.Name(), opts.Encoder.Dimension())
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = genai.DefaultBatchSize
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultBuildConcurrency
	}

	questions := make([]string, len(entries))
	for i, e := range entries {
		n, err := opts.Normalizer.Normalize(e.Question)
		if err != nil {
			return nil, fmt.Errorf("rag: normalize question %d: %w", i, err)
		}
		questions[i] = n
	}

	start := time.Now()
	index := make([][]float32, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for lo := 0; lo < len(questions); lo += batchSize {
		hi := min(lo+batchSize, len(questions))
		g.Go(func() error {
			vecs, err := indexEncoder.Encode(gctx, questions[lo:hi])
			if err != nil {
				return fmt.Errorf("encode questions %d-%d: %w", lo, hi-1, err)
			}
			if len(vecs) != hi-lo {
				return fmt.Errorf("encode questions %d-%d: got %d vectors", lo, hi-1, len(vecs))
			}
			for j, v := range vecs {
				if len(v) != opts.Encoder.Dimension() {
					return fmt.Errorf("question %d: vector dimension %d, want %d", lo+j, len(v), opts.Encoder.Dimension())
				}
				index[lo+j] = unit(v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rag: build index: %w", err)
	}

	lexical, err := NewBM25Index(questions)
	if err != nil {
		return nil, fmt.Errorf("rag: %w", err)
	}

	slog.InfoContext(ctx, "Semantic index built",
		"entries", len(index),
		"encoder", opts.Encoder.Name(),
		"dimension", opts.Encoder.Dimension(),
		"duration_ms", time.Since(start).Milliseconds())

	return &Retriever{
		encoder: opts.Encoder,
		norm:    opts.Normalizer,
		entries: entries,
		index:   index,
		lexical: lexical,
	}, nil
}

// Len returns the number of indexed entries.
func (r *Retriever) Len() int { return len(r.index) }

// Encode normalizes text and encodes it. Concurrent calls for the same
// normalized text share one encoder request.
func (r *Retriever) Encode(ctx context.Context, text string) ([]float32, error) {
	n, err := r.norm.Normalize(text)
	if err != nil {
		return nil, err
	}
	return r.encodeNormalized(ctx, n)
}

// encodeNormalized shares one encoder call between concurrent callers. The
// shared call runs detached from any single caller, so one session giving up
// never fails another; each caller still returns as soon as its own ctx ends.
func (r *Retriever) encodeNormalized(ctx context.Context, normalized string) ([]float32, error) {
	ch := r.group.DoChan(normalized, func() (any, error) {
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.TurnProcessing)
		defer cancel()
		vecs, err := r.encoder.Encode(sharedCtx, []string{normalized})
		if err != nil {
			return nil, err
		}
		if len(vecs) != 1 || len(vecs[0]) != r.encoder.Dimension() {
			return nil, fmt.Errorf("rag: encoder returned malformed query vector")
		}
		return unit(vecs[0]), nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]float32), nil
	}
}

// Ranking holds the cosine score of one query against every index row.
type Ranking struct {
	r      *Retriever
	scores []float64
}

// Rank encodes text and scores it against the whole index. An utterance that
// normalizes to nothing yields an empty ranking.
func (r *Retriever) Rank(ctx context.Context, text string) (Ranking, error) {
	n, err := r.norm.Normalize(text)
	if err != nil {
		return Ranking{r: r}, err
	}
	if n == "" || len(r.index) == 0 {
		return Ranking{r: r}, nil
	}

	q, err := r.encodeNormalized(ctx, n)
	if err != nil {
		return Ranking{r: r}, err
	}

	scores := make([]float64, len(r.index))
	for i, v := range r.index {
		scores[i] = dot(q, v)
	}
	return Ranking{r: r, scores: scores}, nil
}

// Best returns the argmax if its score reaches threshold. The lowest index
// wins exact ties.
func (rk Ranking) Best(threshold float64) (Match, bool) {
	best := -1
	for i, s := range rk.scores {
		if best < 0 || s > rk.scores[best] {
			best = i
		}
	}
	if best < 0 || rk.scores[best] < threshold {
		return Match{}, false
	}
	return rk.match(best), true
}

// TopK returns the best entry and the questions of the next k-1 entries in
// descending score order, if the best score reaches threshold.
func (rk Ranking) TopK(k int, threshold float64) (TopKResult, bool) {
	primary, ok := rk.Best(threshold)
	if !ok || k <= 0 {
		return TopKResult{}, false
	}

	order := make([]int, len(rk.scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rk.scores[order[a]] > rk.scores[order[b]]
	})
	if len(order) > k {
		order = order[:k]
	}

	res := TopKResult{Primary: primary}
	seen := map[string]struct{}{primary.Entry.Question: {}}
	for _, i := range order[1:] {
		if i == primary.Index {
			continue
		}
		q := rk.r.entries[i].Question
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		res.Related = append(res.Related, q)
	}
	return res, true
}

// Score returns the cosine score of index row i.
func (rk Ranking) Score(i int) float64 {
	if i < 0 || i >= len(rk.scores) {
		return 0
	}
	return rk.scores[i]
}

func (rk Ranking) match(i int) Match {
	return Match{Index: i, Score: rk.scores[i], Entry: rk.r.entries[i]}
}

// BestMatch is Rank followed by Best.
func (r *Retriever) BestMatch(ctx context.Context, text string, threshold float64) (Match, bool, error) {
	rk, err := r.Rank(ctx, text)
	if err != nil {
		return Match{}, false, err
	}
	m, ok := rk.Best(threshold)
	return m, ok, nil
}

// TopK is Rank followed by Ranking.TopK.
func (r *Retriever) TopK(ctx context.Context, text string, k int, threshold float64) (TopKResult, bool, error) {
	rk, err := r.Rank(ctx, text)
	if err != nil {
		return TopKResult{}, false, err
	}
	res, ok := rk.TopK(k, threshold)
	return res, ok, nil
}

// Suggest returns up to n knowledge-base questions sharing keywords with
// text. It needs no encoder.
func (r *Retriever) Suggest(text string, n int) []string {
	normalized, err := r.norm.Normalize(text)
	if err != nil || normalized == "" {
		return nil
	}
	hits, err := r.lexical.Search(normalized, n)
	if err != nil {
		slog.Warn("Lexical suggestion failed", "error", err)
		return nil
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, r.entries[h.Index].Question)
	}
	return out
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// unit returns v scaled to unit length. Vectors are copied so callers never
// share backing arrays with the index.
func unit(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	n := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}
