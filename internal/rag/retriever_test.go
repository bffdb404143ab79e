package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/garyellow/unibot-go/internal/errors"
	"github.com/garyellow/unibot-go/internal/genai"
	"github.com/garyellow/unibot-go/internal/knowledge"
)

type lowerNormalizer struct{}

func (lowerNormalizer) Normalize(s string) (string, error) {
	return strings.Join(strings.Fields(strings.ToLower(s)), " "), nil
}

// tableEncoder maps known texts to fixed vectors; anything else encodes to
// the last axis.
type tableEncoder struct {
	vectors map[string][]float32
	calls   atomic.Int32
	delay   time.Duration
	err     error
}

func (e *tableEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0, 0, 1}
		}
	}
	return out, nil
}

func (e *tableEncoder) Dimension() int           { return 4 }
func (e *tableEncoder) Name() string             { return "table/v1" }
func (e *tableEncoder) Provider() genai.Provider { return genai.ProviderLocal }

func testEntries() []knowledge.QAEntry {
	return []knowledge.QAEntry{
		{Question: "When does registration open", Answer: "Registration opens in September."},
		{Question: "Where is the library", Answer: "The library is beside the senate building."},
		{Question: "How do I pay school fees", Answer: "Fees are paid through the portal."},
		{Question: "Where is the main library", Answer: "Same building, second floor."},
	}
}

func testEncoder() *tableEncoder {
	return &tableEncoder{vectors: map[string][]float32{
		"when does registration open": {1, 0, 0, 0},
		"where is the library":        {0, 1, 0, 0},
		"how do i pay school fees":    {0, 0, 1, 0},
		"where is the main library":   {0, 1, 0, 0}, // exact tie with entry 1
		"registration":                {0.9, 0.1, 0, 0},
		"library":                     {0, 3, 0, 0}, // not unit length
		"fees and library":            {0, 0.6, 0.8, 0},
		"vague":                       {0.5, 0.5, 0.5, 0.5},
	}}
}

func newTestRetriever(t *testing.T, enc genai.Encoder) *Retriever {
	t.Helper()
	r, err := NewRetriever(context.Background(), testEntries(), Options{
		Encoder:    enc,
		Normalizer: lowerNormalizer{},
		BatchSize:  3,
	})
	require.NoError(t, err)
	return r
}

func TestNewRetrieverAlignsIndex(t *testing.T) {
	t.Parallel()
	r := newTestRetriever(t, testEncoder())
	assert.Equal(t, len(testEntries()), r.Len())
	assert.Equal(t, []float32{0, 0, 1, 0}, r.index[2])
}

func TestNewRetrieverRejectsMismatchedIndexEncoder(t *testing.T) {
	t.Parallel()
	_, err := NewRetriever(context.Background(), testEntries(), Options{
		Encoder:      testEncoder(),
		IndexEncoder: genai.NewLocalEncoder(4),
		Normalizer:   lowerNormalizer{},
	})
	assert.Error(t, err)
}

func TestNewRetrieverEncoderFailure(t *testing.T) {
	t.Parallel()
	enc := testEncoder()
	enc.err = errors.New("down")
	_, err := NewRetriever(context.Background(), testEntries(), Options{Encoder: enc, Normalizer: lowerNormalizer{}})
	assert.Error(t, err)
}

func TestBestMatch(t *testing.T) {
	t.Parallel()
	r := newTestRetriever(t, testEncoder())
	ctx := context.Background()

	tests := []struct {
		name      string
		query     string
		threshold float64
		wantIndex int
		wantOK    bool
	}{
		{"close match", "Registration", 0.60, 0, true},
		{"non-unit query vector", "library", 0.60, 1, true},
		{"exact tie picks lowest index", "where is the main library", 0.60, 1, true},
		{"below threshold", "vague", 0.60, 0, false},
		{"unknown text", "xyz", 0.60, 0, false},
		{"empty text", "   ", 0.0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok, err := r.BestMatch(ctx, tt.query, tt.threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantIndex, m.Index)
				assert.GreaterOrEqual(t, m.Score, tt.threshold)
				assert.Equal(t, testEntries()[tt.wantIndex].Answer, m.Entry.Answer)
			}
		})
	}
}

func TestBestMatchThresholdIsInclusive(t *testing.T) {
	t.Parallel()
	r := newTestRetriever(t, testEncoder())
	rk, err := r.Rank(context.Background(), "vague")
	require.NoError(t, err)

	_, ok := rk.Best(0.5)
	assert.True(t, ok, "a score equal to the threshold matches")
	_, ok = rk.Best(0.5000001)
	assert.False(t, ok)
}

func TestTopK(t *testing.T) {
	t.Parallel()
	r := newTestRetriever(t, testEncoder())

	res, ok, err := r.TopK(context.Background(), "fees and library", 3, 0.45)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, res.Primary.Index)
	assert.Equal(t, []string{"Where is the library", "Where is the main library"}, res.Related)

	res, ok, err = r.TopK(context.Background(), "fees and library", 1, 0.45)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, res.Related)

	_, ok, err = r.TopK(context.Background(), "xyz", 3, 0.45)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRankEncoderUnavailable(t *testing.T) {
	t.Parallel()
	enc := testEncoder()
	r := newTestRetriever(t, enc)
	enc.err = domerrors.ErrEncoderUnavailable

	_, _, err := r.BestMatch(context.Background(), "library", 0.6)
	assert.ErrorIs(t, err, domerrors.ErrEncoderUnavailable)
}

func TestEncodeCollapsesConcurrentCalls(t *testing.T) {
	t.Parallel()
	enc := testEncoder()
	r := newTestRetriever(t, enc)
	built := enc.calls.Load()
	enc.delay = 50 * time.Millisecond

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			_, err := r.Encode(context.Background(), "LIBRARY")
			assert.NoError(t, err)
		})
	}
	wg.Wait()
	assert.Less(t, enc.calls.Load()-built, int32(8))
}

func TestEncodeSharedCallSurvivesCallerCancel(t *testing.T) {
	t.Parallel()
	enc := testEncoder()
	r := newTestRetriever(t, enc)
	built := enc.calls.Load()
	enc.delay = 100 * time.Millisecond

	ctx1, cancel1 := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := r.Encode(ctx1, "library")
		first <- err
	}()
	require.Eventually(t, func() bool { return enc.calls.Load() > built }, time.Second, time.Millisecond)

	second := make(chan []float32, 1)
	go func() {
		v, err := r.Encode(context.Background(), "library")
		assert.NoError(t, err)
		second <- v
	}()
	time.Sleep(10 * time.Millisecond)
	cancel1()

	assert.ErrorIs(t, <-first, context.Canceled)
	v := <-second
	require.Len(t, v, 4)
	assert.InDelta(t, 1.0, v[1], 1e-6)
	assert.Equal(t, built+1, enc.calls.Load())
}

func TestSuggest(t *testing.T) {
	t.Parallel()
	r := newTestRetriever(t, testEncoder())

	got := r.Suggest("registration deadline", 5)
	assert.Equal(t, []string{"When does registration open"}, got)
	assert.Empty(t, r.Suggest("what is it", 5), "stopwords alone suggest nothing")
}

func TestLocalEncoderEndToEnd(t *testing.T) {
	t.Parallel()
	r := newTestRetriever(t, genai.NewLocalEncoder(0))

	m, ok, err := r.BestMatch(context.Background(), "how do I pay school fees", 0.60)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, m.Index)
	assert.InDelta(t, 1.0, m.Score, 1e-5)
}
