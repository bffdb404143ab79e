package rag

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	bm25 "github.com/iwilltry42/bm25-go/bm25"
)

// BM25 parameters (standard Okapi values).
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// lexicalStopwords carry no signal for keyword suggestions.
var lexicalStopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "what": {}, "how": {},
	"where": {}, "when": {}, "who": {}, "which": {}, "do": {}, "does": {}, "i": {},
	"you": {}, "me": {}, "my": {}, "to": {}, "of": {}, "in": {}, "for": {}, "on": {},
	"at": {}, "and": {}, "or": {}, "can": {}, "be": {}, "it": {}, "about": {},
}

// LexicalMatch is one BM25 hit.
type LexicalMatch struct {
	Index    int
	Question string
	Score    float64
}

// BM25Index ranks knowledge-base questions by keyword overlap. It backs the
// related-question list when semantic retrieval is unavailable. Immutable
// after construction and safe for concurrent use.
type BM25Index struct {
	okapi     *bm25.BM25Okapi
	questions []string
}

// NewBM25Index indexes questions, which should already be normalized.
// An empty corpus yields an index that never matches.
func NewBM25Index(questions []string) (*BM25Index, error) {
	idx := &BM25Index{questions: questions}
	if len(questions) == 0 {
		return idx, nil
	}

	okapi, err := bm25.NewBM25Okapi(questions, tokenize, bm25K1, bm25B, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create BM25 index: %w", err)
	}
	idx.okapi = okapi

	slog.Debug("BM25 index initialized", "docs", len(questions))
	return idx, nil
}

// Search returns up to topN questions with a positive score, best first.
// Equal scores keep corpus order.
func (idx *BM25Index) Search(query string, topN int) ([]LexicalMatch, error) {
	if idx == nil || idx.okapi == nil || topN <= 0 {
		return nil, nil
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	scores, err := idx.okapi.GetScores(terms)
	if err != nil {
		return nil, fmt.Errorf("BM25 scoring failed: %w", err)
	}

	var hits []LexicalMatch
	for i, s := range scores {
		if s > 0 && i < len(idx.questions) {
			hits = append(hits, LexicalMatch{Index: i, Question: idx.questions[i], Score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > topN {
		hits = hits[:topN]
	}
	return hits, nil
}

// Len returns the number of indexed questions.
func (idx *BM25Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.questions)
}

// tokenize lowercases, splits on anything that is not a letter or digit and
// drops stopwords.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := words[:0]
	for _, w := range words {
		if _, stop := lexicalStopwords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}
