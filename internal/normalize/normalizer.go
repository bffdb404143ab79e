// Package normalize turns raw utterances into the canonical lowercase form
// every matcher and the encoder consume.
//
// The pipeline is: lowercase and fold accents, keep only [a-z0-9 ?], collapse
// whitespace, spell-correct, then apply the pidgin, abbreviation and synonym
// tables. Spell correction runs first and skips table keys so shorthand like
// "u" or "wetin" reaches its table intact. Normalize is idempotent.
package normalize

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/garyellow/unibot-go/internal/catalog"
	"github.com/garyellow/unibot-go/internal/errors"
	"github.com/garyellow/unibot-go/internal/stringutil"
)

//go:embed dictionary.txt
var dictionary []byte

// seedCount is the frequency given to table outputs and knowledge-base
// vocabulary missing from the dictionary.
const seedCount = 100

// Normalizer is safe for concurrent use after construction.
type Normalizer struct {
	spell *SpellChecker
	keys  map[string]struct{}
}

// Option configures a Normalizer.
type Option func(*options)

type options struct {
	vocabulary []string
}

// WithVocabulary adds domain words (course codes, department names, words of
// knowledge-base questions) to the spelling dictionary so they are never
// "corrected" away. Words that are table keys are ignored.
func WithVocabulary(words ...string) Option {
	return func(o *options) {
		o.vocabulary = append(o.vocabulary, words...)
	}
}

// New builds a normalizer over the embedded frequency dictionary.
func New(opts ...Option) (*Normalizer, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	spell := NewSpellChecker()
	if err := spell.LoadDictionary(bytes.NewReader(dictionary)); err != nil {
		return nil, fmt.Errorf("normalize: load dictionary: %w", err)
	}

	keys := make(map[string]struct{})
	for _, table := range tables {
		for k, v := range table {
			keys[k] = struct{}{}
			for _, w := range strings.Fields(v) {
				spell.Add(w, seedCount)
			}
		}
	}

	for _, phrase := range o.vocabulary {
		for _, w := range strings.Fields(clean(phrase)) {
			if _, isKey := keys[w]; isKey || stringutil.ContainsDigit(w) || strings.Contains(w, "?") {
				continue
			}
			spell.Add(w, 1)
		}
	}

	return &Normalizer{spell: spell, keys: keys}, nil
}

// SpellChecker exposes the underlying dictionary.
func (n *Normalizer) SpellChecker() *SpellChecker {
	return n.spell
}

// Normalize returns the canonical form of s. It fails only on invalid UTF-8.
func (n *Normalizer) Normalize(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", errors.ErrInvalidUTF8
	}
	toks := tokenize(clean(s))
	toks = n.correct(toks)
	toks = n.expand(toks)
	return join(toks), nil
}

// clean lowercases, folds accents, keeps [a-z0-9 ?] and collapses whitespace.
func clean(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '?':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// token is one whitespace-separated word with its question marks split off.
// A core that still holds '?' is opaque and never rewritten.
type token struct {
	lead, core, trail string
}

func (t token) opaque() bool {
	return t.core == "" || strings.Contains(t.core, "?")
}

func (t token) String() string {
	return t.lead + t.core + t.trail
}

func tokenize(s string) []token {
	fields := strings.Fields(s)
	out := make([]token, 0, len(fields))
	for _, f := range fields {
		core := strings.TrimLeft(f, "?")
		lead := f[:len(f)-len(core)]
		trimmed := strings.TrimRight(core, "?")
		trail := core[len(trimmed):]
		out = append(out, token{lead: lead, core: trimmed, trail: trail})
	}
	return out
}

func join(toks []token) string {
	parts := make([]string, 0, len(toks))
	for _, t := range toks {
		if s := t.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// correctable reports whether the spelling pass may touch toks[i].
func (n *Normalizer) correctable(toks []token, i int) bool {
	t := toks[i]
	if t.opaque() || len(t.core) <= 2 || stringutil.ContainsDigit(t.core) {
		return false
	}
	if _, isKey := n.keys[t.core]; isKey {
		return false
	}
	if i+1 < len(toks) && catalog.IsCodePrefix(t.core, toks[i+1].core) {
		return false
	}
	return !n.spell.Contains(t.core)
}

// correct is the compound spelling pass. For each unknown token, in order:
// merge with an unknown right neighbour when the concatenation is within one
// edit of a word; correct within one edit; split into two dictionary words;
// correct within two edits; otherwise leave it.
func (n *Normalizer) correct(toks []token) []token {
	out := make([]token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if !n.correctable(toks, i) {
			out = append(out, t)
			continue
		}

		if i+1 < len(toks) && t.trail == "" && toks[i+1].lead == "" && n.correctable(toks, i+1) {
			if s, ok := n.spell.Lookup(t.core+toks[i+1].core, 1); ok {
				out = append(out, token{lead: t.lead, core: s.Term, trail: toks[i+1].trail})
				i++
				continue
			}
		}

		if s, ok := n.spell.Lookup(t.core, 1); ok {
			t.core = s.Term
			out = append(out, t)
			continue
		}
		if left, right, ok := n.spell.Split(t.core); ok {
			out = append(out, token{lead: t.lead, core: left}, token{core: right, trail: t.trail})
			continue
		}
		if s, ok := n.spell.Lookup(t.core, MaxEditDistance); ok {
			t.core = s.Term
		}
		out = append(out, t)
	}
	return out
}

// expand applies the lexical tables in order, one token at a time.
func (n *Normalizer) expand(toks []token) []token {
	for _, table := range tables {
		for i := range toks {
			if toks[i].opaque() {
				continue
			}
			if v, ok := table[toks[i].core]; ok {
				toks[i].core = v
			}
		}
	}
	return toks
}
