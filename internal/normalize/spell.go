package normalize

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/garyellow/unibot-go/internal/stringutil"
)

// Spell-correction parameters.
const (
	MaxEditDistance = 2
	PrefixLength    = 7
)

// Suggestion is a dictionary word close to the looked-up input.
type Suggestion struct {
	Term     string
	Distance int
	Count    int64
}

// better orders suggestions by distance, then frequency, then alphabetically.
func (s Suggestion) better(o Suggestion) bool {
	if s.Distance != o.Distance {
		return s.Distance < o.Distance
	}
	if s.Count != o.Count {
		return s.Count > o.Count
	}
	return s.Term < o.Term
}

// SpellChecker is a symmetric-delete spelling corrector over a frequency
// dictionary. It is safe for concurrent lookups once built.
type SpellChecker struct {
	words   map[string]int64
	deletes map[string][]string
}

// NewSpellChecker returns an empty checker.
func NewSpellChecker() *SpellChecker {
	return &SpellChecker{
		words:   make(map[string]int64),
		deletes: make(map[string][]string),
	}
}

// LoadDictionary reads "word count" lines. Blank lines and lines starting
// with '#' are skipped.
func (sc *SpellChecker) LoadDictionary(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return fmt.Errorf("dictionary line %d: want \"word count\", got %q", line, text)
		}
		count, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || count <= 0 {
			return fmt.Errorf("dictionary line %d: bad count %q", line, fields[1])
		}
		sc.Add(strings.ToLower(fields[0]), count)
	}
	return scanner.Err()
}

// Add inserts word with the given count. Re-adding a known word keeps the
// larger count.
func (sc *SpellChecker) Add(word string, count int64) {
	if word == "" {
		return
	}
	if old, ok := sc.words[word]; ok {
		if count > old {
			sc.words[word] = count
		}
		return
	}
	sc.words[word] = count
	for del := range deletesOf(prefix(word), MaxEditDistance) {
		sc.deletes[del] = append(sc.deletes[del], word)
	}
}

// Contains reports whether word is in the dictionary.
func (sc *SpellChecker) Contains(word string) bool {
	_, ok := sc.words[word]
	return ok
}

// Count returns the frequency of word, or 0.
func (sc *SpellChecker) Count(word string) int64 {
	return sc.words[word]
}

// Len returns the dictionary size.
func (sc *SpellChecker) Len() int {
	return len(sc.words)
}

// Lookup returns the best dictionary word within maxDist edits of word.
func (sc *SpellChecker) Lookup(word string, maxDist int) (Suggestion, bool) {
	if count, ok := sc.words[word]; ok {
		return Suggestion{Term: word, Count: count}, true
	}
	if maxDist > MaxEditDistance {
		maxDist = MaxEditDistance
	}
	if maxDist <= 0 {
		return Suggestion{}, false
	}

	wordLen := len([]rune(word))
	var best Suggestion
	found := false
	seen := make(map[string]struct{})
	for del := range deletesOf(prefix(word), maxDist) {
		for _, cand := range sc.deletes[del] {
			if _, dup := seen[cand]; dup {
				continue
			}
			seen[cand] = struct{}{}
			if abs(len([]rune(cand))-wordLen) > maxDist {
				continue
			}
			dist := stringutil.OSADistance(word, cand, maxDist)
			if dist > maxDist {
				continue
			}
			s := Suggestion{Term: cand, Distance: dist, Count: sc.words[cand]}
			if !found || s.better(best) {
				best, found = s, true
			}
		}
	}
	return best, found
}

// Split breaks word into two exact dictionary words, choosing the pair with
// the highest frequency product. The earlier split point wins ties.
func (sc *SpellChecker) Split(word string) (string, string, bool) {
	runes := []rune(word)
	var left, right string
	var bestScore float64
	for i := 1; i < len(runes); i++ {
		l, r := string(runes[:i]), string(runes[i:])
		lc, rc := sc.words[l], sc.words[r]
		if lc == 0 || rc == 0 {
			continue
		}
		if score := float64(lc) * float64(rc); score > bestScore {
			left, right, bestScore = l, r, score
		}
	}
	return left, right, bestScore > 0
}

// Words returns the dictionary words sorted alphabetically.
func (sc *SpellChecker) Words() []string {
	out := make([]string, 0, len(sc.words))
	for w := range sc.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

func prefix(word string) string {
	runes := []rune(word)
	if len(runes) > PrefixLength {
		runes = runes[:PrefixLength]
	}
	return string(runes)
}

// deletesOf returns word and every string reachable from it by deleting up to
// maxDist runes.
func deletesOf(word string, maxDist int) map[string]struct{} {
	out := map[string]struct{}{word: {}}
	frontier := []string{word}
	for d := 0; d < maxDist; d++ {
		var next []string
		for _, w := range frontier {
			runes := []rune(w)
			if len(runes) <= 1 {
				continue
			}
			for i := range runes {
				del := string(runes[:i]) + string(runes[i+1:])
				if _, ok := out[del]; ok {
					continue
				}
				out[del] = struct{}{}
				next = append(next, del)
			}
		}
		frontier = next
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
