// Package intent routes an utterance to the branch that answers it.
package intent

import (
	"regexp"
	"strings"

	"github.com/garyellow/unibot-go/internal/catalog"
	"github.com/garyellow/unibot-go/internal/extract"
	"github.com/garyellow/unibot-go/internal/session"
)

// Intent is the branch chosen for a turn.
type Intent int

// Intents in rule order.
const (
	Greeting Intent = iota
	SmallTalk
	CourseCode
	Structured
	SemanticFallback
)

var intentNames = [...]string{"greeting", "small_talk", "course_code", "structured", "semantic_fallback"}

func (i Intent) String() string {
	if i < 0 || int(i) >= len(intentNames) {
		return "unknown"
	}
	return intentNames[i]
}

// MarshalText renders the intent as its snake_case name.
func (i Intent) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// GreetingPatterns match on word boundaries of the normalized text.
var GreetingPatterns = []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening"}

// SmallTalkPattern pairs a small-talk regex with the key of its canned reply.
type SmallTalkPattern struct {
	Key     string
	Pattern *regexp.Regexp
}

// SmallTalkPatterns are tried in order against the lowercased raw text and
// the normalized text.
var SmallTalkPatterns = []SmallTalkPattern{
	{"how_are_you", regexp.MustCompile(`\bhow (are|r) (you|u)\b`)},
	{"whats_up", regexp.MustCompile(`\bwhat'?s up\b`)},
	{"who_are_you", regexp.MustCompile(`\bwho (are|r) (you|u)\b`)},
	{"thanks", regexp.MustCompile(`\bthank(s| you)\b`)},
	{"love_you", regexp.MustCompile(`\b(i love|like) (you|u)\b`)},
	{"good_job", regexp.MustCompile(`\bgood (job|work)\b`)},
}

var greetingPattern = regexp.MustCompile(`\b(` + strings.Join(GreetingPatterns, "|") + `)\b`)

// SlotExtractor finds structured slots in an utterance.
type SlotExtractor interface {
	Fresh(normalized string) catalog.Slots
}

// Classifier applies the routing rules in a fixed order; the first match wins.
type Classifier struct {
	extractor SlotExtractor
}

// NewClassifier returns a classifier. A nil extractor uses extract.New().
func NewClassifier(extractor SlotExtractor) *Classifier {
	if extractor == nil {
		extractor = extract.New()
	}
	return &Classifier{extractor: extractor}
}

// Classify returns exactly one intent for any input.
func (c *Classifier) Classify(raw, normalized string, state session.State) Intent {
	switch {
	case !state.Greeted && IsGreeting(normalized):
		return Greeting
	case MatchSmallTalk(raw, normalized) != "":
		return SmallTalk
	case hasCode(normalized):
		return CourseCode
	case c.isStructured(normalized, state):
		return Structured
	default:
		return SemanticFallback
	}
}

// IsGreeting reports whether normalized contains a greeting word or phrase.
func IsGreeting(normalized string) bool {
	return greetingPattern.MatchString(normalized)
}

// MatchSmallTalk returns the key of the first small-talk pattern matching the
// raw or normalized text, or "".
func MatchSmallTalk(raw, normalized string) string {
	lowered := strings.ToLower(raw)
	for _, p := range SmallTalkPatterns {
		if p.Pattern.MatchString(lowered) || p.Pattern.MatchString(normalized) {
			return p.Key
		}
	}
	return ""
}

func hasCode(normalized string) bool {
	_, ok := catalog.FindCode(normalized)
	return ok
}

// isStructured holds when the utterance carries a slot of its own, or when it
// asks about courses and a previous query can supply the department.
func (c *Classifier) isStructured(normalized string, state session.State) bool {
	if !c.extractor.Fresh(normalized).IsEmpty() {
		return true
	}
	if state.LastSlots == nil || state.LastSlots.Department == "" {
		return false
	}
	for _, w := range strings.Fields(strings.ReplaceAll(normalized, "?", " ")) {
		if w == "course" || w == "courses" {
			return true
		}
	}
	return false
}
