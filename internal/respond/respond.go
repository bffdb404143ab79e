// Package respond assembles reply text: tone-aware intros, canned phrases and
// course-code formatting. Phrase choice comes from an injected random source.
package respond

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

var tonePatterns = []struct {
	tone    Tone
	pattern *regexp.Regexp
}{
	{Angry, regexp.MustCompile(`\b(angry|annoyed|annoying|frustrat\w*|useless|stupid|nonsense|rubbish|terrible|worst|ridiculous|fed up)\b`)},
	{Urgent, regexp.MustCompile(`\b(urgent\w*|asap|immediately|now|hurry|quick(ly)?|emergency|deadline today)\b`)},
	{Confused, regexp.MustCompile(`\b(confus\w*|don'?t understand|not sure|unclear|lost|no idea)\b|\?\?`)},
	{Polite, regexp.MustCompile(`\b(please|pls|plz|kindly|abeg|thanks?|thank you|sorry|excuse me)\b`)},
}

// DetectTone reads the register of the raw (unnormalized) message.
func DetectTone(raw string) Tone {
	lowered := strings.ToLower(raw)
	for _, tp := range tonePatterns {
		if tp.pattern.MatchString(lowered) {
			return tp.tone
		}
	}
	if strings.Contains(raw, "!") || isShouting(raw) {
		return Emphatic
	}
	return Neutral
}

// isShouting reports an all-caps word of five or more letters. Shorter caps
// words are usually course codes or acronyms.
func isShouting(raw string) bool {
	for _, w := range strings.Fields(raw) {
		letters, upper := 0, 0
		for _, r := range w {
			if unicode.IsLetter(r) {
				letters++
				if unicode.IsUpper(r) {
					upper++
				}
			}
		}
		if letters >= 5 && upper == letters {
			return true
		}
	}
	return false
}

// Assembler picks phrases. It is safe for concurrent use.
type Assembler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns an assembler drawing from rng. A nil rng is seeded randomly.
func New(rng *rand.Rand) *Assembler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Assembler{rng: rng}
}

// NewSeeded returns an assembler with a deterministic phrase sequence.
func NewSeeded(seed uint64) *Assembler {
	return New(rand.New(rand.NewPCG(seed, seed)))
}

func (a *Assembler) pick(phrases []string) string {
	if len(phrases) == 0 {
		return ""
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return phrases[a.rng.IntN(len(phrases))]
}

// Wrap prefixes answer with an intro for tone.
func (a *Assembler) Wrap(answer string, tone Tone) string {
	phrases, ok := TonePhrases[tone]
	if !ok {
		phrases = TonePhrases[Neutral]
	}
	return a.pick(phrases) + " " + answer
}

// NoMatch returns a no-match phrase.
func (a *Assembler) NoMatch() string {
	return a.pick(NoMatchPhrases)
}

// Greeting returns a greeting phrase.
func (a *Assembler) Greeting() string {
	return a.pick(GreetingPhrases)
}

// SmallTalk returns the reply for a small-talk key, or a reassurance.
func (a *Assembler) SmallTalk(key string) string {
	if phrases, ok := SmallTalkReplies[key]; ok {
		return a.pick(phrases)
	}
	return a.pick(ReassurancePhrases)
}

// CourseInfo formats a course-code hit.
func CourseInfo(code, answer string) string {
	return fmt.Sprintf("Here's the info for %s: %s", code, answer)
}

// CourseNotFound formats a course-code miss.
func CourseNotFound(code string) string {
	return fmt.Sprintf("Sorry, I couldn't find details for %s.", code)
}
