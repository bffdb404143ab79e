package catalog

import (
	"regexp"
	"strings"
)

var codePattern = regexp.MustCompile(`\b([a-z]{2,4})\s?(\d{3})\b`)

// codeStopwords are short words that commonly sit in front of a level or a
// count ("for 200 level", "year 300") and never start a course code.
var codeStopwords = map[string]struct{}{
	"for": {}, "in": {}, "the": {}, "of": {}, "to": {}, "at": {}, "on": {},
	"and": {}, "any": {}, "all": {}, "my": {}, "our": {}, "from": {}, "is": {},
	"are": {}, "lvl": {}, "sem": {}, "yr": {}, "year": {}, "what": {}, "with": {},
	"has": {}, "have": {}, "list": {}, "show": {}, "give": {}, "take": {}, "than": {},
	"over": {}, "into": {}, "only": {}, "just": {}, "like": {}, "do": {}, "does": {},
	"be": {}, "me": {}, "us": {}, "a": {}, "an": {}, "by": {}, "or": {}, "about": {},
}

// FindCode returns the first course code in normalized (lowercase) text,
// formatted as "CSC 101".
func FindCode(normalized string) (string, bool) {
	for _, m := range codePattern.FindAllStringSubmatch(normalized, -1) {
		if _, stop := codeStopwords[m[1]]; stop {
			continue
		}
		return strings.ToUpper(m[1]) + " " + m[2], true
	}
	return "", false
}

// IsCodePrefix reports whether word followed by next reads as a spaced course
// code such as "csc" "101".
func IsCodePrefix(word, next string) bool {
	if len(word) < 2 || len(word) > 4 || len(next) != 3 {
		return false
	}
	if _, stop := codeStopwords[word]; stop {
		return false
	}
	for _, r := range word {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	for _, r := range next {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
