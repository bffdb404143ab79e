// Package stringutil holds the small string predicates and the fuzzy scorers
// shared by normalization and slot extraction.
package stringutil

import "strings"

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// IsNumeric reports whether s is non-empty and all ASCII digits.
func IsNumeric(s string) bool {
	return s != "" && strings.IndexFunc(s, func(r rune) bool { return !isDigit(r) }) < 0
}

// ContainsDigit reports whether s contains an ASCII digit.
func ContainsDigit(s string) bool {
	return strings.ContainsFunc(s, isDigit)
}
