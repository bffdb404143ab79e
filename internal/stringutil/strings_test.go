package stringutil

import "testing"

func TestDigitPredicates(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in           string
		numeric, has bool
	}{
		{"200", true, true},
		{"", false, false},
		{"2nd", false, true},
		{"csc101", false, true},
		{"1 2", false, true},
		{"before", false, false},
		{"٣", false, false}, // non-ASCII digit
	}
	for _, tt := range tests {
		if got := IsNumeric(tt.in); got != tt.numeric {
			t.Errorf("IsNumeric(%q) = %v, want %v", tt.in, got, tt.numeric)
		}
		if got := ContainsDigit(tt.in); got != tt.has {
			t.Errorf("ContainsDigit(%q) = %v, want %v", tt.in, got, tt.has)
		}
	}
}
