package dice

import (
	"strings"
	"unicode"
)

// signRewrites collapse chained sign operators; a double negative cancels.
var signRewrites = strings.NewReplacer(
	"--", "+",
	"++", "+",
	"-+", "-",
	"+-", "-",
)

// NormalizeSigns collapses chained '+' and '-' operators until a fixed point
// is reached, so "3d6--2" and "3d6++-2" both become "3d6+2" and "3d6-2".
//
// Postcondition: the result contains no two adjacent sign characters, and
// NormalizeSigns(NormalizeSigns(s)) == NormalizeSigns(s).
func NormalizeSigns(s string) string {
	for {
		next := signRewrites.Replace(s)
		if next == s {
			return s
		}
		s = next
	}
}

// preprocess strips all whitespace, lower-cases the text and normalizes
// chained sign operators.
func preprocess(text string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	return NormalizeSigns(strings.ToLower(stripped))
}

// splitSigned splits s on every '+' or '-', keeping the sign with the token
// that follows it: "4d6+2-1d4" → ["4d6", "+2", "-1d4"].
func splitSigned(s string) []string {
	var tokens []string
	start := 0
	for i := 1; i < len(s); i++ {
		if s[i] == '+' || s[i] == '-' {
			tokens = append(tokens, s[start:i])
			start = i
		}
	}
	if start < len(s) {
		tokens = append(tokens, s[start:])
	}
	return tokens
}
