package trivia

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
)

// fuzzyThreshold is the minimum similarity ratio for a near-miss answer to
// count as correct.
const fuzzyThreshold = 0.78

// minFuzzyLen keeps very short guesses from fuzzy-matching by accident.
const minFuzzyLen = 3

// Normalize lowercases a guess, strips punctuation and collapses runs of
// whitespace so "The  Eiffel Tower!" and "the eiffel tower" compare equal.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// IsMatch reports whether a guess matches any accepted answer. Matching is
// tried in order of strictness: exact after normalization, then substring
// containment either way, then a fuzzy similarity ratio.
func IsMatch(guess string, answers []string) bool {
	g := Normalize(guess)
	if g == "" {
		return false
	}
	for _, answer := range answers {
		a := Normalize(answer)
		if a == "" {
			continue
		}
		if g == a {
			return true
		}
		if strings.Contains(a, g) || strings.Contains(g, a) {
			return true
		}
		if len(g) >= minFuzzyLen && levenshtein.Similarity(g, a, nil) >= fuzzyThreshold {
			return true
		}
	}
	return false
}
