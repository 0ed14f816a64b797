package search

import (
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// Tokenize turns raw query text into its canonical token set: lower-cased
// words with `-`, `_`, and whitespace treated as equivalent separators,
// punctuation stripped, duplicates collapsed preserving first-seen order.
// "error handling" and "error-handling" produce the same tokens.
func Tokenize(raw string) []string {
	fields := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return nil
	}
	return lo.Uniq(fields)
}

// tokenSet builds a membership set over the tokens of s, using the same
// normalization as Tokenize so that token-level matches line up.
func tokenSet(s string) map[string]struct{} {
	tokens := Tokenize(s)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}
