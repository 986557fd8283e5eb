package classifier

import (
	"regexp"
	"strings"
)

// tokenPattern selects runs of two or more word characters.
// Unicode letters and digits count as word characters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Tokenize lower-cases s and returns its tokens in order of appearance.
// Tokens may repeat.
func Tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

// countTokens returns token frequencies for s.
func countTokens(s string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range Tokenize(s) {
		counts[tok]++
	}
	return counts
}
