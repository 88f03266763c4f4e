package catalog

import (
	"strings"
	"unicode"
)

// tokenize splits a field name into lowercase tokens. Separators are
// underscores, hyphens, dots, slashes and spaces; camelCase boundaries
// also split ("invoiceTotal" -> ["invoice", "total"]).
func tokenize(name string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	var prev rune
	for _, r := range name {
		switch {
		case r == '_' || r == '-' || r == '.' || r == '/' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush()
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
		prev = r
	}
	flush()

	return tokens
}

// tokenSet converts tokens into a set.
func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		set[tok] = true
	}
	return set
}

// joinTokens renders tokens space-separated, the form expected by
// word-level string similarity functions.
func joinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}

// overlapCoefficient computes |a ∩ b| / min(|a|, |b|) over token sets.
// Unlike Jaccard it does not penalize a short query phrase matched
// against a longer field name.
func overlapCoefficient(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for tok := range a {
		if b[tok] {
			shared++
		}
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(shared) / float64(smaller)
}
