package analyze

import "strings"

// Stop words excluded from coverage scoring and match terms. Extends the
// usual function-word list with question words and auxiliaries that the
// intent rules consume structurally.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "were": true, "to": true, "of": true, "and": true, "in": true,
	"that": true, "have": true, "it": true, "for": true, "not": true, "on": true,
	"with": true, "as": true, "you": true, "do": true, "at": true, "this": true,
	"but": true, "by": true, "from": true, "me": true, "my": true, "all": true,
	"any": true, "what": true, "which": true, "who": true, "when": true,
	"where": true, "how": true, "here": true, "there": true,
}

// span is a half-open byte range [start, end) within the normalized text.
type span struct {
	start int
	end   int
}

func (s span) overlaps(other span) bool {
	return s.start < other.end && other.start < s.end
}

// tokenSpans returns the whitespace-delimited tokens of text together with
// their byte offsets.
func tokenSpans(text string) ([]string, []span) {
	var tokens []string
	var spans []span

	start := -1
	for i, r := range text {
		if r == ' ' || r == '\t' || r == '\n' {
			if start >= 0 {
				tokens = append(tokens, text[start:i])
				spans = append(spans, span{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, text[start:])
		spans = append(spans, span{start, len(text)})
	}

	return tokens, spans
}

// cleanToken trims punctuation and lowercases a token.
func cleanToken(token string) string {
	return strings.ToLower(strings.Trim(token, ".,!?;:'\"-()[]{}$"))
}

// consumedIn reports whether a token span intersects any consumed span.
func consumedIn(s span, consumed []span) bool {
	for _, c := range consumed {
		if s.overlaps(c) {
			return true
		}
	}
	return false
}

// patternCoverage computes the fraction of significant (non-stop-word)
// tokens of text that fall inside consumed spans. Returns 0 when the text
// has no significant tokens.
func patternCoverage(text string, consumed []span) float64 {
	tokens, spans := tokenSpans(text)
	significant, covered := 0, 0
	for i, token := range tokens {
		cleaned := cleanToken(token)
		if cleaned == "" || stopWords[cleaned] {
			continue
		}
		significant++
		if consumedIn(spans[i], consumed) {
			covered++
		}
	}
	if significant == 0 {
		return 0
	}
	return float64(covered) / float64(significant)
}

// residualTerms returns the significant tokens of text not covered by any
// consumed span, cleaned and in order. These become free-text match terms.
func residualTerms(text string, consumed []span) []string {
	tokens, spans := tokenSpans(text)
	var terms []string
	for i, token := range tokens {
		cleaned := cleanToken(token)
		if cleaned == "" || stopWords[cleaned] {
			continue
		}
		if consumedIn(spans[i], consumed) {
			continue
		}
		terms = append(terms, cleaned)
	}
	return terms
}
