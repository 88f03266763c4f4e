package analyze

import (
	"regexp"
	"strings"

	"github.com/poiesic/queryroute/core"
)

var (
	// Aggregation vocabulary that is unambiguous on its own.
	reAggregate = regexp.MustCompile(`\b(average|avg|mean|median|sum of|count of|how many|how much|compare|comparison|breakdown|group(?:ed)? by|per (?:vendor|supplier|customer|client|month|year|quarter|week|category|schema))\b`)

	// Weak aggregation vocabulary that needs a grouping cue ("... by X").
	reAggregateWeak = regexp.MustCompile(`\b(total|spending|spend|cost)\b.*\bby\s+\w+`)

	reQuestion   = regexp.MustCompile(`^(what|which|who|when|where)\b`)
	reSearchVerb = regexp.MustCompile(`^(find|show|search|list|display|fetch|get|give me|look up|lookup)\b`)

	reRecency = regexp.MustCompile(`\b(newest|latest|most recent|recently|recent)\b`)
)

// Auxiliaries and articles skipped between a question word and the field
// noun phrase, and verbs that terminate the phrase.
var (
	retrieveSkip = map[string]bool{
		"is": true, "are": true, "was": true, "were": true,
		"the": true, "a": true, "an": true, "its": true,
	}
	retrieveStop = map[string]bool{
		"is": true, "are": true, "was": true, "were": true,
		"mentioned": true, "listed": true, "stated": true, "shown": true,
		"given": true, "written": true, "used": true, "found": true,
		"on": true, "in": true, "for": true, "of": true, "here": true,
	}
	retrieveNoise = map[string]bool{
		"mentioned": true, "here": true, "there": true, "document": true,
	}
)

// intentMatch is the outcome of intent detection.
type intentMatch struct {
	intent      core.Intent
	specificity float64 // 1 for a high-specificity rule, 0 for the fallback
	consumed    []span
	// retrieveField is the canonical field a retrieve question asks for.
	retrieveField string
}

// detectIntent applies the ordered intent rule set from most to least
// specific: aggregation vocabulary, question-word field retrieval, search
// verbs, then the search fallback.
func detectIntent(text string, resolve fieldResolver) intentMatch {
	if m := reAggregate.FindStringIndex(text); m != nil {
		return intentMatch{
			intent:      core.IntentAggregate,
			specificity: 1,
			consumed:    []span{{m[0], m[1]}},
		}
	}
	if m := reAggregateWeak.FindStringIndex(text); m != nil {
		return intentMatch{
			intent:      core.IntentAggregate,
			specificity: 1,
			consumed:    []span{{m[0], m[1]}},
		}
	}

	if m := reQuestion.FindStringIndex(text); m != nil {
		if field, fieldSpan, ok := retrieveTarget(text, m[1], resolve); ok {
			// The question asks for the value of a known field: an
			// existence filter on that field, never a literal text match.
			return intentMatch{
				intent:        core.IntentRetrieve,
				specificity:   1,
				consumed:      []span{{m[0], m[1]}, fieldSpan},
				retrieveField: field,
			}
		}
	}

	if m := reSearchVerb.FindStringIndex(text); m != nil {
		return intentMatch{
			intent:      core.IntentSearch,
			specificity: 1,
			consumed:    []span{{m[0], m[1]}},
		}
	}

	return intentMatch{intent: core.IntentSearch, specificity: 0}
}

// retrieveTarget extracts the noun phrase a question asks about and
// resolves it against the catalog. Handles both "what is the X" and
// "what X is mentioned" shapes.
func retrieveTarget(text string, afterQuestion int, resolve fieldResolver) (string, span, bool) {
	tokens, spans := tokenSpans(text[afterQuestion:])

	// Skip auxiliaries and articles after the question word.
	start := 0
	for start < len(tokens) && retrieveSkip[tokens[start]] {
		start++
	}

	// Take tokens until a stopping verb or preposition.
	end := start
	for end < len(tokens) && !retrieveStop[tokens[end]] {
		end++
	}

	// Drop trailing noise like "mentioned here".
	for end > start && retrieveNoise[cleanToken(tokens[end-1])] {
		end--
	}

	if end == start {
		return "", span{}, false
	}

	cleaned := make([]string, 0, end-start)
	for _, token := range tokens[start:end] {
		if c := cleanToken(token); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	phrase := strings.Join(cleaned, " ")
	canonical, _, ok := resolve(phrase)
	if !ok {
		return "", span{}, false
	}

	fieldSpan := span{
		start: afterQuestion + spans[start].start,
		end:   afterQuestion + spans[end-1].end,
	}
	return canonical, fieldSpan, true
}

// suggestSort picks a sort order: explicit recency vocabulary wins, plain
// searches rank by relevance, everything else leaves ordering to the index.
func suggestSort(text string, intent core.Intent) core.SortOrder {
	if reRecency.MatchString(text) {
		return core.SortRecency
	}
	if intent == core.IntentSearch {
		return core.SortRelevance
	}
	return core.SortNone
}
