package analyze

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/queryroute/core"
)

const number = `\$?\s?(\d[\d,]*(?:\.\d+)?)([km])?\b`

var (
	reBetween = regexp.MustCompile(`\b(?:between|ranging from)\s+` + number + `\s+(?:and|to)\s+` + number)
	reGte     = regexp.MustCompile(`\b(?:over|above|more than|greater than|at least|exceeding|minimum(?: of)?)\s+` + number)
	reLte     = regexp.MustCompile(`\b(?:under|below|less than|at most|up to|no more than|maximum(?: of)?)\s+` + number)
)

// Status vocabulary recognized as equality filters. Kept to unambiguous
// document-state words; anything subtler is refinement territory.
var statusWords = map[string]bool{
	"paid": true, "unpaid": true, "pending": true, "overdue": true,
	"approved": true, "rejected": true, "draft": true, "open": true,
	"closed": true, "active": true, "expired": true, "cancelled": true,
	"completed": true, "signed": true,
}

// extractNumericFilters finds numeric comparison phrases and produces
// range/gte/lte filters. The implied field is the word immediately before
// the comparator when it resolves to a numeric catalog field; otherwise
// the comparison is assumed to be about the document amount.
func extractNumericFilters(text string, resolve fieldResolver, consumed *[]span) []core.Filter {
	var filters []core.Filter

	emit := func(s span, op core.Operator, value core.FilterValue) {
		if consumedIn(s, *consumed) {
			return
		}
		*consumed = append(*consumed, s)
		field := impliedNumericField(text, s.start, resolve)
		filters = append(filters, core.Filter{
			Field:    field,
			Operator: op,
			Value:    value,
		})
	}

	for _, m := range reBetween.FindAllStringSubmatchIndex(text, -1) {
		low := parseNumber(submatch(text, m, 1), submatch(text, m, 2))
		high := parseNumber(submatch(text, m, 3), submatch(text, m, 4))
		if high < low {
			low, high = high, low
		}
		emit(span{m[0], m[1]}, core.OpRange, core.FilterValue{
			Kind:        core.ValueNumber,
			Number:      low,
			UpperNumber: high,
		})
	}

	for _, m := range reGte.FindAllStringSubmatchIndex(text, -1) {
		emit(span{m[0], m[1]}, core.OpGte, core.FilterValue{
			Kind:   core.ValueNumber,
			Number: parseNumber(submatch(text, m, 1), submatch(text, m, 2)),
		})
	}

	for _, m := range reLte.FindAllStringSubmatchIndex(text, -1) {
		emit(span{m[0], m[1]}, core.OpLte, core.FilterValue{
			Kind:   core.ValueNumber,
			Number: parseNumber(submatch(text, m, 1), submatch(text, m, 2)),
		})
	}

	return filters
}

// extractStatusFilters finds status vocabulary and produces equality
// filters on the status concept.
func extractStatusFilters(text string, consumed *[]span) []core.Filter {
	var filters []core.Filter

	tokens, spans := tokenSpans(text)
	for i, token := range tokens {
		cleaned := cleanToken(token)
		if !statusWords[cleaned] || consumedIn(spans[i], *consumed) {
			continue
		}
		*consumed = append(*consumed, spans[i])
		filters = append(filters, core.Filter{
			Field:    "status",
			Operator: core.OpEq,
			Value: core.FilterValue{
				Kind: core.ValueText,
				Text: cleaned,
			},
		})
	}

	return filters
}

// impliedNumericField inspects the word before a comparator. It names the
// filter field when it resolves to a numeric catalog field ("quantity over
// 5"); comparisons with no usable antecedent are about money ("invoices
// over $1000").
func impliedNumericField(text string, comparatorStart int, resolve fieldResolver) string {
	before := strings.Fields(strings.TrimSpace(text[:comparatorStart]))
	if len(before) > 0 {
		candidate := cleanToken(before[len(before)-1])
		if candidate != "" && !stopWords[candidate] {
			if _, fieldType, ok := resolve(candidate); ok && fieldType == core.FieldTypeNumber {
				return candidate
			}
		}
	}
	return "amount"
}

// parseNumber parses a numeric literal with optional thousands commas and
// an optional magnitude suffix ("5k" = 5000, "2m" = 2000000).
func parseNumber(s, suffix string) float64 {
	n, _ := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	switch suffix {
	case "k":
		n *= 1e3
	case "m":
		n *= 1e6
	}
	return n
}

// submatch returns capture group i of a FindAllStringSubmatchIndex match,
// or "" when the group did not participate.
func submatch(text string, m []int, i int) string {
	if m[2*i] < 0 {
		return ""
	}
	return text[m[2*i]:m[2*i+1]]
}
