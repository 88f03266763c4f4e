package search

import (
	"strings"
	"time"

	"github.com/poiesic/queryroute/analyze"
	"github.com/poiesic/queryroute/catalog"
	"github.com/poiesic/queryroute/core"
)

// BuildStructuredQuery translates an analysis into a search-engine-ready
// query. Canonical field names expand to the member fields of the schemas
// in scope, and relative date periods resolve to absolute bounds anchored
// at now. The result embeds scope values and must not be persisted.
func BuildStructuredQuery(snap *catalog.Snapshot, analysis core.QueryAnalysis, scope core.ScopeContext, now time.Time) core.StructuredQuery {
	query := core.StructuredQuery{
		SchemaID: scope.SchemaID,
		Sort:     analysis.SuggestedSort,
	}

	if len(analysis.MatchTerms) > 0 {
		query.Match = append(query.Match, core.MatchClause{
			Text: strings.Join(analysis.MatchTerms, " "),
		})
	}

	for _, f := range analysis.Filters {
		clause := core.FilterClause{
			Fields:   expandFields(snap, f, scope),
			Operator: f.Operator,
			Value:    anchorValue(f.Value, now),
		}
		query.Filters = append(query.Filters, clause)
	}

	return query
}

// expandFields maps a filter's canonical field to the concrete member
// fields visible in scope. Unresolved filters keep the raw field phrase.
func expandFields(snap *catalog.Snapshot, f core.Filter, scope core.ScopeContext) []string {
	if !f.Resolved() {
		return []string{f.Field}
	}

	var members []string
	if scope.Restricted() {
		members = snap.ExpandIn(f.CanonicalField, scope.SchemaID)
	} else {
		members = snap.Expand(f.CanonicalField)
	}
	if len(members) == 0 {
		return []string{f.CanonicalField}
	}
	return members
}

// anchorValue resolves a relative period to absolute bounds at execution
// time. Absolute values pass through unchanged.
func anchorValue(v core.FilterValue, now time.Time) core.FilterValue {
	if v.Kind != core.ValueDateRange || v.Period == core.PeriodNone {
		return v
	}
	from, to := analyze.PeriodBounds(v.Period, now)
	return core.FilterValue{
		Kind: core.ValueDateRange,
		From: from,
		To:   to,
	}
}
