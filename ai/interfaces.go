package ai

import (
	"context"

	"github.com/poiesic/queryroute/core"
)

// Refiner improves a low-confidence query analysis using a language model.
// Implementations must be thread-safe for concurrent use.
type Refiner interface {
	// Refine re-analyzes the query text given the heuristic draft and the
	// canonical field vocabulary. The returned analysis replaces the draft
	// only when refinement succeeds; callers fall back to the draft on
	// error. Field names outside the supplied vocabulary must not appear
	// in the result.
	Refine(ctx context.Context, text string, scope core.ScopeContext, draft core.QueryAnalysis, fields []FieldInfo) (core.QueryAnalysis, error)
}

// FieldInfo is one entry of the canonical field vocabulary handed to a
// refiner.
type FieldInfo struct {
	// Name is the canonical field name from the catalog.
	Name string

	// Type is the field's declared value type.
	Type core.FieldType
}
