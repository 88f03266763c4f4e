package search

import (
	"context"

	"github.com/poiesic/queryroute/core"
)

// Hit is one matching document returned by an executor.
type Hit struct {
	SchemaID   string
	DocumentID string
	Fields     map[string]any
	Score      float64
}

// Result is the outcome of executing a structured query.
type Result struct {
	Hits  []Hit
	Total int
}

// Executor runs structured queries against a search backend.
// Implementations must be thread-safe for concurrent use.
type Executor interface {
	// Execute runs the query and returns matching documents.
	// Returns ErrSearchUnavailable (possibly wrapped) when the backend
	// cannot serve the request.
	Execute(ctx context.Context, query core.StructuredQuery) (*Result, error)
}
