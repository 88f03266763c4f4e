package schema

import (
	"context"

	"github.com/poiesic/queryroute/core"
)

// Source supplies the current set of document schemas.
// Implementations must be safe for concurrent use.
type Source interface {
	// ListSchemas returns all document schemas with their declared fields.
	// The returned slice is a fresh copy owned by the caller.
	ListSchemas(ctx context.Context) ([]core.Schema, error)
}

// StaticSource is a Source backed by a fixed in-memory schema set.
// Useful for tests and for embedding the engine without a schema service.
type StaticSource struct {
	schemas []core.Schema
}

var _ Source = (*StaticSource)(nil)

// NewStaticSource creates a StaticSource from the given schemas.
func NewStaticSource(schemas ...core.Schema) *StaticSource {
	return &StaticSource{schemas: schemas}
}

// ListSchemas returns a copy of the configured schemas.
func (s *StaticSource) ListSchemas(ctx context.Context) ([]core.Schema, error) {
	out := make([]core.Schema, len(s.schemas))
	copy(out, s.schemas)
	return out, nil
}
