package cache

import (
	"context"

	"github.com/poiesic/queryroute/core"
)

// QueryCache provides durable storage for resolved query analyses.
// Implementations must be thread-safe; reads of different keys must not
// block each other.
//
// Every operation takes the catalog version the caller's analysis was
// derived from. The version is folded into the key, so callers must pass
// the version of the snapshot they pinned for the request, not whatever
// the catalog currently publishes; entries written under an old catalog
// are unreachable after a rebuild and age out through eviction.
type QueryCache interface {
	// Get looks up the entry for a query under the given scope and
	// catalog version. A hit increments HitCount and refreshes the
	// recency ordering atomically with respect to concurrent readers.
	// Returns ErrNotFound on a miss.
	Get(ctx context.Context, text string, scope core.ScopeContext, version uint64) (*core.CachedQuery, error)

	// Put stores the analysis for a query under the given scope and
	// catalog version, recording whether refinement produced it. An
	// existing entry for the same key is overwritten. When the
	// configured capacity is exceeded, least-recently-used entries are
	// evicted. Returns the stored entry.
	Put(ctx context.Context, text string, scope core.ScopeContext, version uint64, analysis core.QueryAnalysis, usedRefinement bool) (*core.CachedQuery, error)

	// Len returns the number of live entries.
	Len(ctx context.Context) (int, error)

	// Close releases resources held by the cache.
	Close() error
}
