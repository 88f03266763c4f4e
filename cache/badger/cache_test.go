package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/queryroute/cache"
	"github.com/poiesic/queryroute/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock advances one second per call so recency ordering is
// deterministic.
type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()

	clk := &stepClock{t: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clk.Now)}, opts...)

	c, backend, err := NewMemoryCache(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close()
		backend.Close()
	})
	return c
}

func searchAnalysis(confidence float64) core.QueryAnalysis {
	return core.QueryAnalysis{
		Intent: core.IntentSearch,
		Filters: []core.Filter{
			{
				Field:          "amount",
				CanonicalField: "amount",
				Operator:       core.OpGte,
				Value:          core.FilterValue{Kind: core.ValueNumber, Number: 1000},
			},
		},
		MatchTerms: []string{"invoices"},
		Confidence: confidence,
	}
}

func TestCache_PutGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	scope := core.ScopeContext{}

	stored, err := c.Put(ctx, "invoices over $1000", scope, 1, searchAnalysis(0.8), false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stored.HitCount)
	assert.Equal(t, "invoices over $1000", stored.OriginalText)
	assert.False(t, stored.UsedRefinement)
	assert.False(t, stored.InsertedAt.IsZero())

	got, err := c.Get(ctx, "invoices over $1000", scope, 1)
	require.NoError(t, err)
	assert.Equal(t, stored.QueryHash, got.QueryHash)
	assert.Equal(t, stored.Analysis, got.Analysis)
	assert.Equal(t, uint64(2), got.HitCount)
	assert.True(t, got.LastUsedAt.After(stored.LastUsedAt))
}

func TestCache_Get_Miss(t *testing.T) {
	c := newTestCache(t)

	_, err := c.Get(context.Background(), "never seen before", core.ScopeContext{}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestCache_HitCountIncrements(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	scope := core.ScopeContext{}

	_, err := c.Put(ctx, "pending invoices", scope, 1, searchAnalysis(0.75), false)
	require.NoError(t, err)

	var last *core.CachedQuery
	for i := 0; i < 3; i++ {
		last, err = c.Get(ctx, "pending invoices", scope, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(4), last.HitCount)
}

func TestCache_NormalizationSharesEntry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	scope := core.ScopeContext{}

	_, err := c.Put(ctx, "invoices over $1000", scope, 1, searchAnalysis(0.8), false)
	require.NoError(t, err)

	// Case and whitespace differences hash to the same entry.
	got, err := c.Get(ctx, "  Invoices   OVER $1000 ", scope, 1)
	require.NoError(t, err)
	assert.Equal(t, "invoices over $1000", got.OriginalText)
	assert.Equal(t, uint64(2), got.HitCount)
}

func TestCache_VersionInvalidates(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	scope := core.ScopeContext{}

	_, err := c.Put(ctx, "invoices over $1000", scope, 1, searchAnalysis(0.8), false)
	require.NoError(t, err)

	_, err = c.Get(ctx, "invoices over $1000", scope, 1)
	require.NoError(t, err)

	// A catalog rebuild bumps the version; old entries become unreachable.
	_, err = c.Get(ctx, "invoices over $1000", scope, 2)
	assert.ErrorIs(t, err, cache.ErrNotFound)

	// Writing under the new version coexists with the stale entry.
	_, err = c.Put(ctx, "invoices over $1000", scope, 2, searchAnalysis(0.85), false)
	require.NoError(t, err)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCache_VersionPinnedAcrossRebuild(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	scope := core.ScopeContext{}

	// A write carrying a request's pinned version lands under that
	// version's key even when the catalog has already moved on, so a
	// reader under the new version never sees the superseded analysis.
	_, err := c.Put(ctx, "invoices over $1000", scope, 1, searchAnalysis(0.8), false)
	require.NoError(t, err)

	_, err = c.Get(ctx, "invoices over $1000", scope, 2)
	assert.ErrorIs(t, err, cache.ErrNotFound)

	got, err := c.Get(ctx, "invoices over $1000", scope, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, got.Analysis.Confidence, 1e-9)
}

func TestCache_ScopeSeparation(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	global := core.ScopeContext{}
	scoped := core.ScopeContext{SchemaID: "contracts"}

	_, err := c.Put(ctx, "what cloud provider do we use", global, 1, searchAnalysis(0.6), false)
	require.NoError(t, err)
	_, err = c.Put(ctx, "what cloud provider do we use", scoped, 1, searchAnalysis(0.7), true)
	require.NoError(t, err)

	got, err := c.Get(ctx, "what cloud provider do we use", scoped, 1)
	require.NoError(t, err)
	assert.True(t, got.UsedRefinement)
	assert.InDelta(t, 0.7, got.Analysis.Confidence, 1e-9)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCache_OverwriteResetsEntry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	scope := core.ScopeContext{}

	_, err := c.Put(ctx, "invoices over $1000", scope, 1, searchAnalysis(0.6), false)
	require.NoError(t, err)
	_, err = c.Get(ctx, "invoices over $1000", scope, 1)
	require.NoError(t, err)

	stored, err := c.Put(ctx, "invoices over $1000", scope, 1, searchAnalysis(0.9), true)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stored.HitCount)
	assert.True(t, stored.UsedRefinement)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCache_LRUEviction(t *testing.T) {
	c := newTestCache(t, WithCapacity(3))
	ctx := context.Background()
	scope := core.ScopeContext{}

	for _, text := range []string{"query a", "query b", "query c"} {
		_, err := c.Put(ctx, text, scope, 1, searchAnalysis(0.8), false)
		require.NoError(t, err)
	}

	// Touch "query a" so "query b" becomes the least recently used.
	_, err := c.Get(ctx, "query a", scope, 1)
	require.NoError(t, err)

	_, err = c.Put(ctx, "query d", scope, 1, searchAnalysis(0.8), false)
	require.NoError(t, err)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = c.Get(ctx, "query b", scope, 1)
	assert.ErrorIs(t, err, cache.ErrNotFound)

	for _, text := range []string{"query a", "query c", "query d"} {
		_, err := c.Get(ctx, text, scope, 1)
		assert.NoError(t, err, "expected %q to survive eviction", text)
	}
}

func TestCache_Closed(t *testing.T) {
	c, backend, err := NewMemoryCache()
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	_, err = c.Get(context.Background(), "anything", core.ScopeContext{}, 1)
	assert.ErrorIs(t, err, cache.ErrCacheClosed)

	_, err = c.Put(context.Background(), "anything", core.ScopeContext{}, 1, searchAnalysis(0.5), false)
	assert.ErrorIs(t, err, cache.ErrCacheClosed)

	_, err = c.Len(context.Background())
	assert.ErrorIs(t, err, cache.ErrCacheClosed)
}

func TestNewCache_Validation(t *testing.T) {
	_, err := NewCache(nil)
	assert.ErrorIs(t, err, cache.ErrBackendRequired)
}
