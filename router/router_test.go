package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/queryroute/ai"
	"github.com/poiesic/queryroute/ai/mock"
	"github.com/poiesic/queryroute/analyze"
	cachebadger "github.com/poiesic/queryroute/cache/badger"
	"github.com/poiesic/queryroute/catalog"
	"github.com/poiesic/queryroute/core"
	"github.com/poiesic/queryroute/schema"
	"github.com/poiesic/queryroute/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settableClock is a time source tests can move forward.
type settableClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *settableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *settableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// recordingExecutor captures every structured query it executes.
type recordingExecutor struct {
	mu      sync.Mutex
	inner   search.Executor
	queries []core.StructuredQuery
}

func (e *recordingExecutor) Execute(ctx context.Context, query core.StructuredQuery) (*search.Result, error) {
	e.mu.Lock()
	e.queries = append(e.queries, query)
	e.mu.Unlock()
	return e.inner.Execute(ctx, query)
}

func (e *recordingExecutor) recorded() []core.StructuredQuery {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]core.StructuredQuery, len(e.queries))
	copy(out, e.queries)
	return out
}

// failingExecutor always reports the backend as down.
type failingExecutor struct{}

func (failingExecutor) Execute(ctx context.Context, query core.StructuredQuery) (*search.Result, error) {
	return nil, errors.New("connection refused")
}

type fixture struct {
	router   *Router
	catalog  *catalog.Catalog
	cache    *cachebadger.Cache
	refiner  *mock.MockRefiner
	executor *recordingExecutor
	clock    *settableClock
}

func testSchemas() []core.Schema {
	return []core.Schema{
		{
			SchemaID: "invoices",
			Fields: []core.FieldDef{
				{Name: "total_amount", Type: core.FieldTypeNumber},
				{Name: "vendor_name", Type: core.FieldTypeText},
				{Name: "invoice_date", Type: core.FieldTypeDate},
				{Name: "payment_status", Type: core.FieldTypeText},
			},
		},
		{
			SchemaID: "receipts",
			Fields: []core.FieldDef{
				{Name: "amount", Type: core.FieldTypeNumber},
				{Name: "supplier", Type: core.FieldTypeText},
				{Name: "purchase_date", Type: core.FieldTypeDate},
			},
		},
		{
			SchemaID: "contracts",
			Fields: []core.FieldDef{
				{Name: "cloud_platform", Type: core.FieldTypeText},
				{Name: "counterparty", Type: core.FieldTypeText},
			},
		},
	}
}

func testDocuments() []search.Document {
	return []search.Document{
		{
			SchemaID: "invoices",
			ID:       "inv-001",
			Fields: map[string]any{
				"total_amount":   1500.0,
				"vendor_name":    "Acme Corp",
				"invoice_date":   time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC),
				"payment_status": "pending",
			},
		},
		{
			SchemaID: "invoices",
			ID:       "inv-002",
			Fields: map[string]any{
				"total_amount":   250.0,
				"vendor_name":    "Globex",
				"invoice_date":   time.Date(2025, 8, 2, 0, 0, 0, 0, time.UTC),
				"payment_status": "paid",
			},
		},
		{
			SchemaID: "receipts",
			ID:       "rec-001",
			Fields: map[string]any{
				"amount":        2200.0,
				"supplier":      "Acme Corp",
				"purchase_date": time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			SchemaID: "contracts",
			ID:       "con-001",
			Fields: map[string]any{
				"cloud_platform": "AWS",
				"counterparty":   "Initech",
			},
		},
	}
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	cat, err := catalog.NewCatalog(schema.NewStaticSource(testSchemas()...))
	require.NoError(t, err)
	require.NoError(t, cat.Rebuild(ctx))

	clock := &settableClock{t: time.Date(2025, 8, 14, 10, 0, 0, 0, time.UTC)}
	analyzer := analyze.NewAnalyzer(analyze.WithClock(clock.Now))

	queryCache, backend, err := cachebadger.NewMemoryCache()
	require.NoError(t, err)

	memory := search.NewMemoryExecutor()
	memory.AddDocuments(testDocuments()...)
	executor := &recordingExecutor{inner: memory}

	refiner := mock.NewMockRefiner()

	opts = append([]Option{
		WithRefiner(refiner),
		WithClock(clock.Now),
	}, opts...)
	r, err := NewRouter(cat, analyzer, queryCache, executor, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		r.Release()
		queryCache.Close()
		backend.Close()
	})

	return &fixture{
		router:   r,
		catalog:  cat,
		cache:    queryCache,
		refiner:  refiner,
		executor: executor,
		clock:    clock,
	}
}

func TestRouter_HighConfidenceSkipsRefinement(t *testing.T) {
	f := newFixture(t)

	result, err := f.router.Resolve(context.Background(), "invoices over $1000", core.ScopeContext{})
	require.NoError(t, err)

	assert.Equal(t, core.IntentSearch, result.Analysis.Intent)
	assert.Greater(t, result.Analysis.Confidence, 0.7)
	assert.False(t, result.UsedRefinement)
	assert.False(t, result.FromCache)
	assert.Equal(t, 0, f.refiner.CallCount())

	require.Equal(t, 1, result.Total)
	assert.Equal(t, "inv-001", result.Hits[0].DocumentID)
}

func TestRouter_ScopedRetrieve(t *testing.T) {
	f := newFixture(t)

	result, err := f.router.Resolve(context.Background(), "what cloud provider do we use?", core.ScopeContext{SchemaID: "contracts"})
	require.NoError(t, err)

	assert.Equal(t, core.IntentRetrieve, result.Analysis.Intent)
	require.Len(t, result.Analysis.Filters, 1)
	assert.Equal(t, "cloud_platform", result.Analysis.Filters[0].CanonicalField)
	assert.Equal(t, core.OpExists, result.Analysis.Filters[0].Operator)

	require.Equal(t, 1, result.Total)
	assert.Equal(t, "con-001", result.Hits[0].DocumentID)
}

func TestRouter_AggregateAlwaysRefines(t *testing.T) {
	f := newFixture(t)

	result, err := f.router.Resolve(context.Background(), "total spending by vendor last quarter", core.ScopeContext{})
	require.NoError(t, err)

	assert.Equal(t, core.IntentAggregate, result.Analysis.Intent)
	assert.True(t, result.UsedRefinement)
	assert.Equal(t, 1, f.refiner.CallCount())
}

func TestRouter_CacheRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.router.Resolve(ctx, "invoices over $1000", core.ScopeContext{})
	require.NoError(t, err)
	require.False(t, first.FromCache)

	second, err := f.router.Resolve(ctx, "invoices over $1000", core.ScopeContext{})
	require.NoError(t, err)

	assert.True(t, second.FromCache)
	assert.Equal(t, first.Analysis, second.Analysis)
	assert.Equal(t, first.UsedRefinement, second.UsedRefinement)
	assert.Equal(t, first.Hits, second.Hits)
	assert.Equal(t, 0, f.refiner.CallCount())

	n, err := f.cache.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRouter_RebuildDuringRefinementPinsCacheVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.refiner.RefineFunc = func(ctx context.Context, text string, scope core.ScopeContext, draft core.QueryAnalysis, fields []ai.FieldInfo) (core.QueryAnalysis, error) {
		// A schema change lands while this request is in flight.
		require.NoError(t, f.catalog.Rebuild(ctx))
		draft.Confidence = 0.95
		return draft, nil
	}

	first, err := f.router.Resolve(ctx, "total spending by vendor last quarter", core.ScopeContext{})
	require.NoError(t, err)
	require.True(t, first.UsedRefinement)
	assert.Equal(t, uint64(2), f.catalog.Version())

	// The analysis derives from the superseded snapshot, so its cache
	// entry stays under that snapshot's version and a resolve under the
	// rebuilt catalog starts from scratch instead of serving it.
	second, err := f.router.Resolve(ctx, "total spending by vendor last quarter", core.ScopeContext{})
	require.NoError(t, err)
	assert.False(t, second.FromCache)

	_, err = f.cache.Get(ctx, "total spending by vendor last quarter", core.ScopeContext{}, 1)
	assert.NoError(t, err, "entry should live under the version the request pinned")
}

func TestRouter_RefinerFailureDegradesToDraft(t *testing.T) {
	f := newFixture(t)
	f.refiner.RefineFunc = func(ctx context.Context, text string, scope core.ScopeContext, draft core.QueryAnalysis, fields []ai.FieldInfo) (core.QueryAnalysis, error) {
		return core.QueryAnalysis{}, ai.ErrRefinementUnavailable
	}

	snap := f.catalog.Snapshot()
	draft := analyze.NewAnalyzer(analyze.WithClock(f.clock.Now)).Analyze(snap, "total spending by vendor last quarter", core.ScopeContext{})

	result, err := f.router.Resolve(context.Background(), "total spending by vendor last quarter", core.ScopeContext{})
	require.NoError(t, err)

	assert.Equal(t, 1, f.refiner.CallCount())
	assert.False(t, result.UsedRefinement)
	assert.Equal(t, draft, result.Analysis)

	// The degraded resolution is still cached, marked unrefined.
	n, err := f.cache.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRouter_CancelledDuringRefine(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	f.refiner.RefineFunc = func(ctx context.Context, text string, scope core.ScopeContext, draft core.QueryAnalysis, fields []ai.FieldInfo) (core.QueryAnalysis, error) {
		cancel()
		<-ctx.Done()
		return core.QueryAnalysis{}, ctx.Err()
	}

	_, err := f.router.Resolve(ctx, "total spending by vendor last quarter", core.ScopeContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// Nothing executed, nothing cached.
	assert.Empty(t, f.executor.recorded())
	n, lenErr := f.cache.Len(context.Background())
	require.NoError(t, lenErr)
	assert.Equal(t, 0, n)
}

func TestRouter_SearchFailureSurfaces(t *testing.T) {
	cat, err := catalog.NewCatalog(schema.NewStaticSource(testSchemas()...))
	require.NoError(t, err)
	require.NoError(t, cat.Rebuild(context.Background()))

	queryCache, backend, err := cachebadger.NewMemoryCache()
	require.NoError(t, err)
	defer backend.Close()

	r, err := NewRouter(cat, analyze.NewAnalyzer(), queryCache, failingExecutor{})
	require.NoError(t, err)
	defer r.Release()

	_, err = r.Resolve(context.Background(), "invoices over $1000", core.ScopeContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, search.ErrSearchUnavailable)

	// Failed executions are not cached.
	n, lenErr := queryCache.Len(context.Background())
	require.NoError(t, lenErr)
	assert.Equal(t, 0, n)
}

func TestRouter_RelativePeriodsAnchorAtExecution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.router.Resolve(ctx, "invoices from last month", core.ScopeContext{})
	require.NoError(t, err)

	// Three weeks later the same cached analysis must cover a different
	// month.
	f.clock.Set(time.Date(2025, 9, 4, 10, 0, 0, 0, time.UTC))
	second, err := f.router.Resolve(ctx, "invoices from last month", core.ScopeContext{})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Analysis, second.Analysis)

	queries := f.executor.recorded()
	require.Len(t, queries, 2)

	firstBounds := dateBounds(t, queries[0])
	secondBounds := dateBounds(t, queries[1])
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), firstBounds.From)
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), secondBounds.From)
}

func dateBounds(t *testing.T, query core.StructuredQuery) core.FilterValue {
	t.Helper()
	for _, clause := range query.Filters {
		if clause.Value.Kind == core.ValueDateRange {
			return clause.Value
		}
	}
	t.Fatal("no date filter in query")
	return core.FilterValue{}
}

func TestRouter_ResolveAll(t *testing.T) {
	f := newFixture(t)

	requests := []Request{
		{Text: "invoices over $1000"},
		{Text: "what cloud provider do we use?", Scope: core.ScopeContext{SchemaID: "contracts"}},
		{Text: "pending invoices"},
	}

	results := f.router.ResolveAll(context.Background(), requests)
	require.Len(t, results, 3)

	for i, br := range results {
		require.NoError(t, br.Err, "request %d", i)
		require.NotNil(t, br.Result, "request %d", i)
	}
	assert.Equal(t, core.IntentSearch, results[0].Result.Analysis.Intent)
	assert.Equal(t, core.IntentRetrieve, results[1].Result.Analysis.Intent)
}

func TestNewRouter_RequiredArgs(t *testing.T) {
	cat, err := catalog.NewCatalog(schema.NewStaticSource(testSchemas()...))
	require.NoError(t, err)

	queryCache, backend, err := cachebadger.NewMemoryCache()
	require.NoError(t, err)
	defer backend.Close()

	analyzer := analyze.NewAnalyzer()
	executor := search.NewMemoryExecutor()

	_, err = NewRouter(nil, analyzer, queryCache, executor)
	assert.ErrorIs(t, err, ErrCatalogRequired)

	_, err = NewRouter(cat, nil, queryCache, executor)
	assert.ErrorIs(t, err, ErrAnalyzerRequired)

	_, err = NewRouter(cat, analyzer, nil, executor)
	assert.ErrorIs(t, err, ErrCacheRequired)

	_, err = NewRouter(cat, analyzer, queryCache, nil)
	assert.ErrorIs(t, err, ErrExecutorRequired)
}
