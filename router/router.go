// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package router orchestrates query resolution: cache lookup, heuristic
// analysis, optional language-model refinement, search execution, and
// cache write-back.
//
// The flow for each query is fixed: a cache hit skips straight to
// execution; a miss runs the analyzer, refines when the draft is weak or
// the intent is an aggregation, executes, and caches the outcome.
// Refinement is strictly best-effort: any refiner error degrades to the
// heuristic draft, and only request cancellation aborts the query.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/queryroute/ai"
	"github.com/poiesic/queryroute/analyze"
	"github.com/poiesic/queryroute/cache"
	"github.com/poiesic/queryroute/catalog"
	"github.com/poiesic/queryroute/core"
	"github.com/poiesic/queryroute/search"
)

const (
	// defaultConfidenceThreshold is the confidence below which a draft
	// analysis is sent to the refiner.
	defaultConfidenceThreshold = 0.65

	// defaultRefineTimeout bounds a single refinement call.
	defaultRefineTimeout = 10 * time.Second
)

// Result is the outcome of resolving one query.
type Result struct {
	Analysis       core.QueryAnalysis
	Hits           []search.Hit
	Total          int
	UsedRefinement bool
	FromCache      bool
}

// Router resolves natural-language queries end to end.
type Router struct {
	catalog  *catalog.Catalog
	analyzer *analyze.Analyzer
	cache    cache.QueryCache
	refiner  ai.Refiner
	executor search.Executor

	threshold     float64
	refineTimeout time.Duration
	clock         func() time.Time
	monitor       RouteMonitor
	logger        *slog.Logger
	pool          *ants.Pool
}

// Option configures a Router.
type Option func(*Router) error

// WithRefiner sets the language-model refiner. Without one, low-confidence
// drafts execute as-is.
func WithRefiner(refiner ai.Refiner) Option {
	return func(r *Router) error {
		r.refiner = refiner
		return nil
	}
}

// WithConfidenceThreshold sets the confidence below which drafts are
// refined. Must be in [0,1].
func WithConfidenceThreshold(threshold float64) Option {
	return func(r *Router) error {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("confidence threshold %v outside [0,1]", threshold)
		}
		r.threshold = threshold
		return nil
	}
}

// WithRefineTimeout bounds each refinement call.
func WithRefineTimeout(timeout time.Duration) Option {
	return func(r *Router) error {
		if timeout > 0 {
			r.refineTimeout = timeout
		}
		return nil
	}
}

// WithMonitor sets the route monitor.
func WithMonitor(monitor RouteMonitor) Option {
	return func(r *Router) error {
		if monitor != nil {
			r.monitor = monitor
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithPoolSize sets the worker pool size for batch resolution.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(r *Router) error {
		if size < 1 {
			size = 1
		}
		if r.pool != nil {
			r.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		r.pool = pool
		return nil
	}
}

// WithClock overrides the time source used to anchor relative date
// filters. Used in tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Router) error {
		if clock != nil {
			r.clock = clock
		}
		return nil
	}
}

// NewRouter creates a query router.
func NewRouter(
	cat *catalog.Catalog,
	analyzer *analyze.Analyzer,
	queryCache cache.QueryCache,
	executor search.Executor,
	opts ...Option,
) (*Router, error) {
	if cat == nil {
		return nil, ErrCatalogRequired
	}
	if analyzer == nil {
		return nil, ErrAnalyzerRequired
	}
	if queryCache == nil {
		return nil, ErrCacheRequired
	}
	if executor == nil {
		return nil, ErrExecutorRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	r := &Router{
		catalog:       cat,
		analyzer:      analyzer,
		cache:         queryCache,
		executor:      executor,
		threshold:     defaultConfidenceThreshold,
		refineTimeout: defaultRefineTimeout,
		clock:         time.Now,
		monitor:       &noopMonitor{},
		logger:        slog.Default(),
		pool:          pool,
	}

	for _, opt := range opts {
		if optErr := opt(r); optErr != nil {
			r.Release()
			return nil, optErr
		}
	}
	return r, nil
}

// Release releases resources including the batch worker pool.
// The router should not be used after calling Release.
func (r *Router) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

// Resolve runs one query through the full pipeline and returns the
// executed result.
func (r *Router) Resolve(ctx context.Context, text string, scope core.ScopeContext) (*Result, error) {
	r.monitor.Start(text, scope)

	snap := r.catalog.Snapshot()

	analysis, usedRefinement, fromCache, err := r.analysisFor(ctx, snap, text, scope)
	if err != nil {
		return nil, err
	}

	query := search.BuildStructuredQuery(snap, analysis, scope, r.clock())
	searchResult, err := r.executor.Execute(ctx, query)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		r.monitor.SearchFailed(err)
		if errors.Is(err, search.ErrSearchUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", search.ErrSearchUnavailable, err)
	}

	if !fromCache {
		// Write under the version of the snapshot this analysis was
		// derived from. A rebuild landing mid-request must not let a
		// superseded analysis surface under the new version's key.
		if _, putErr := r.cache.Put(ctx, text, scope, snap.Version(), analysis, usedRefinement); putErr != nil {
			// Cache failures degrade; the query already succeeded.
			r.logger.Warn("cache write failed", "err", putErr)
		}
	}

	result := &Result{
		Analysis:       analysis,
		Hits:           searchResult.Hits,
		Total:          searchResult.Total,
		UsedRefinement: usedRefinement,
		FromCache:      fromCache,
	}
	r.monitor.Finish(result)
	return result, nil
}

// analysisFor produces the analysis to execute: from cache on a hit, or
// fresh (with optional refinement) on a miss.
func (r *Router) analysisFor(ctx context.Context, snap *catalog.Snapshot, text string, scope core.ScopeContext) (core.QueryAnalysis, bool, bool, error) {
	entry, err := r.cache.Get(ctx, text, scope, snap.Version())
	if err == nil {
		r.monitor.CacheHit(entry)
		return entry.Analysis, entry.UsedRefinement, true, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return core.QueryAnalysis{}, false, false, err
		}
		// A broken cache must not take queries down with it.
		r.logger.Warn("cache lookup failed", "err", err)
	}
	r.monitor.CacheMiss()

	draft := r.analyzer.Analyze(snap, text, scope)
	r.monitor.AfterAnalyze(draft)

	if !r.shouldRefine(draft) {
		return draft, false, false, nil
	}

	refined, err := r.refine(ctx, text, scope, draft, snap)
	if err != nil {
		if ctx.Err() != nil {
			// The request itself is gone; don't execute against a
			// half-finished analysis.
			return core.QueryAnalysis{}, false, false, ctx.Err()
		}
		r.monitor.RefineFailed(err)
		r.logger.Warn("refinement failed, using draft analysis", "err", err, "confidence", draft.Confidence)
		return draft, false, false, nil
	}

	r.monitor.RefineSucceeded(refined)
	return refined, true, false, nil
}

// shouldRefine applies the routing rule: aggregations always refine,
// everything else refines only below the confidence threshold.
func (r *Router) shouldRefine(draft core.QueryAnalysis) bool {
	if r.refiner == nil {
		return false
	}
	if draft.Intent == core.IntentAggregate {
		return true
	}
	return draft.Confidence < r.threshold
}

func (r *Router) refine(ctx context.Context, text string, scope core.ScopeContext, draft core.QueryAnalysis, snap *catalog.Snapshot) (core.QueryAnalysis, error) {
	refineCtx, cancel := context.WithTimeout(ctx, r.refineTimeout)
	defer cancel()
	return r.refiner.Refine(refineCtx, text, scope, draft, fieldVocabulary(snap))
}

// fieldVocabulary lists the catalog's canonical fields for the refiner.
func fieldVocabulary(snap *catalog.Snapshot) []ai.FieldInfo {
	names := snap.CanonicalNames()
	fields := make([]ai.FieldInfo, 0, len(names))
	for _, name := range names {
		fieldType, ok := snap.TypeOf(name)
		if !ok {
			fieldType = core.FieldTypeText
		}
		fields = append(fields, ai.FieldInfo{Name: name, Type: fieldType})
	}
	return fields
}
