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

// Package queryroute turns natural-language questions about document
// collections into executable structured queries, caching resolved query
// shapes and falling back to a language model only when heuristic
// analysis is not confident.
package queryroute

import (
	"context"
	"log/slog"

	"github.com/poiesic/queryroute/ai"
	"github.com/poiesic/queryroute/ai/openai"
	"github.com/poiesic/queryroute/analyze"
	"github.com/poiesic/queryroute/cache"
	cachebadger "github.com/poiesic/queryroute/cache/badger"
	"github.com/poiesic/queryroute/catalog"
	"github.com/poiesic/queryroute/core"
	"github.com/poiesic/queryroute/router"
	"github.com/poiesic/queryroute/schema"
	"github.com/poiesic/queryroute/search"
)

// Engine bundles the field catalog, analyzer, cache, refiner, and router
// behind one construction and lifecycle.
type Engine struct {
	backend  *cachebadger.Backend
	catalog  *catalog.Catalog
	cache    cache.QueryCache
	router   *router.Router
	executor search.Executor
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig      *ai.Config
	noRefinement  bool
	executor      search.Executor
	inMemory      bool
	cacheCapacity int
	routerOpts    []router.Option
}

// WithAIConfig sets the refinement service configuration.
func WithAIConfig(cfg *ai.Config) EngineOption {
	return func(o *engineOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithoutRefinement disables the language-model fallback entirely.
// Low-confidence analyses execute as-is.
func WithoutRefinement() EngineOption {
	return func(o *engineOptions) {
		o.noRefinement = true
	}
}

// WithExecutor sets the search backend. Defaults to an empty in-memory
// executor, which is only useful for tests and demos.
func WithExecutor(executor search.Executor) EngineOption {
	return func(o *engineOptions) {
		if executor != nil {
			o.executor = executor
		}
	}
}

// WithInMemory keeps the query cache in memory instead of on disk.
func WithInMemory() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithCacheCapacity bounds the number of cached query shapes.
func WithCacheCapacity(n int) EngineOption {
	return func(o *engineOptions) {
		o.cacheCapacity = n
	}
}

// WithRouterOptions forwards options to the underlying router.
func WithRouterOptions(opts ...router.Option) EngineOption {
	return func(o *engineOptions) {
		o.routerOpts = append(o.routerOpts, opts...)
	}
}

// NewEngine creates an engine storing its query cache at filePath and
// building its field catalog from the given schema source. The catalog is
// built once during construction; call RebuildCatalog after schema
// changes.
func NewEngine(ctx context.Context, filePath string, source schema.Source, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	cat, err := catalog.NewCatalog(source)
	if err != nil {
		return nil, err
	}
	if err := cat.Rebuild(ctx); err != nil {
		return nil, err
	}

	backend, err := cachebadger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	var cacheOpts []cachebadger.Option
	if options.cacheCapacity > 0 {
		cacheOpts = append(cacheOpts, cachebadger.WithCapacity(options.cacheCapacity))
	}
	queryCache, err := cachebadger.NewCache(backend, cacheOpts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	executor := options.executor
	if executor == nil {
		executor = search.NewMemoryExecutor()
	}

	routerOpts := options.routerOpts
	if !options.noRefinement {
		refiner, err := openai.NewRefiner(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
		routerOpts = append([]router.Option{router.WithRefiner(refiner)}, routerOpts...)
	}

	rt, err := router.NewRouter(cat, analyze.NewAnalyzer(), queryCache, executor, routerOpts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Engine{
		backend:  backend,
		catalog:  cat,
		cache:    queryCache,
		router:   rt,
		executor: executor,
		logger:   slog.Default(),
	}, nil
}

// Close releases the engine's resources.
func (e *Engine) Close() error {
	e.router.Release()

	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing cache backend", "err", err)
		return err
	}
	return nil
}

// Resolve answers one natural-language query.
func (e *Engine) Resolve(ctx context.Context, text string, scope core.ScopeContext) (*router.Result, error) {
	return e.router.Resolve(ctx, text, scope)
}

// ResolveAll answers a batch of queries concurrently, preserving request
// order.
func (e *Engine) ResolveAll(ctx context.Context, requests []router.Request) []router.BatchResult {
	return e.router.ResolveAll(ctx, requests)
}

// RebuildCatalog re-reads the schema source and atomically publishes a new
// field catalog snapshot. In-flight queries keep the snapshot they
// started with; cached entries keyed to the old version become
// unreachable.
func (e *Engine) RebuildCatalog(ctx context.Context) error {
	return e.catalog.Rebuild(ctx)
}

// CatalogVersion returns the currently published catalog version.
func (e *Engine) CatalogVersion() uint64 {
	return e.catalog.Version()
}

// CacheLen returns the number of cached query shapes, including entries
// keyed to superseded catalog versions.
func (e *Engine) CacheLen(ctx context.Context) (int, error) {
	return e.cache.Len(ctx)
}

// Catalog exposes the field catalog for canonicalization lookups.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}
