package router

import (
	"context"
	"sync"

	"github.com/poiesic/queryroute/core"
)

// Request is one query in a batch resolution.
type Request struct {
	Text  string
	Scope core.ScopeContext
}

// BatchResult pairs a request's result with its error. Exactly one of
// Result and Err is set.
type BatchResult struct {
	Result *Result
	Err    error
}

// ResolveAll resolves requests concurrently over the router's worker pool.
// Results are returned in request order regardless of completion order;
// one failed request never affects the others.
func (r *Router) ResolveAll(ctx context.Context, requests []Request) []BatchResult {
	results := make([]BatchResult, len(requests))

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		if err := r.pool.Submit(func() {
			defer wg.Done()
			result, err := r.Resolve(ctx, req.Text, req.Scope)
			results[i] = BatchResult{Result: result, Err: err}
		}); err != nil {
			results[i] = BatchResult{Err: err}
			wg.Done()
		}
	}
	wg.Wait()

	return results
}
