// Package mock provides test double implementations of the refinement interfaces.
//
// This package contains a mock implementation of ai.Refiner for use in unit
// tests. The mock allows tests to run without an external language-model
// service and enables controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior (returns the draft, boosted)
//	refiner := mock.NewMockRefiner()
//	analysis, err := refiner.Refine(ctx, "invoices over $1000", scope, draft, fields)
//
//	// Custom behavior injection
//	refiner.RefineFunc = func(ctx context.Context, text string, scope core.ScopeContext, draft core.QueryAnalysis, fields []ai.FieldInfo) (core.QueryAnalysis, error) {
//	    return core.QueryAnalysis{}, ai.ErrRefinementUnavailable
//	}
//
//	// Check call counts
//	count := refiner.CallCount()
package mock
