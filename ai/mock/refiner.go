package mock

import (
	"context"

	"github.com/poiesic/queryroute/ai"
	"github.com/poiesic/queryroute/core"
)

// MockRefiner is a test double for ai.Refiner.
// It allows custom behavior injection via function fields.
type MockRefiner struct {
	// RefineFunc is called by Refine if set.
	// If nil, uses default behavior: return the draft with confidence 0.95.
	RefineFunc func(ctx context.Context, text string, scope core.ScopeContext, draft core.QueryAnalysis, fields []ai.FieldInfo) (core.QueryAnalysis, error)

	callCount int
}

var _ ai.Refiner = (*MockRefiner)(nil)

// NewMockRefiner creates a mock refiner with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockRefiner() *MockRefiner {
	return &MockRefiner{}
}

// Refine returns a refined analysis.
// Default behavior: echoes the draft back with confidence raised to 0.95.
func (m *MockRefiner) Refine(ctx context.Context, text string, scope core.ScopeContext, draft core.QueryAnalysis, fields []ai.FieldInfo) (core.QueryAnalysis, error) {
	m.callCount++

	if m.RefineFunc != nil {
		return m.RefineFunc(ctx, text, scope, draft, fields)
	}

	refined := draft
	refined.Confidence = 0.95
	return refined, nil
}

// CallCount returns the number of times Refine was called.
func (m *MockRefiner) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockRefiner) Reset() {
	m.callCount = 0
	m.RefineFunc = nil
}
