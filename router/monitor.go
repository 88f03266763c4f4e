package router

import "github.com/poiesic/queryroute/core"

// RouteMonitor provides hooks to observe the routing process.
// Implement this interface to track intermediate steps while a query moves
// through cache lookup, analysis, refinement, and execution.
type RouteMonitor interface {
	Start(text string, scope core.ScopeContext)
	CacheHit(entry *core.CachedQuery)
	CacheMiss()
	AfterAnalyze(draft core.QueryAnalysis)
	RefineSucceeded(analysis core.QueryAnalysis)
	RefineFailed(err error)
	SearchFailed(err error)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of RouteMonitor
type noopMonitor struct{}

var _ RouteMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.ScopeContext)  {}
func (n *noopMonitor) CacheHit(_ *core.CachedQuery)         {}
func (n *noopMonitor) CacheMiss()                           {}
func (n *noopMonitor) AfterAnalyze(_ core.QueryAnalysis)    {}
func (n *noopMonitor) RefineSucceeded(_ core.QueryAnalysis) {}
func (n *noopMonitor) RefineFailed(_ error)                 {}
func (n *noopMonitor) SearchFailed(_ error)                 {}
func (n *noopMonitor) Finish(_ *Result)                     {}
