package router

import (
	"github.com/poiesic/queryroute/core"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a RouteMonitor that exports routing counters to Prometheus.
// Register it with WithMonitor to observe cache effectiveness, refinement
// rates, and search health in production.
type Metrics struct {
	queries            prometheus.Counter
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	refinements        prometheus.Counter
	refinementFailures prometheus.Counter
	searchFailures     prometheus.Counter
	confidence         prometheus.Histogram
}

var _ RouteMonitor = (*Metrics)(nil)

// MetricsOption configures a Metrics monitor.
type MetricsOption func(*metricsConfig)

type metricsConfig struct {
	registerer prometheus.Registerer
}

// WithRegisterer registers the metrics with a custom registerer instead of
// the Prometheus default.
func WithRegisterer(r prometheus.Registerer) MetricsOption {
	return func(c *metricsConfig) {
		if r != nil {
			c.registerer = r
		}
	}
}

// NewMetrics creates and registers the routing metrics.
func NewMetrics(opts ...MetricsOption) (*Metrics, error) {
	cfg := &metricsConfig{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(cfg)
	}

	m := &Metrics{
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queryroute_queries_total",
			Help: "Total queries resolved.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queryroute_cache_hits_total",
			Help: "Queries answered from the query cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queryroute_cache_misses_total",
			Help: "Queries that required fresh analysis.",
		}),
		refinements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queryroute_refinements_total",
			Help: "Successful language-model refinements.",
		}),
		refinementFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queryroute_refinement_failures_total",
			Help: "Refinement attempts that degraded to the heuristic draft.",
		}),
		searchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queryroute_search_failures_total",
			Help: "Structured queries the search backend failed to serve.",
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queryroute_analysis_confidence",
			Help:    "Confidence of analyses at execution time.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}

	for _, c := range []prometheus.Collector{
		m.queries, m.cacheHits, m.cacheMisses,
		m.refinements, m.refinementFailures, m.searchFailures,
		m.confidence,
	} {
		if err := cfg.registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Start(_ string, _ core.ScopeContext) {
	m.queries.Inc()
}

func (m *Metrics) CacheHit(_ *core.CachedQuery) {
	m.cacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	m.cacheMisses.Inc()
}

func (m *Metrics) AfterAnalyze(_ core.QueryAnalysis) {}

func (m *Metrics) RefineSucceeded(_ core.QueryAnalysis) {
	m.refinements.Inc()
}

func (m *Metrics) RefineFailed(_ error) {
	m.refinementFailures.Inc()
}

func (m *Metrics) SearchFailed(_ error) {
	m.searchFailures.Inc()
}

func (m *Metrics) Finish(result *Result) {
	if result != nil {
		m.confidence.Observe(result.Analysis.Confidence)
	}
}
