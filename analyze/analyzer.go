package analyze

import (
	"time"

	"github.com/poiesic/queryroute/catalog"
	"github.com/poiesic/queryroute/core"
)

// Weights controls how the confidence score blends its three signals.
// They are tunables; the defaults were calibrated against the scenario
// corpus rather than derived analytically.
type Weights struct {
	Coverage          float64 // fraction of text consumed by recognized patterns
	IntentSpecificity float64 // high-specificity intent rule vs. fallback
	FieldResolution   float64 // fraction of filters with a canonical field
}

// DefaultWeights returns the default confidence weighting.
func DefaultWeights() Weights {
	return Weights{
		Coverage:          0.4,
		IntentSpecificity: 0.3,
		FieldResolution:   0.3,
	}
}

// implicitSearchSpecificity is the intent-specificity credit for queries
// with no search verb but at least one extracted filter: "invoices over
// $1000" is an obvious search even without "find".
const implicitSearchSpecificity = 0.7

// fieldResolver resolves a field phrase to (canonical, type, ok) under the
// active snapshot and scope.
type fieldResolver func(phrase string) (string, core.FieldType, bool)

// Analyzer turns free-text queries into QueryAnalysis values.
// It is stateless apart from its configuration and safe for concurrent use.
type Analyzer struct {
	weights Weights
	clock   func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithWeights sets the confidence weighting.
func WithWeights(w Weights) Option {
	return func(a *Analyzer) {
		a.weights = w
	}
}

// WithClock sets the time source used to anchor absolute date phrases
// (named months, years). Default is time.Now. Relative periods are not
// anchored here at all; they resolve at execution time.
func WithClock(clock func() time.Time) Option {
	return func(a *Analyzer) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		weights: DefaultWeights(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze computes the QueryAnalysis for a query under one catalog
// snapshot and scope. Pure and deterministic given the snapshot and the
// analyzer's clock; never fails. The worst case is a default search
// analysis with confidence 0.
func (a *Analyzer) Analyze(snap *catalog.Snapshot, text string, scope core.ScopeContext) core.QueryAnalysis {
	norm := core.NormalizeQueryText(text)
	if norm == "" {
		return core.QueryAnalysis{
			Intent:     core.IntentSearch,
			Confidence: 0,
		}
	}

	resolve := makeResolver(snap, scope)

	// 1. Intent detection
	match := detectIntent(norm, resolve)
	consumed := match.consumed

	// 2. Filter extraction
	var filters []core.Filter
	if match.retrieveField != "" {
		filters = append(filters, core.Filter{
			Field:          match.retrieveField,
			CanonicalField: match.retrieveField,
			Operator:       core.OpExists,
		})
	}
	filters = append(filters, extractNumericFilters(norm, resolve, &consumed)...)
	filters = append(filters, extractDateFilters(norm, a.clock(), &consumed)...)
	filters = append(filters, extractStatusFilters(norm, &consumed)...)

	// 3. Field resolution
	resolvedCount := 0
	for i := range filters {
		if filters[i].CanonicalField == "" {
			if canonical, _, ok := resolve(filters[i].Field); ok {
				filters[i].CanonicalField = canonical
			}
		}
		if filters[i].Resolved() {
			resolvedCount++
		}
	}

	// Queries that are nothing but constraints are filter-intent.
	intent := match.intent
	specificity := match.specificity
	terms := residualTerms(norm, consumed)
	if intent == core.IntentSearch && specificity == 0 && len(filters) > 0 {
		if len(terms) == 0 {
			intent = core.IntentFilter
			specificity = 1
		} else {
			specificity = implicitSearchSpecificity
		}
	}

	// 4. Confidence scoring
	resolution := 1.0
	if len(filters) > 0 {
		resolution = float64(resolvedCount) / float64(len(filters))
	} else if specificity == 0 {
		// Nothing recognized at all: no credit for trivially resolving
		// an empty filter set.
		resolution = 0
	}
	confidence := a.weights.Coverage*patternCoverage(norm, consumed) +
		a.weights.IntentSpecificity*specificity +
		a.weights.FieldResolution*resolution
	confidence = clamp01(confidence)

	if intent == core.IntentRetrieve {
		// Retrieval answers come from extracted fields, not text matching.
		terms = nil
	}

	return core.QueryAnalysis{
		Intent:        intent,
		Filters:       filters,
		MatchTerms:    terms,
		Confidence:    confidence,
		SuggestedSort: suggestSort(norm, intent),
	}
}

// makeResolver builds a fieldResolver honoring the request scope: a
// scoped request only offers that schema's member names for matching.
func makeResolver(snap *catalog.Snapshot, scope core.ScopeContext) fieldResolver {
	return func(phrase string) (string, core.FieldType, bool) {
		var canonical string
		var ok bool
		if scope.Restricted() {
			canonical, ok = snap.CanonicalizeIn(phrase, scope.SchemaID)
		} else {
			canonical, ok = snap.Canonicalize(phrase)
		}
		if !ok {
			return "", 0, false
		}
		fieldType, _ := snap.TypeOf(canonical)
		return canonical, fieldType, true
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
