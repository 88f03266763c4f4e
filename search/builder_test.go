package search

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/queryroute/catalog"
	"github.com/poiesic/queryroute/core"
	"github.com/poiesic/queryroute/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(t *testing.T) *catalog.Snapshot {
	t.Helper()

	source := schema.NewStaticSource(
		core.Schema{
			SchemaID: "invoices",
			Fields: []core.FieldDef{
				{Name: "total_amount", Type: core.FieldTypeNumber},
				{Name: "vendor_name", Type: core.FieldTypeText},
				{Name: "invoice_date", Type: core.FieldTypeDate},
			},
		},
		core.Schema{
			SchemaID: "receipts",
			Fields: []core.FieldDef{
				{Name: "amount", Type: core.FieldTypeNumber},
				{Name: "supplier", Type: core.FieldTypeText},
				{Name: "purchase_date", Type: core.FieldTypeDate},
			},
		},
	)
	cat, err := catalog.NewCatalog(source)
	require.NoError(t, err)
	require.NoError(t, cat.Rebuild(context.Background()))
	return cat.Snapshot()
}

func TestBuildStructuredQuery_ExpandsCanonicalFields(t *testing.T) {
	snap := testSnapshot(t)
	now := time.Date(2025, 8, 14, 10, 0, 0, 0, time.UTC)

	analysis := core.QueryAnalysis{
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
	}

	query := BuildStructuredQuery(snap, analysis, core.ScopeContext{}, now)

	assert.Empty(t, query.SchemaID)
	require.Len(t, query.Match, 1)
	assert.Equal(t, "invoices", query.Match[0].Text)

	require.Len(t, query.Filters, 1)
	// Unscoped expansion covers member fields from every schema.
	assert.ElementsMatch(t, []string{"total_amount", "amount"}, query.Filters[0].Fields)
}

func TestBuildStructuredQuery_ScopedExpansion(t *testing.T) {
	snap := testSnapshot(t)
	now := time.Date(2025, 8, 14, 10, 0, 0, 0, time.UTC)

	analysis := core.QueryAnalysis{
		Intent: core.IntentFilter,
		Filters: []core.Filter{
			{
				Field:          "amount",
				CanonicalField: "amount",
				Operator:       core.OpLte,
				Value:          core.FilterValue{Kind: core.ValueNumber, Number: 50},
			},
		},
	}

	query := BuildStructuredQuery(snap, analysis, core.ScopeContext{SchemaID: "receipts"}, now)

	assert.Equal(t, "receipts", query.SchemaID)
	require.Len(t, query.Filters, 1)
	assert.Equal(t, []string{"amount"}, query.Filters[0].Fields)
}

func TestBuildStructuredQuery_AnchorsRelativePeriods(t *testing.T) {
	snap := testSnapshot(t)

	analysis := core.QueryAnalysis{
		Intent: core.IntentAggregate,
		Filters: []core.Filter{
			{
				Field:          "date",
				CanonicalField: "date",
				Operator:       core.OpRange,
				Value:          core.FilterValue{Kind: core.ValueDateRange, Period: core.PeriodLastMonth},
			},
		},
	}

	// Same analysis, two execution times, two different absolute ranges.
	july := BuildStructuredQuery(snap, analysis, core.ScopeContext{}, time.Date(2025, 8, 14, 10, 0, 0, 0, time.UTC))
	require.Len(t, july.Filters, 1)
	assert.Equal(t, core.PeriodNone, july.Filters[0].Value.Period)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), july.Filters[0].Value.From)
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), july.Filters[0].Value.To)

	august := BuildStructuredQuery(snap, analysis, core.ScopeContext{}, time.Date(2025, 9, 2, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), august.Filters[0].Value.From)
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), august.Filters[0].Value.To)

	// The analysis itself is untouched.
	assert.Equal(t, core.PeriodLastMonth, analysis.Filters[0].Value.Period)
}

func TestBuildStructuredQuery_UnresolvedFilterKeepsRawField(t *testing.T) {
	snap := testSnapshot(t)

	analysis := core.QueryAnalysis{
		Intent: core.IntentSearch,
		Filters: []core.Filter{
			{
				Field:    "warranty period",
				Operator: core.OpExists,
			},
		},
	}

	query := BuildStructuredQuery(snap, analysis, core.ScopeContext{}, time.Now())
	require.Len(t, query.Filters, 1)
	assert.Equal(t, []string{"warranty period"}, query.Filters[0].Fields)
}
