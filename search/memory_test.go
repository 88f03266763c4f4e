package search

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/queryroute/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocuments() []Document {
	return []Document{
		{
			SchemaID: "invoices",
			ID:       "inv-001",
			Fields: map[string]any{
				"total_amount": 1500.0,
				"vendor_name":  "Acme Corp",
				"invoice_date": time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			SchemaID: "invoices",
			ID:       "inv-002",
			Fields: map[string]any{
				"total_amount": 250.0,
				"vendor_name":  "Globex",
				"invoice_date": time.Date(2025, 8, 2, 0, 0, 0, 0, time.UTC),
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
	}
}

func newTestExecutor() *MemoryExecutor {
	e := NewMemoryExecutor()
	e.AddDocuments(testDocuments()...)
	return e
}

func TestMemoryExecutor_NumericFilter(t *testing.T) {
	e := newTestExecutor()

	result, err := e.Execute(context.Background(), core.StructuredQuery{
		Filters: []core.FilterClause{
			{
				Fields:   []string{"total_amount", "amount"},
				Operator: core.OpGte,
				Value:    core.FilterValue{Kind: core.ValueNumber, Number: 1000},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)

	ids := make([]string, 0, len(result.Hits))
	for _, h := range result.Hits {
		ids = append(ids, h.DocumentID)
	}
	assert.ElementsMatch(t, []string{"inv-001", "rec-001"}, ids)
}

func TestMemoryExecutor_SchemaScope(t *testing.T) {
	e := newTestExecutor()

	result, err := e.Execute(context.Background(), core.StructuredQuery{
		SchemaID: "receipts",
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "rec-001", result.Hits[0].DocumentID)
}

func TestMemoryExecutor_DateRange(t *testing.T) {
	e := newTestExecutor()

	result, err := e.Execute(context.Background(), core.StructuredQuery{
		Filters: []core.FilterClause{
			{
				Fields:   []string{"invoice_date", "purchase_date"},
				Operator: core.OpRange,
				Value: core.FilterValue{
					Kind: core.ValueDateRange,
					From: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
					To:   time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
				},
			},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "inv-001", result.Hits[0].DocumentID)
}

func TestMemoryExecutor_TextEqAndExists(t *testing.T) {
	e := newTestExecutor()

	t.Run("eq is case-insensitive", func(t *testing.T) {
		result, err := e.Execute(context.Background(), core.StructuredQuery{
			Filters: []core.FilterClause{
				{
					Fields:   []string{"vendor_name", "supplier"},
					Operator: core.OpEq,
					Value:    core.FilterValue{Kind: core.ValueText, Text: "acme corp"},
				},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Total)
	})

	t.Run("exists", func(t *testing.T) {
		result, err := e.Execute(context.Background(), core.StructuredQuery{
			Filters: []core.FilterClause{
				{
					Fields:   []string{"purchase_date"},
					Operator: core.OpExists,
				},
			},
		})
		require.NoError(t, err)
		require.Equal(t, 1, result.Total)
		assert.Equal(t, "rec-001", result.Hits[0].DocumentID)
	})
}

func TestMemoryExecutor_MatchTerms(t *testing.T) {
	e := newTestExecutor()

	// "invoices" matches via schema name, "acme" via field content.
	result, err := e.Execute(context.Background(), core.StructuredQuery{
		Match: []core.MatchClause{{Text: "acme invoices"}},
		Sort:  core.SortRelevance,
	})
	require.NoError(t, err)
	require.Equal(t, 3, result.Total)

	// inv-001 matches both terms and ranks first.
	assert.Equal(t, "inv-001", result.Hits[0].DocumentID)
	assert.InDelta(t, 1.0, result.Hits[0].Score, 1e-9)
}

func TestMemoryExecutor_SortRecency(t *testing.T) {
	e := newTestExecutor()

	result, err := e.Execute(context.Background(), core.StructuredQuery{
		SchemaID: "invoices",
		Sort:     core.SortRecency,
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	assert.Equal(t, "inv-002", result.Hits[0].DocumentID)
	assert.Equal(t, "inv-001", result.Hits[1].DocumentID)
}

func TestMemoryExecutor_CancelledContext(t *testing.T) {
	e := newTestExecutor()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Execute(ctx, core.StructuredQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}
