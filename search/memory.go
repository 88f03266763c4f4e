package search

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/queryroute/core"
)

// Document is one indexed document in the in-memory executor.
type Document struct {
	SchemaID string
	ID       string
	Fields   map[string]any
}

// MemoryExecutor is a reference Executor over an in-memory document set.
// It exists for tests and local development; production deployments plug
// in a real search backend behind the Executor interface.
type MemoryExecutor struct {
	mu   sync.RWMutex
	docs []Document
}

var _ Executor = (*MemoryExecutor)(nil)

// NewMemoryExecutor creates an empty in-memory executor.
func NewMemoryExecutor() *MemoryExecutor {
	return &MemoryExecutor{}
}

// AddDocuments indexes documents for subsequent queries.
func (e *MemoryExecutor) AddDocuments(docs ...Document) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.docs = append(e.docs, docs...)
}

// Execute runs the query over the indexed documents.
func (e *MemoryExecutor) Execute(ctx context.Context, query core.StructuredQuery) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var hits []Hit
	for _, doc := range e.docs {
		if query.SchemaID != "" && doc.SchemaID != query.SchemaID {
			continue
		}
		if !e.filtersMatch(doc, query.Filters) {
			continue
		}
		score, ok := e.matchScore(doc, query.Match)
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			SchemaID:   doc.SchemaID,
			DocumentID: doc.ID,
			Fields:     doc.Fields,
			Score:      score,
		})
	}

	e.sortHits(hits, query.Sort)
	return &Result{Hits: hits, Total: len(hits)}, nil
}

func (e *MemoryExecutor) filtersMatch(doc Document, filters []core.FilterClause) bool {
	for _, clause := range filters {
		if !e.clauseMatches(doc, clause) {
			return false
		}
	}
	return true
}

// clauseMatches reports whether any of the clause's fields satisfies the
// constraint on this document.
func (e *MemoryExecutor) clauseMatches(doc Document, clause core.FilterClause) bool {
	for _, field := range clause.Fields {
		value, present := doc.Fields[field]
		if !present {
			continue
		}
		if clause.Operator == core.OpExists {
			return true
		}
		if valueSatisfies(value, clause.Operator, clause.Value) {
			return true
		}
	}
	return false
}

func valueSatisfies(docValue any, op core.Operator, want core.FilterValue) bool {
	switch want.Kind {
	case core.ValueText:
		s, ok := docValue.(string)
		if !ok {
			return false
		}
		return op == core.OpEq && strings.EqualFold(s, want.Text)

	case core.ValueNumber:
		n, ok := toFloat(docValue)
		if !ok {
			return false
		}
		switch op {
		case core.OpEq:
			return n == want.Number
		case core.OpGte:
			return n >= want.Number
		case core.OpLte:
			return n <= want.Number
		case core.OpRange:
			return n >= want.Number && n <= want.UpperNumber
		}
		return false

	case core.ValueBool:
		b, ok := docValue.(bool)
		if !ok {
			return false
		}
		return op == core.OpEq && b == want.Bool

	case core.ValueDateRange:
		ts, ok := docValue.(time.Time)
		if !ok {
			return false
		}
		if !want.From.IsZero() && ts.Before(want.From) {
			return false
		}
		if !want.To.IsZero() && !ts.Before(want.To) {
			return false
		}
		return true
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// matchScore scores the document against the match clauses. With no match
// clauses every document scores zero and passes; otherwise at least one
// term must match somewhere.
func (e *MemoryExecutor) matchScore(doc Document, clauses []core.MatchClause) (float64, bool) {
	if len(clauses) == 0 {
		return 0, true
	}

	var matched, total int
	for _, clause := range clauses {
		terms := strings.Fields(strings.ToLower(clause.Text))
		total += len(terms)
		for _, term := range terms {
			if docContains(doc, clause.Fields, term) {
				matched++
			}
		}
	}
	if total == 0 {
		return 0, true
	}
	if matched == 0 {
		return 0, false
	}
	return float64(matched) / float64(total), true
}

func docContains(doc Document, fields []string, term string) bool {
	for name, value := range doc.Fields {
		if len(fields) > 0 && !slices.Contains(fields, name) {
			continue
		}
		s, ok := value.(string)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	// Schema name counts as matchable content so "invoices" finds invoice
	// documents even when no field repeats the word.
	return strings.Contains(strings.ToLower(doc.SchemaID), term)
}

func (e *MemoryExecutor) sortHits(hits []Hit, order core.SortOrder) {
	switch order {
	case core.SortRelevance:
		slices.SortStableFunc(hits, func(a, b Hit) int {
			if a.Score > b.Score {
				return -1
			}
			if a.Score < b.Score {
				return 1
			}
			return 0
		})
	case core.SortRecency:
		slices.SortStableFunc(hits, func(a, b Hit) int {
			at, bt := newestTime(a.Fields), newestTime(b.Fields)
			if at.After(bt) {
				return -1
			}
			if bt.After(at) {
				return 1
			}
			return 0
		})
	}
}

func newestTime(fields map[string]any) time.Time {
	var newest time.Time
	for _, v := range fields {
		if ts, ok := v.(time.Time); ok && ts.After(newest) {
			newest = ts
		}
	}
	return newest
}
