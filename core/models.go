package core

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Intent is the coarse category of what a query is asking for.
type Intent int

const (
	// IntentSearch asks to find documents matching the query text.
	IntentSearch Intent = iota + 1
	// IntentRetrieve asks for the value of a specific field, not for documents
	// containing the literal phrase.
	IntentRetrieve
	// IntentAggregate asks for a computation over many documents (totals, averages, comparisons).
	IntentAggregate
	// IntentFilter asks to narrow documents by explicit constraints only.
	IntentFilter
)

// String returns the lowercase name of the intent.
func (i Intent) String() string {
	switch i {
	case IntentSearch:
		return "search"
	case IntentRetrieve:
		return "retrieve"
	case IntentAggregate:
		return "aggregate"
	case IntentFilter:
		return "filter"
	}
	return "unknown"
}

// IntentFromString parses a lowercase intent name. Returns 0 for unknown names.
func IntentFromString(s string) Intent {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "search":
		return IntentSearch
	case "retrieve":
		return IntentRetrieve
	case "aggregate":
		return IntentAggregate
	case "filter":
		return IntentFilter
	}
	return 0
}

// Operator is a filter comparison operator.
type Operator int

const (
	// OpEq matches values equal to the filter value.
	OpEq Operator = iota + 1
	// OpGte matches values greater than or equal to the filter value.
	OpGte
	// OpLte matches values less than or equal to the filter value.
	OpLte
	// OpRange matches values between the filter's lower and upper bounds.
	OpRange
	// OpExists matches documents where the field has any value.
	OpExists
)

// String returns the lowercase name of the operator.
func (o Operator) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpGte:
		return "gte"
	case OpLte:
		return "lte"
	case OpRange:
		return "range"
	case OpExists:
		return "exists"
	}
	return "unknown"
}

// OperatorFromString parses a lowercase operator name. Returns 0 for unknown names.
func OperatorFromString(s string) Operator {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eq":
		return OpEq
	case "gte":
		return OpGte
	case "lte":
		return OpLte
	case "range":
		return OpRange
	case "exists":
		return OpExists
	}
	return 0
}

// FieldType is the declared value type of a schema field.
type FieldType int

const (
	// FieldTypeText is free text.
	FieldTypeText FieldType = iota + 1
	// FieldTypeNumber is a numeric value.
	FieldTypeNumber
	// FieldTypeDate is a point in time.
	FieldTypeDate
	// FieldTypeBoolean is true/false.
	FieldTypeBoolean
)

// SortOrder is the suggested ordering for search results.
type SortOrder int

const (
	// SortNone leaves ordering to the search index.
	SortNone SortOrder = iota
	// SortRecency orders by document date, newest first.
	SortRecency
	// SortRelevance orders by match score.
	SortRelevance
)

// RelativePeriod names a date range relative to the current time.
// Filters carrying a period are resolved to absolute bounds at execution
// time, never at analysis or cache-write time.
type RelativePeriod int

const (
	// PeriodNone means the filter carries absolute bounds.
	PeriodNone RelativePeriod = iota
	// PeriodToday is the current calendar day.
	PeriodToday
	// PeriodYesterday is the previous calendar day.
	PeriodYesterday
	// PeriodThisWeek is the current week starting Monday.
	PeriodThisWeek
	// PeriodLastWeek is the previous week.
	PeriodLastWeek
	// PeriodThisMonth is the current calendar month.
	PeriodThisMonth
	// PeriodLastMonth is the previous calendar month.
	PeriodLastMonth
	// PeriodThisQuarter is the current calendar quarter.
	PeriodThisQuarter
	// PeriodLastQuarter is the previous calendar quarter.
	PeriodLastQuarter
	// PeriodThisYear is the current calendar year.
	PeriodThisYear
	// PeriodLastYear is the previous calendar year.
	PeriodLastYear
)

// String returns the snake_case name of the period.
func (p RelativePeriod) String() string {
	switch p {
	case PeriodToday:
		return "today"
	case PeriodYesterday:
		return "yesterday"
	case PeriodThisWeek:
		return "this_week"
	case PeriodLastWeek:
		return "last_week"
	case PeriodThisMonth:
		return "this_month"
	case PeriodLastMonth:
		return "last_month"
	case PeriodThisQuarter:
		return "this_quarter"
	case PeriodLastQuarter:
		return "last_quarter"
	case PeriodThisYear:
		return "this_year"
	case PeriodLastYear:
		return "last_year"
	}
	return "none"
}

// ValueKind discriminates the active variant of a FilterValue.
type ValueKind int

const (
	// ValueText is a text value.
	ValueText ValueKind = iota + 1
	// ValueNumber is a numeric value (Number, and UpperNumber for ranges).
	ValueNumber
	// ValueBool is a boolean value.
	ValueBool
	// ValueDateRange is a date range (From/To, or Period for relative ranges).
	ValueDateRange
)

// FilterValue is the value compared against by a Filter.
// Exactly one variant is active, selected by Kind.
type FilterValue struct {
	Kind        ValueKind
	Text        string
	Number      float64
	UpperNumber float64 // upper bound for OpRange on numbers
	Bool        bool
	From        time.Time
	To          time.Time
	Period      RelativePeriod // when set, From/To are recomputed per execution
}

// Filter is one extracted constraint of a query.
type Filter struct {
	Field          string // raw field phrase as it appeared in the query text
	CanonicalField string // canonical name from the field catalog, empty if unresolved
	Operator       Operator
	Value          FilterValue
}

// Resolved reports whether the filter's field was mapped to a canonical field.
func (f Filter) Resolved() bool {
	return f.CanonicalField != ""
}

// QueryAnalysis is the result of analyzing a free-text query.
// It is an immutable value: produced fresh per query and never mutated
// after creation.
type QueryAnalysis struct {
	Intent        Intent
	Filters       []Filter
	MatchTerms    []string // residual free-text terms for match clauses
	Confidence    float64  // in [0,1]
	SuggestedSort SortOrder
}

// CachedQuery is a durable record of a previously resolved query shape.
type CachedQuery struct {
	QueryHash      string
	OriginalText   string
	Analysis       QueryAnalysis
	HitCount       uint64
	UsedRefinement bool
	InsertedAt     time.Time
	LastUsedAt     time.Time
}

// ScopeContext is a request-specific restriction narrowing which schemas
// a query may resolve against. The zero value means no restriction.
type ScopeContext struct {
	SchemaID string
}

// Restricted reports whether the scope limits resolution to one schema.
func (s ScopeContext) Restricted() bool {
	return s.SchemaID != ""
}

// Identifier returns a stable string identifying the scope for cache keying.
func (s ScopeContext) Identifier() string {
	return s.SchemaID
}

// FieldDef is a schema field declaration.
type FieldDef struct {
	Name string
	Type FieldType
}

// Schema is one document schema as supplied by the external schema source.
type Schema struct {
	SchemaID string
	Fields   []FieldDef
}

// MatchClause is a full-text match against one or more field names.
type MatchClause struct {
	Fields []string // member field names, empty = all fields
	Text   string
}

// FilterClause is a fully resolved filter against concrete field names.
// Date bounds are absolute here: relative periods have been anchored to
// the execution time.
type FilterClause struct {
	Fields   []string
	Operator Operator
	Value    FilterValue
}

// StructuredQuery is the search-engine-ready representation of a query.
// It is derived per request from a QueryAnalysis plus catalog expansion
// and is never persisted: it may embed request-specific scope values.
type StructuredQuery struct {
	SchemaID string // empty = unscoped
	Match    []MatchClause
	Filters  []FilterClause
	Sort     SortOrder
}

// NormalizeQueryText lowercases text and collapses runs of whitespace,
// producing the canonical form used for cache keying.
func NormalizeQueryText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// HashQuery computes the cache key for a query under a scope and catalog
// version. The version is part of the key so a catalog rebuild can never
// serve stale field mappings from old cache entries.
func HashQuery(text string, scope ScopeContext, catalogVersion uint64) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(NormalizeQueryText(text)))
	h.Write([]byte{0})
	h.Write([]byte(scope.Identifier()))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatUint(catalogVersion, 10)))
	return hex.EncodeToString(h.Sum(nil))
}
