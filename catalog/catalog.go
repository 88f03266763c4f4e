package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hbollon/go-edlib"
	"github.com/poiesic/queryroute/core"
	"github.com/poiesic/queryroute/schema"
)

const (
	// defaultGroupThreshold is the minimum token-set Jaccard similarity
	// for two field names to share a canonical group during rebuild.
	defaultGroupThreshold = 0.6

	// defaultMatchThreshold is the minimum score for a free-text phrase
	// to resolve to a catalog member at query time.
	defaultMatchThreshold = 0.5

	// jaroWinklerFloor is the minimum Jaro-Winkler similarity before an
	// edit-distance match is considered at all.
	jaroWinklerFloor = 0.84
)

// Catalog maintains canonical field groupings across document schemas.
// The active snapshot is replaced atomically on rebuild; readers never
// block and never observe a partially built catalog.
type Catalog struct {
	source         schema.Source
	snapshot       atomic.Pointer[Snapshot]
	rebuildMu      sync.Mutex
	groupThreshold float64
	matchThreshold float64
	logger         *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithGroupThreshold sets the similarity threshold for grouping field
// names during rebuild. Values outside (0,1] are rejected.
func WithGroupThreshold(threshold float64) Option {
	return func(c *Catalog) error {
		if threshold <= 0 || threshold > 1 {
			return fmt.Errorf("group threshold must be in (0,1], got %v", threshold)
		}
		c.groupThreshold = threshold
		return nil
	}
}

// WithMatchThreshold sets the similarity threshold for resolving query
// phrases against catalog members. Values outside (0,1] are rejected.
func WithMatchThreshold(threshold float64) Option {
	return func(c *Catalog) error {
		if threshold <= 0 || threshold > 1 {
			return fmt.Errorf("match threshold must be in (0,1], got %v", threshold)
		}
		c.matchThreshold = threshold
		return nil
	}
}

// NewCatalog creates a catalog reading schemas from the given source.
// The catalog starts empty (version 0); call Rebuild to populate it.
func NewCatalog(source schema.Source, opts ...Option) (*Catalog, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}

	c := &Catalog{
		source:         source,
		groupThreshold: defaultGroupThreshold,
		matchThreshold: defaultMatchThreshold,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.snapshot.Store(emptySnapshot(c.matchThreshold))
	return c, nil
}

// Snapshot returns the currently published snapshot.
// The returned snapshot is immutable and safe to use across a whole
// request even if a rebuild happens concurrently.
func (c *Catalog) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

// Version returns the version of the currently published snapshot.
func (c *Catalog) Version() uint64 {
	return c.Snapshot().Version()
}

// Rebuild pulls schemas from the source and publishes a new snapshot.
// Idempotent with respect to identical source contents apart from the
// version counter. On any failure the previous snapshot is retained and
// ErrRebuildFailed is returned wrapping the cause.
//
// Rebuilds serialize against each other so every published snapshot gets
// a distinct version; readers stay lock-free on the atomic pointer.
func (c *Catalog) Rebuild(ctx context.Context) error {
	c.rebuildMu.Lock()
	defer c.rebuildMu.Unlock()

	schemas, err := c.source.ListSchemas(ctx)
	if err != nil {
		c.logger.Error("catalog rebuild aborted, schema source failed", "err", err)
		return fmt.Errorf("%w: %w", ErrRebuildFailed, err)
	}

	for i := range schemas {
		if err := core.ValidateSchema(&schemas[i]); err != nil {
			c.logger.Error("catalog rebuild aborted, malformed schema", "err", err)
			return fmt.Errorf("%w: %w", ErrRebuildFailed, err)
		}
	}

	previous := c.Snapshot()
	next := buildSnapshot(schemas, previous.Version()+1, c.groupThreshold, c.matchThreshold)
	c.snapshot.Store(next)

	c.logger.Info("catalog rebuilt",
		"version", next.Version(),
		"schemas", len(schemas),
		"canonicalFields", len(next.members))
	return nil
}

// Snapshot is one immutable catalog state. All lookups are read-only and
// safe for concurrent use.
type Snapshot struct {
	version        uint64
	byMember       map[string]string   // normalized member name -> canonical name
	members        map[string][]string // canonical name -> sorted member names
	memberTokens   map[string][]string // normalized member name -> tokens
	bySchema       map[string]map[string]bool // schema id -> normalized member names
	types          map[string]core.FieldType  // canonical name -> value type
	seedTerms      map[string]string
	matchThreshold float64
}

func emptySnapshot(matchThreshold float64) *Snapshot {
	return &Snapshot{
		byMember:       map[string]string{},
		members:        map[string][]string{},
		memberTokens:   map[string][]string{},
		bySchema:       map[string]map[string]bool{},
		types:          map[string]core.FieldType{},
		seedTerms:      seedTermIndex(),
		matchThreshold: matchThreshold,
	}
}

// buildSnapshot groups all schema field names into canonical groups.
// Grouping is deterministic for a given schema set: schemas are processed
// in SchemaID order and fields in declaration order.
func buildSnapshot(schemas []core.Schema, version uint64, groupThreshold, matchThreshold float64) *Snapshot {
	s := emptySnapshot(matchThreshold)
	s.version = version

	sorted := make([]core.Schema, len(schemas))
	copy(sorted, schemas)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SchemaID < sorted[j].SchemaID })

	seedTypes := seedTypeIndex()

	for _, sch := range sorted {
		schemaMembers := make(map[string]bool, len(sch.Fields))
		s.bySchema[sch.SchemaID] = schemaMembers

		for _, field := range sch.Fields {
			member := strings.ToLower(field.Name)
			schemaMembers[member] = true

			if _, seen := s.byMember[member]; seen {
				// Same field name declared by another schema; already grouped.
				continue
			}

			tokens := tokenize(field.Name)
			canonical := assignCanonical(s, member, tokens, groupThreshold)

			s.byMember[member] = canonical
			s.memberTokens[member] = tokens
			s.members[canonical] = insertSorted(s.members[canonical], member)

			if _, ok := s.types[canonical]; !ok {
				if seedType, isSeed := seedTypes[canonical]; isSeed {
					s.types[canonical] = seedType
				} else {
					s.types[canonical] = field.Type
				}
			}
		}
	}

	return s
}

// assignCanonical picks the canonical group for a new member name.
// Seed vocabulary wins first, then token-set similarity against existing
// members, then a fresh singleton group named after the member's tokens.
func assignCanonical(s *Snapshot, member string, tokens []string, groupThreshold float64) string {
	// Compound field names are head-final ("payment_status" is a status),
	// so seed terms are checked from the last token backwards.
	for i := len(tokens) - 1; i >= 0; i-- {
		if canonical, ok := s.seedTerms[tokens[i]]; ok {
			return canonical
		}
	}

	joined := joinTokens(tokens)
	bestScore := 0.0
	bestCanonical := ""
	for _, existing := range sortedKeys(s.memberTokens) {
		score := float64(edlib.JaccardSimilarity(joined, joinTokens(s.memberTokens[existing]), 0))
		if score > bestScore || (score == bestScore && s.byMember[existing] < bestCanonical) {
			bestScore = score
			bestCanonical = s.byMember[existing]
		}
	}
	if bestScore >= groupThreshold && bestCanonical != "" {
		return bestCanonical
	}

	return strings.Join(tokens, "_")
}

// Version returns the monotonically increasing snapshot version.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Canonicalize resolves a field name or short noun phrase to its canonical
// name. Returns ok=false when nothing in the catalog matches.
func (s *Snapshot) Canonicalize(name string) (string, bool) {
	return s.canonicalize(name, nil)
}

// CanonicalizeIn is Canonicalize restricted to the member names of one
// schema, which improves precision when the request scope names a schema.
// An unknown schema id resolves nothing.
func (s *Snapshot) CanonicalizeIn(name, schemaID string) (string, bool) {
	allowed, ok := s.bySchema[schemaID]
	if !ok {
		return "", false
	}
	return s.canonicalize(name, allowed)
}

func (s *Snapshot) canonicalize(name string, allowed map[string]bool) (string, bool) {
	norm := strings.ToLower(strings.TrimSpace(name))
	if norm == "" {
		return "", false
	}

	// Exact member name
	if canonical, ok := s.byMember[norm]; ok && s.visible(canonical, allowed) {
		return canonical, true
	}

	tokens := tokenize(name)

	// Seed vocabulary: a token implying a concept that has members in
	// scope, checked head-noun first (last token backwards).
	for i := len(tokens) - 1; i >= 0; i-- {
		if canonical, ok := s.seedTerms[tokens[i]]; ok && s.visible(canonical, allowed) {
			return canonical, true
		}
	}

	// Fuzzy match against member names
	set := tokenSet(tokens)
	joined := joinTokens(tokens)
	bestScore := 0.0
	bestMember := ""
	for _, member := range sortedKeys(s.memberTokens) {
		if allowed != nil && !allowed[member] {
			continue
		}
		memberTokens := s.memberTokens[member]
		score := overlapCoefficient(set, tokenSet(memberTokens))
		// Jaro-Winkler catches near-miss spellings but scores unrelated
		// strings deceptively high, so it only counts above its own bar.
		if jw := float64(edlib.JaroWinklerSimilarity(joined, joinTokens(memberTokens))); jw >= jaroWinklerFloor && jw > score {
			score = jw
		}
		if score > bestScore {
			bestScore = score
			bestMember = member
		}
	}
	if bestScore >= s.matchThreshold && bestMember != "" {
		return s.byMember[bestMember], true
	}

	return "", false
}

// visible reports whether a canonical group has at least one member within
// the allowed member set (nil = unrestricted).
func (s *Snapshot) visible(canonical string, allowed map[string]bool) bool {
	members, ok := s.members[canonical]
	if !ok {
		return false
	}
	if allowed == nil {
		return true
	}
	for _, member := range members {
		if allowed[member] {
			return true
		}
	}
	return false
}

// Expand returns all member field names of a canonical name, sorted.
// Returns nil for an unknown canonical name.
func (s *Snapshot) Expand(canonical string) []string {
	members := s.members[canonical]
	if members == nil {
		return nil
	}
	out := make([]string, len(members))
	copy(out, members)
	return out
}

// ExpandIn returns the member field names of a canonical name declared by
// one schema, sorted.
func (s *Snapshot) ExpandIn(canonical, schemaID string) []string {
	allowed := s.bySchema[schemaID]
	if allowed == nil {
		return nil
	}
	var out []string
	for _, member := range s.members[canonical] {
		if allowed[member] {
			out = append(out, member)
		}
	}
	return out
}

// CanonicalNames returns all canonical names in the snapshot, sorted.
func (s *Snapshot) CanonicalNames() []string {
	return sortedKeys(s.members)
}

// TypeOf returns the declared value type of a canonical field.
// Returns ok=false for unknown canonical names.
func (s *Snapshot) TypeOf(canonical string) (core.FieldType, bool) {
	t, ok := s.types[canonical]
	return t, ok
}

func insertSorted(members []string, member string) []string {
	i := sort.SearchStrings(members, member)
	members = append(members, "")
	copy(members[i+1:], members[i:])
	members[i] = member
	return members
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
