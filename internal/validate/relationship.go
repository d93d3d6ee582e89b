package validate

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tordrt/modelcheck/internal/table"
)

// Relationship declares that every non-null value of Child.ChildColumn must
// exist among the values of Parent.ParentColumn.
type Relationship struct {
	ParentTable  string
	ParentColumn string
	ChildTable   string
	ChildColumn  string
}

func (r Relationship) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", r.ParentTable, r.ParentColumn, r.ChildTable, r.ChildColumn)
}

// ParseRelationship parses "Parent.Col->Child.Col" (or "Parent.Col=Child.Col").
func ParseRelationship(s string) (Relationship, error) {
	sep := "->"
	if !strings.Contains(s, sep) {
		sep = "="
	}
	parent, child, ok := strings.Cut(s, sep)
	if !ok {
		return Relationship{}, fmt.Errorf("invalid relationship %q (want Parent.Column->Child.Column)", s)
	}

	pt, pc, err := ParseColumnRef(parent)
	if err != nil {
		return Relationship{}, fmt.Errorf("invalid relationship %q: %w", s, err)
	}
	ct, cc, err := ParseColumnRef(child)
	if err != nil {
		return Relationship{}, fmt.Errorf("invalid relationship %q: %w", s, err)
	}

	return Relationship{ParentTable: pt, ParentColumn: pc, ChildTable: ct, ChildColumn: cc}, nil
}

// ParseColumnRef splits "Table.Column". The column is everything after the
// last dot, so schema-qualified table names are kept intact.
func ParseColumnRef(s string) (tableName, column string, err error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return "", "", fmt.Errorf("invalid column reference %q (want Table.Column)", s)
	}
	return s[:i], s[i+1:], nil
}

// RelationshipOptions configures FindRelationshipViolations. A nil value means defaults.
type RelationshipOptions struct {
	// Parallelism is the number of relationships checked concurrently.
	// Values below 2 check them sequentially.
	Parallelism int
}

// RelationshipViolation is a child row whose foreign key has no parent.
type RelationshipViolation struct {
	Relationship Relationship
	Row          int
	Record       map[string]any
	Value        any
}

// resolved is a relationship whose tables and column positions have been checked.
type resolved struct {
	rel       Relationship
	parent    *table.Table
	child     *table.Table
	parentIdx int
	childIdx  int
}

// FindRelationshipViolations checks each relationship against tables and
// returns the violations concatenated in declaration order. Every
// relationship is validated before any table is scanned.
func FindRelationshipViolations(tables map[string]*table.Table, rels []Relationship, opts *RelationshipOptions) ([]RelationshipViolation, error) {
	if opts == nil {
		opts = &RelationshipOptions{}
	}

	checks := make([]resolved, 0, len(rels))
	for _, rel := range rels {
		r, err := resolveRelationship(tables, rel)
		if err != nil {
			return nil, err
		}
		checks = append(checks, r)
	}

	results := make([][]RelationshipViolation, len(checks))

	if opts.Parallelism < 2 || len(checks) < 2 {
		for i, c := range checks {
			results[i] = c.scan()
		}
	} else {
		var g errgroup.Group
		g.SetLimit(opts.Parallelism)
		for i, c := range checks {
			g.Go(func() error {
				results[i] = c.scan()
				return nil
			})
		}
		_ = g.Wait()
	}

	var violations []RelationshipViolation
	for _, r := range results {
		violations = append(violations, r...)
	}
	return violations, nil
}

// ValidateRelationship checks that rel can be evaluated against tables
// without scanning any rows.
func ValidateRelationship(tables map[string]*table.Table, rel Relationship) error {
	_, err := resolveRelationship(tables, rel)
	return err
}

func resolveRelationship(tables map[string]*table.Table, rel Relationship) (resolved, error) {
	parent, ok := tables[rel.ParentTable]
	if !ok || parent == nil {
		return resolved{}, &UnknownTableError{Table: rel.ParentTable}
	}
	child, ok := tables[rel.ChildTable]
	if !ok || child == nil {
		return resolved{}, &UnknownTableError{Table: rel.ChildTable}
	}

	parentIdx, ok := parent.ColumnIndex(rel.ParentColumn)
	if !ok {
		return resolved{}, &ColumnNotFoundError{Table: rel.ParentTable, Column: rel.ParentColumn}
	}
	childIdx, ok := child.ColumnIndex(rel.ChildColumn)
	if !ok {
		return resolved{}, &ColumnNotFoundError{Table: rel.ChildTable, Column: rel.ChildColumn}
	}

	return resolved{rel: rel, parent: parent, child: child, parentIdx: parentIdx, childIdx: childIdx}, nil
}

func (r resolved) keySet() map[any]struct{} {
	keys := make(map[any]struct{}, r.parent.Len())
	for i := 0; i < r.parent.Len(); i++ {
		if v := r.parent.Value(i, r.parentIdx); v != nil {
			keys[v] = struct{}{}
		}
	}
	return keys
}

func (r resolved) scan() []RelationshipViolation {
	keys := r.keySet()

	var violations []RelationshipViolation
	for i := 0; i < r.child.Len(); i++ {
		v := r.child.Value(i, r.childIdx)
		if v == nil {
			continue
		}
		if _, ok := keys[v]; ok {
			continue
		}
		violations = append(violations, RelationshipViolation{
			Relationship: r.rel,
			Row:          i,
			Record:       r.child.Record(i),
			Value:        v,
		})
	}
	return violations
}

// RelationshipSummary aggregates the violations of one relationship.
type RelationshipSummary struct {
	Relationship  Relationship
	ChildRows     int   // child rows with a non-null foreign key
	ViolatingRows int   // rows whose key has no parent
	MissingKeys   []any // distinct offending keys, sorted
	Coverage      float64
}

// SummarizeRelationships builds one summary per relationship from the output
// of FindRelationshipViolations. Relationships that cannot be resolved
// against tables get a zero-row summary.
func SummarizeRelationships(tables map[string]*table.Table, rels []Relationship, violations []RelationshipViolation) []RelationshipSummary {
	byRel := make(map[Relationship][]RelationshipViolation)
	for _, v := range violations {
		byRel[v.Relationship] = append(byRel[v.Relationship], v)
	}

	summaries := make([]RelationshipSummary, 0, len(rels))
	for _, rel := range rels {
		s := RelationshipSummary{Relationship: rel, Coverage: 1}

		if r, err := resolveRelationship(tables, rel); err == nil {
			for i := 0; i < r.child.Len(); i++ {
				if r.child.Value(i, r.childIdx) != nil {
					s.ChildRows++
				}
			}
		}

		missing := make(map[any]struct{})
		for _, v := range byRel[rel] {
			s.ViolatingRows++
			if _, seen := missing[v.Value]; !seen {
				missing[v.Value] = struct{}{}
				s.MissingKeys = append(s.MissingKeys, v.Value)
			}
		}
		sort.Slice(s.MissingKeys, func(i, j int) bool {
			return table.Compare(s.MissingKeys[i], s.MissingKeys[j]) < 0
		})

		if s.ChildRows > 0 {
			s.Coverage = float64(s.ChildRows-s.ViolatingRows) / float64(s.ChildRows)
		}
		summaries = append(summaries, s)
	}

	return summaries
}
