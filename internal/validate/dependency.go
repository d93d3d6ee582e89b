// Package validate implements the functional-dependency and
// referential-integrity checks. Both validators are pure functions over
// immutable tables: they never mutate their input and produce either a full
// result or an error, never a partial one.
package validate

import (
	"sort"

	"github.com/tordrt/modelcheck/internal/table"
)

// NullPolicy controls how rows with a null determinant are treated.
type NullPolicy int

const (
	// NullAsGroup treats all null determinants as one group.
	NullAsGroup NullPolicy = iota
	// SkipNull leaves null determinants out of the analysis.
	SkipNull
)

func (p NullPolicy) String() string {
	if p == SkipNull {
		return "skip"
	}
	return "group"
}

// DependencyOptions configures FindDependencyViolations. A nil value means defaults.
type DependencyOptions struct {
	NullDeterminant NullPolicy
}

// DependencyViolation is one determinant value that maps to more than one
// dependent value.
type DependencyViolation struct {
	Determinant     any
	DependentValues []any // distinct, sorted with table.Compare
	Counts          []int // rows per entry of DependentValues
	Rows            []int // 0-based, in table order
}

type depGroup struct {
	determinant any
	rows        []int
	counts      map[any]int
}

// FindDependencyViolations reports every determinant value of t that maps to
// more than one distinct dependent value. Violations are ordered by the first
// row in which their determinant appears.
func FindDependencyViolations(t *table.Table, determinant, dependent string, opts *DependencyOptions) ([]DependencyViolation, error) {
	if opts == nil {
		opts = &DependencyOptions{}
	}

	detIdx, ok := t.ColumnIndex(determinant)
	if !ok {
		return nil, &ColumnNotFoundError{Table: t.Name(), Column: determinant}
	}
	depIdx, ok := t.ColumnIndex(dependent)
	if !ok {
		return nil, &ColumnNotFoundError{Table: t.Name(), Column: dependent}
	}

	// groups is kept in first-occurrence order; byKey points into it.
	var groups []*depGroup
	byKey := make(map[any]*depGroup)

	for i := 0; i < t.Len(); i++ {
		det := t.Value(i, detIdx)
		if det == nil && opts.NullDeterminant == SkipNull {
			continue
		}

		g, ok := byKey[det]
		if !ok {
			g = &depGroup{determinant: det, counts: make(map[any]int)}
			byKey[det] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, i)
		g.counts[t.Value(i, depIdx)]++
	}

	var violations []DependencyViolation
	for _, g := range groups {
		if len(g.counts) < 2 {
			continue
		}

		values := make([]any, 0, len(g.counts))
		for v := range g.counts {
			values = append(values, v)
		}
		sort.Slice(values, func(i, j int) bool {
			return table.Compare(values[i], values[j]) < 0
		})

		counts := make([]int, len(values))
		for i, v := range values {
			counts[i] = g.counts[v]
		}

		violations = append(violations, DependencyViolation{
			Determinant:     g.determinant,
			DependentValues: values,
			Counts:          counts,
			Rows:            g.rows,
		})
	}

	return violations, nil
}
