// Package table holds the in-memory tabular data the validators read.
//
// A Table has a fixed, ordered column list that is validated once at
// construction; rows are positional and every cell is normalized (see
// Normalize), so later code can use cell values directly as map keys.
// Tables are never mutated after New returns.
package table

import (
	"fmt"
	"strings"
)

// Type is the declared scalar type of a column.
type Type int

const (
	Any Type = iota
	String
	Int
	Float
	Bool
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	default:
		return "any"
	}
}

// ParseType maps a type name to a Type. Unknown names are an error.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return Any, nil
	case "string", "text":
		return String, nil
	case "int", "integer":
		return Int, nil
	case "float", "number", "double":
		return Float, nil
	case "bool", "boolean":
		return Bool, nil
	default:
		return Any, fmt.Errorf("unknown column type %q", s)
	}
}

// Accepts reports whether a normalized value may be stored in a column of type t.
func (t Type) Accepts(v any) bool {
	if v == nil || t == Any {
		return true
	}
	switch v.(type) {
	case string:
		return t == String
	case bool:
		return t == Bool
	case int64:
		return t == Int || t == Float
	case float64:
		return t == Float
	}
	return false
}

// Column describes one table column.
type Column struct {
	Name string
	Type Type
}

// Row is a positional row aligned with its table's columns.
type Row []any

// Table is an immutable, named table.
type Table struct {
	name    string
	columns []Column
	index   map[string]int
	rows    []Row
}

// New builds a table from positional rows. Every row must have exactly one
// value per column.
func New(name string, columns []Column, rows [][]any) (*Table, error) {
	t, err := newEmpty(name, columns)
	if err != nil {
		return nil, err
	}

	t.rows = make([]Row, 0, len(rows))
	for i, raw := range rows {
		if len(raw) != len(columns) {
			return nil, fmt.Errorf("table %s: row %d has %d values, want %d", name, i, len(raw), len(columns))
		}
		row := make(Row, len(raw))
		for j, v := range raw {
			nv, err := t.normalizeCell(i, j, v)
			if err != nil {
				return nil, err
			}
			row[j] = nv
		}
		t.rows = append(t.rows, row)
	}

	return t, nil
}

// FromRecords builds a table from keyed records. Missing keys are null; keys
// that are not declared columns are an error.
func FromRecords(name string, columns []Column, records []map[string]any) (*Table, error) {
	t, err := newEmpty(name, columns)
	if err != nil {
		return nil, err
	}

	t.rows = make([]Row, 0, len(records))
	for i, rec := range records {
		row := make(Row, len(columns))
		for key, v := range rec {
			j, ok := t.index[key]
			if !ok {
				return nil, fmt.Errorf("table %s: row %d: unknown column %q", name, i, key)
			}
			nv, err := t.normalizeCell(i, j, v)
			if err != nil {
				return nil, err
			}
			row[j] = nv
		}
		t.rows = append(t.rows, row)
	}

	return t, nil
}

func newEmpty(name string, columns []Column) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("table name is required")
	}

	index := make(map[string]int, len(columns))
	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("table %s: column %d has no name", name, i)
		}
		if _, dup := index[col.Name]; dup {
			return nil, fmt.Errorf("table %s: duplicate column %q", name, col.Name)
		}
		index[col.Name] = i
	}

	cols := make([]Column, len(columns))
	copy(cols, columns)

	return &Table{name: name, columns: cols, index: index}, nil
}

func (t *Table) normalizeCell(row, col int, v any) (any, error) {
	nv, err := Normalize(v)
	if err != nil {
		return nil, fmt.Errorf("table %s: row %d, column %s: %w", t.name, row, t.columns[col].Name, err)
	}
	if !t.columns[col].Type.Accepts(nv) {
		return nil, fmt.Errorf("table %s: row %d, column %s: %w: %T in %s column",
			t.name, row, t.columns[col].Name, ErrTypeMismatch, nv, t.columns[col].Type)
	}
	return nv, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Columns returns a copy of the column list.
func (t *Table) Columns() []Column {
	cols := make([]Column, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// ColumnIndex returns the position of a column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// HasColumn reports whether the table declares the column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Value returns the cell at (row, col).
func (t *Table) Value(row, col int) any {
	return t.rows[row][col]
}

// Row returns a copy of a row.
func (t *Table) Row(i int) Row {
	row := make(Row, len(t.rows[i]))
	copy(row, t.rows[i])
	return row
}

// Record returns a row as a freshly allocated column-name map.
func (t *Table) Record(i int) map[string]any {
	rec := make(map[string]any, len(t.columns))
	for j, col := range t.columns {
		rec[col.Name] = t.rows[i][j]
	}
	return rec
}
