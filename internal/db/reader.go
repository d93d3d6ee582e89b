package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tordrt/modelcheck/internal/schema"
	"github.com/tordrt/modelcheck/internal/table"
)

// buildTable turns raw driver rows into a table.Table. Each column's type is
// derived from its SQL type; a column whose stored values do not fit that
// type (common with SQLite's loose typing) is downgraded to table.Any rather
// than failing the read.
func buildTable(name string, columns []schema.Column, raw [][]any) (*table.Table, error) {
	cols := make([]table.Column, len(columns))
	declared := make([]table.Type, len(columns))
	for i, c := range columns {
		declared[i] = ColumnType(c.Type)
		cols[i] = table.Column{Name: c.Name, Type: declared[i]}
	}

	for r, row := range raw {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("row %d has %d values, want %d", r, len(row), len(cols))
		}
		for c, v := range row {
			nv, err := normalizeDriverValue(coerce(v, declared[c]))
			if err != nil {
				return nil, fmt.Errorf("row %d, column %s: %w", r, cols[c].Name, err)
			}
			if !cols[c].Type.Accepts(nv) {
				cols[c].Type = table.Any
			}
			row[c] = nv
		}
	}

	return table.New(name, cols, raw)
}

// coerce parses textual driver values into the column's declared scalar type.
// Values that do not parse are returned unchanged.
func coerce(v any, typ table.Type) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch typ {
	case table.Int:
		if s, ok := v.(string); ok {
			if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				return n
			}
		}
	case table.Float:
		if s, ok := v.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f
			}
		}
	case table.Bool:
		switch x := v.(type) {
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return b
			}
		case int64:
			return x != 0
		}
	}

	return v
}

// normalizeDriverValue normalizes a cell, falling back to its printed form
// for driver types that have no scalar equivalent (arrays, JSON, intervals,
// unsigned values past int64).
func normalizeDriverValue(v any) (any, error) {
	nv, err := table.Normalize(v)
	if errors.Is(err, table.ErrUnsupportedValue) {
		return fmt.Sprint(v), nil
	}
	return nv, err
}
