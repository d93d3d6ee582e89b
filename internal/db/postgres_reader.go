package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tordrt/modelcheck/internal/schema"
	"github.com/tordrt/modelcheck/internal/table"
)

// ReadTable loads every row of a table in column order
func (e *PostgresExtractor) ReadTable(ctx context.Context, tableName string) (*table.Table, error) {
	columns, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s.%s not found", e.schema, tableName)
	}

	query := selectStatement(qualifiedName('"', e.schema, tableName), columnNames(columns), '"')
	rows, err := e.client.GetConnection().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", tableName, err)
	}
	defer rows.Close()

	var raw [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = pgScalar(v)
		}
		raw = append(raw, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", tableName, err)
	}

	return buildTable(tableName, columns, raw)
}

// pgScalar converts pgx's decoded forms of numeric and uuid columns to plain scalars
func pgScalar(v any) any {
	switch x := v.(type) {
	case [16]byte:
		return uuid.UUID(x).String()
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	default:
		return v
	}
}

func columnNames(columns []schema.Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}
