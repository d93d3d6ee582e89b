package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tordrt/modelcheck/internal/schema"
	"github.com/tordrt/modelcheck/internal/table"
)

// ReadTable loads every row of a table in column order
func (e *MySQLExtractor) ReadTable(ctx context.Context, tableName string) (*table.Table, error) {
	columns, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s.%s not found", e.schemaName, tableName)
	}

	query := selectStatement(qualifiedName('`', e.schemaName, tableName), columnNames(columns), '`')
	return readSQLTable(ctx, e.client.GetDB(), tableName, columns, query)
}

// ReadTable loads every row of a table in column order
func (e *SQLiteExtractor) ReadTable(ctx context.Context, tableName string) (*table.Table, error) {
	columns, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", tableName)
	}

	query := selectStatement(quoteIdent(tableName, '"'), columnNames(columns), '"')
	return readSQLTable(ctx, e.client.GetDB(), tableName, columns, query)
}

func readSQLTable(ctx context.Context, db *sql.DB, tableName string, columns []schema.Column, query string) (*table.Table, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", tableName, err)
	}
	defer rows.Close()

	var raw [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		raw = append(raw, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", tableName, err)
	}

	return buildTable(tableName, columns, raw)
}
