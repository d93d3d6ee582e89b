package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/modelcheck/internal/schema"
	"github.com/tordrt/modelcheck/internal/table"
)

// tableExtractor is the per-engine half of schema extraction.
type tableExtractor interface {
	getTableNames(ctx context.Context, requested []string) ([]string, error)
	extractColumns(ctx context.Context, tableName string) ([]schema.Column, error)
	extractPrimaryKey(ctx context.Context, tableName string) ([]string, error)
	extractRelations(ctx context.Context, tableName string) ([]schema.Relation, error)
	extractIndexes(ctx context.Context, tableName string) ([]schema.Index, error)
}

// extractSchema runs the shared extraction loop for one engine.
// If tables is empty, every table the engine lists is extracted.
func extractSchema(ctx context.Context, e tableExtractor, tables []string) (*schema.Schema, error) {
	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	extracted := make([]schema.Table, 0, len(tableNames))
	for _, tableName := range tableNames {
		t, err := extractTable(ctx, e, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		extracted = append(extracted, *t)
	}

	return &schema.Schema{Tables: extracted}, nil
}

func extractTable(ctx context.Context, e tableExtractor, tableName string) (*schema.Table, error) {
	t := &schema.Table{Name: tableName}

	var err error
	if t.Columns, err = e.extractColumns(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("table %s has no columns or does not exist", tableName)
	}
	if t.PrimaryKey, err = e.extractPrimaryKey(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	if t.Relations, err = e.extractRelations(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	if t.Indexes, err = e.extractIndexes(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}

	for i := range t.Relations {
		t.Relations[i].Cardinality = cardinality(t, t.Relations[i].SourceColumn)
	}

	return t, nil
}

// cardinality is 1:1 when the referencing column is itself unique in its
// table, N:1 otherwise.
func cardinality(t *schema.Table, sourceColumn string) string {
	if len(t.PrimaryKey) == 1 && t.PrimaryKey[0] == sourceColumn {
		return "1:1"
	}
	for _, col := range t.Columns {
		if col.Name == sourceColumn && col.IsUnique {
			return "1:1"
		}
	}
	for _, idx := range t.Indexes {
		if idx.IsUnique && len(idx.Columns) == 1 && idx.Columns[0] == sourceColumn {
			return "1:1"
		}
	}
	return "N:1"
}

// ColumnType maps a SQL type name, as reported by any of the supported
// engines, to the scalar type used for table values.
func ColumnType(sqlType string) table.Type {
	t := strings.ToLower(strings.TrimSpace(sqlType))

	switch {
	case t == "tinyint(1)" || t == "bool" || t == "boolean":
		return table.Bool
	case strings.HasSuffix(t, "[]") || strings.HasPrefix(t, "interval") || strings.HasPrefix(t, "point"):
		return table.Any
	case strings.Contains(t, "int") || strings.HasSuffix(t, "serial"):
		return table.Int
	case strings.HasPrefix(t, "real"), strings.HasPrefix(t, "float"), strings.HasPrefix(t, "double"),
		strings.HasPrefix(t, "numeric"), strings.HasPrefix(t, "decimal"):
		return table.Float
	case strings.Contains(t, "char"), strings.Contains(t, "text"), strings.Contains(t, "clob"),
		t == "uuid", strings.HasPrefix(t, "enum"), strings.HasPrefix(t, "set("):
		return table.String
	default:
		return table.Any
	}
}
