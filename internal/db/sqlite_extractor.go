package db

import (
	"context"
	"database/sql"

	"github.com/tordrt/modelcheck/internal/schema"
)

// SQLiteExtractor handles schema extraction from SQLite
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{
		client: client,
	}
}

// ExtractSchema extracts the complete schema for specified tables
// If tables is empty, extracts all tables in the database
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	return extractSchema(ctx, e, tables)
}

// ListTables lists the user tables
func (e *SQLiteExtractor) ListTables(ctx context.Context) ([]string, error) {
	return e.getTableNames(ctx, nil)
}

func (e *SQLiteExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	return queryStrings(ctx, e.client.GetDB(), query)
}

// tableInfo is one row of pragma_table_info
type tableInfo struct {
	name     string
	colType  string
	notNull  bool
	defValue sql.NullString
	pkOrder  int
}

func (e *SQLiteExtractor) tableInfo(ctx context.Context, tableName string) ([]tableInfo, error) {
	rows, err := e.client.GetDB().QueryContext(ctx,
		`SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []tableInfo
	for rows.Next() {
		var ti tableInfo
		if err := rows.Scan(&ti.name, &ti.colType, &ti.notNull, &ti.defValue, &ti.pkOrder); err != nil {
			return nil, err
		}
		infos = append(infos, ti)
	}

	return infos, rows.Err()
}

func (e *SQLiteExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	infos, err := e.tableInfo(ctx, tableName)
	if err != nil {
		return nil, err
	}

	indexes, err := e.extractIndexes(ctx, tableName)
	if err != nil {
		return nil, err
	}
	unique := make(map[string]bool)
	for _, idx := range indexes {
		if idx.IsUnique && len(idx.Columns) == 1 {
			unique[idx.Columns[0]] = true
		}
	}

	columns := make([]schema.Column, 0, len(infos))
	for _, ti := range infos {
		col := schema.Column{
			Name:     ti.name,
			Type:     ti.colType,
			Nullable: !ti.notNull,
			IsUnique: ti.pkOrder == 0 && unique[ti.name],
		}
		if ti.defValue.Valid {
			def := ti.defValue.String
			col.DefaultValue = &def
		}
		columns = append(columns, col)
	}

	return columns, nil
}

func (e *SQLiteExtractor) extractPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	infos, err := e.tableInfo(ctx, tableName)
	if err != nil {
		return nil, err
	}

	// pk holds the 1-based position within the key, 0 for non-key columns
	var pk []string
	for pos := 1; ; pos++ {
		found := false
		for _, ti := range infos {
			if ti.pkOrder == pos {
				pk = append(pk, ti.name)
				found = true
			}
		}
		if !found {
			return pk, nil
		}
	}
}

// extractRelations extracts foreign key relationships. A foreign key that
// omits its target column references the parent's primary key.
func (e *SQLiteExtractor) extractRelations(ctx context.Context, tableName string) ([]schema.Relation, error) {
	rows, err := e.client.GetDB().QueryContext(ctx,
		`SELECT "table", "from", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []schema.Relation
	for rows.Next() {
		var rel schema.Relation
		var toCol sql.NullString
		if err := rows.Scan(&rel.TargetTable, &rel.SourceColumn, &toCol); err != nil {
			return nil, err
		}
		rel.TargetColumn = toCol.String
		relations = append(relations, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range relations {
		if relations[i].TargetColumn != "" {
			continue
		}
		pk, err := e.extractPrimaryKey(ctx, relations[i].TargetTable)
		if err != nil {
			return nil, err
		}
		if len(pk) == 1 {
			relations[i].TargetColumn = pk[0]
		}
	}

	return relations, nil
}

func (e *SQLiteExtractor) extractIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	rows, err := e.client.GetDB().QueryContext(ctx,
		`SELECT name, "unique", origin FROM pragma_index_list(?) ORDER BY name`, tableName)
	if err != nil {
		return nil, err
	}

	type indexEntry struct {
		name   string
		unique bool
	}
	var entries []indexEntry
	for rows.Next() {
		var ie indexEntry
		var origin string
		if err := rows.Scan(&ie.name, &ie.unique, &origin); err != nil {
			rows.Close()
			return nil, err
		}
		// "pk" indexes back the primary key, which is reported separately
		if origin == "pk" {
			continue
		}
		entries = append(entries, ie)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var indexes []schema.Index
	for _, ie := range entries {
		columns, err := queryStrings(ctx, e.client.GetDB(),
			`SELECT name FROM pragma_index_info(?) WHERE name IS NOT NULL ORDER BY seqno`, ie.name)
		if err != nil {
			return nil, err
		}
		if len(columns) > 0 {
			indexes = append(indexes, schema.Index{
				Name:     ie.name,
				IsUnique: ie.unique,
				Columns:  columns,
			})
		}
	}

	return indexes, nil
}
