//go:build integration

package db

import (
	"context"
	"testing"

	"github.com/tordrt/modelcheck/internal/schema"
	"github.com/tordrt/modelcheck/internal/table"
	"github.com/tordrt/modelcheck/internal/validate"
)

// The integration databases are expected to hold the shop fixture:
// users, products, orders and order_items, with orders.user_id -> users.id.
var shopTables = []string{"order_items", "orders", "products", "users"}

func verifyTablesExist(t *testing.T, s *schema.Schema, expected []string) {
	t.Helper()

	for _, name := range expected {
		if s.FindTable(name) == nil {
			t.Errorf("Expected table %s not found in schema", name)
		}
	}
}

func verifyColumns(t *testing.T, tbl *schema.Table, expected []string) {
	t.Helper()

	columnMap := make(map[string]bool)
	for _, col := range tbl.Columns {
		columnMap[col.Name] = true
	}
	for _, name := range expected {
		if !columnMap[name] {
			t.Errorf("Expected column %s not found in %s table", name, tbl.Name)
		}
	}
}

func verifyForeignKey(t *testing.T, s *schema.Schema, tableName, sourceColumn, targetTable string) {
	t.Helper()

	tbl := s.FindTable(tableName)
	if tbl == nil {
		t.Fatalf("Table %s not found", tableName)
	}
	for _, rel := range tbl.Relations {
		if rel.TargetTable == targetTable && rel.SourceColumn == sourceColumn {
			return
		}
	}
	t.Errorf("Expected foreign key relationship from %s.%s to %s not found", tableName, sourceColumn, targetTable)
}

// tableReader is the ReadTable method every extractor provides
type tableReader func(ctx context.Context, name string) (*table.Table, error)

// verifyDeclaredRelationships reads both sides of every declared foreign key
// and runs the relationship check over them.
func verifyDeclaredRelationships(t *testing.T, s *schema.Schema, read tableReader) {
	t.Helper()
	ctx := context.Background()

	rels := s.Relationships()
	if len(rels) == 0 {
		t.Fatal("Expected declared relationships")
	}

	tables := make(map[string]*table.Table)
	for _, rel := range rels {
		for _, name := range []string{rel.ParentTable, rel.ChildTable} {
			if _, ok := tables[name]; ok {
				continue
			}
			tbl, err := read(ctx, name)
			if err != nil {
				t.Fatalf("Failed to read table %s: %v", name, err)
			}
			tables[name] = tbl
		}
	}

	if _, err := validate.FindRelationshipViolations(tables, rels, nil); err != nil {
		t.Fatalf("Relationship check failed: %v", err)
	}
}
