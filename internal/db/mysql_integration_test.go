//go:build integration

package db

import (
	"context"
	"os"
	"testing"
)

func mysqlTestURL() string {
	if u := os.Getenv("MYSQL_TEST_URL"); u != "" {
		return u
	}
	return "root:testpassword@tcp(localhost:3306)/testdb"
}

func TestMySQLExtraction(t *testing.T) {
	ctx := context.Background()

	client, err := NewMySQLClient(ctx, mysqlTestURL())
	if err != nil {
		t.Fatalf("Failed to connect to MySQL: %v", err)
	}
	defer client.Close()

	extractor := NewMySQLExtractor(client, "")

	s, err := extractor.ExtractSchema(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to extract schema: %v", err)
	}

	verifyTablesExist(t, s, shopTables)
	users := s.FindTable("users")
	if users == nil {
		t.Fatal("Users table not found")
	}
	verifyColumns(t, users, []string{"id", "username", "email", "status", "created_at"})
	for _, col := range users.Columns {
		if col.Name == "status" && len(col.EnumValues) != 3 {
			t.Errorf("Expected 3 enum values for status, got %v", col.EnumValues)
		}
	}
	verifyForeignKey(t, s, "orders", "user_id", "users")
	verifyDeclaredRelationships(t, s, extractor.ReadTable)
}

func TestMySQLSpecificTables(t *testing.T) {
	ctx := context.Background()

	client, err := NewMySQLClient(ctx, mysqlTestURL())
	if err != nil {
		t.Fatalf("Failed to connect to MySQL: %v", err)
	}
	defer client.Close()

	s, err := NewMySQLExtractor(client, "").ExtractSchema(ctx, []string{"users", "products"})
	if err != nil {
		t.Fatalf("Failed to extract schema: %v", err)
	}
	if len(s.Tables) != 2 {
		t.Errorf("Expected 2 tables, got %d", len(s.Tables))
	}
	if s.FindTable("orders") != nil {
		t.Error("Should not include orders table")
	}
}
