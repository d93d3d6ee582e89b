package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tordrt/modelcheck/internal/table"
)

const sqliteFixture = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	region TEXT,
	active BOOLEAN DEFAULT 1
);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	user_id INTEGER REFERENCES users,
	amount REAL
);
CREATE INDEX idx_region ON users(region);
INSERT INTO users (id, username, region, active) VALUES
	(1, 'ann', 'eu', 1),
	(2, 'bob', 'us', 0),
	(3, 'cid', NULL, 1);
INSERT INTO orders (id, user_id, amount) VALUES
	(10, 1, 9.5),
	(11, 7, 12),
	(12, NULL, 3.25);
`

// newSQLiteFixture writes a small database to a temp file and opens it
// through the read-only client.
func newSQLiteFixture(t *testing.T) *SQLiteExtractor {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "fixture.db")
	rw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = rw.ExecContext(ctx, sqliteFixture)
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	client, err := NewSQLiteClient(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewSQLiteExtractor(client)
}

func TestSQLiteClientMissingFile(t *testing.T) {
	_, err := NewSQLiteClient(context.Background(), filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
}

func TestSQLiteExtractSchema(t *testing.T) {
	e := newSQLiteFixture(t)

	s, err := e.ExtractSchema(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"orders", "users"}, s.TableNames())

	users := s.FindTable("users")
	require.NotNil(t, users)
	require.Equal(t, []string{"id"}, users.PrimaryKey)

	var username, region bool
	for _, col := range users.Columns {
		switch col.Name {
		case "username":
			username = col.IsUnique
			require.False(t, col.Nullable)
		case "region":
			region = col.IsUnique
		}
	}
	require.True(t, username, "username should be unique")
	require.False(t, region, "region should not be unique")

	var found bool
	for _, idx := range users.Indexes {
		if idx.Name == "idx_region" {
			found = true
			require.Equal(t, []string{"region"}, idx.Columns)
			require.False(t, idx.IsUnique)
		}
	}
	require.True(t, found, "idx_region not extracted")

	orders := s.FindTable("orders")
	require.NotNil(t, orders)
	require.Len(t, orders.Relations, 1)
	rel := orders.Relations[0]
	require.Equal(t, "users", rel.TargetTable)
	require.Equal(t, "id", rel.TargetColumn, "omitted FK target resolves to the parent key")
	require.Equal(t, "user_id", rel.SourceColumn)
	require.Equal(t, "N:1", rel.Cardinality)

	rels := s.Relationships()
	require.Len(t, rels, 1)
	require.Equal(t, "users.id -> orders.user_id", rels[0].String())
}

func TestSQLiteExtractSpecificTables(t *testing.T) {
	e := newSQLiteFixture(t)

	s, err := e.ExtractSchema(context.Background(), []string{"users"})
	require.NoError(t, err)
	require.Equal(t, []string{"users"}, s.TableNames())

	_, err = e.ExtractSchema(context.Background(), []string{"missing"})
	require.Error(t, err)
}

func TestSQLiteReadTable(t *testing.T) {
	e := newSQLiteFixture(t)
	ctx := context.Background()

	users, err := e.ReadTable(ctx, "users")
	require.NoError(t, err)
	require.Equal(t, 3, users.Len())
	require.Equal(t, []string{"id", "username", "region", "active"}, users.ColumnNames())

	cols := users.Columns()
	require.Equal(t, table.Int, cols[0].Type)
	require.Equal(t, table.String, cols[1].Type)
	require.Equal(t, table.Bool, cols[3].Type)

	require.Equal(t, map[string]any{"id": int64(3), "username": "cid", "region": nil, "active": true}, users.Record(2))

	orders, err := e.ReadTable(ctx, "orders")
	require.NoError(t, err)
	require.Equal(t, int64(12), orders.Value(1, 2), "integral REAL collapses to int")
	require.Equal(t, 3.25, orders.Value(2, 2))

	_, err = e.ReadTable(ctx, "missing")
	require.Error(t, err)
}
