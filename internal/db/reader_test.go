package db

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tordrt/modelcheck/internal/schema"
	"github.com/tordrt/modelcheck/internal/table"
)

func TestColumnType(t *testing.T) {
	tests := []struct {
		sqlType string
		want    table.Type
	}{
		{"integer", table.Int},
		{"BIGINT UNSIGNED", table.Int},
		{"bigserial", table.Int},
		{"tinyint(1)", table.Bool},
		{"boolean", table.Bool},
		{"numeric(10,2)", table.Float},
		{"double precision", table.Float},
		{"REAL", table.Float},
		{"varchar(255)", table.String},
		{"text", table.String},
		{"uuid", table.String},
		{"enum('a','b')", table.String},
		{"integer[]", table.Any},
		{"jsonb", table.Any},
		{"timestamp", table.Any},
		{"", table.Any},
	}

	for _, tt := range tests {
		t.Run(tt.sqlType, func(t *testing.T) {
			require.Equal(t, tt.want, ColumnType(tt.sqlType))
		})
	}
}

func TestCoerce(t *testing.T) {
	require.Equal(t, int64(42), coerce([]byte("42"), table.Int))
	require.Equal(t, 1.5, coerce("1.5", table.Float))
	require.Equal(t, true, coerce([]byte("1"), table.Bool))
	require.Equal(t, false, coerce(int64(0), table.Bool))
	require.Equal(t, "x", coerce([]byte("x"), table.Int), "unparseable text is kept")
	require.Equal(t, "7", coerce([]byte("7"), table.String))
}

func TestBuildTableDowngradesMismatchedColumns(t *testing.T) {
	cols := []schema.Column{
		{Name: "id", Type: "INTEGER"},
		{Name: "tags", Type: "text[]"},
		{Name: "n", Type: "int"},
	}
	raw := [][]any{
		{int64(1), []string{"a", "b"}, []byte("5")},
		{int64(2), nil, []byte("five")},
	}

	got, err := buildTable("t", cols, raw)
	require.NoError(t, err)

	types := got.Columns()
	require.Equal(t, table.Int, types[0].Type)
	require.Equal(t, table.Any, types[1].Type)
	require.Equal(t, table.Any, types[2].Type)

	require.Equal(t, "[a b]", got.Value(0, 1))
	require.Equal(t, int64(5), got.Value(0, 2))
	require.Equal(t, "five", got.Value(1, 2))
}

func TestBuildTableRowWidth(t *testing.T) {
	_, err := buildTable("t", []schema.Column{{Name: "a"}}, [][]any{{1, 2}})
	require.Error(t, err)
}

func TestQuoting(t *testing.T) {
	require.Equal(t, `"we""ird"`, quoteIdent(`we"ird`, '"'))
	require.Equal(t, "`a``b`", quoteIdent("a`b", '`'))
	require.Equal(t, `"public"."users"`, qualifiedName('"', "public", "users"))
	require.Equal(t, `"users"`, qualifiedName('"', "", "users"))
	require.Equal(t, `SELECT "id", "name" FROM "public"."users"`,
		selectStatement(qualifiedName('"', "public", "users"), []string{"id", "name"}, '"'))
}

func TestParseDatabaseName(t *testing.T) {
	name, err := ParseDatabaseName("root:pw@tcp(localhost:3306)/shop?parseTime=true")
	require.NoError(t, err)
	require.Equal(t, "shop", name)

	_, err = ParseDatabaseName("root:pw@tcp(localhost:3306)/")
	require.Error(t, err)
}
