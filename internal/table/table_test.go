package table

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	id := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "nil", in: nil, want: nil},
		{name: "string", in: "abc", want: "abc"},
		{name: "bool", in: true, want: true},
		{name: "int", in: 7, want: int64(7)},
		{name: "int32", in: int32(-3), want: int64(-3)},
		{name: "uint64", in: uint64(10), want: int64(10)},
		{name: "integral float", in: 10.0, want: int64(10)},
		{name: "fractional float", in: 2.5, want: 2.5},
		{name: "float32", in: float32(1.5), want: 1.5},
		{name: "NaN is null", in: math.NaN(), want: nil},
		{name: "bytes", in: []byte("xyz"), want: "xyz"},
		{name: "time", in: ts, want: "2024-03-01T12:00:00Z"},
		{name: "uuid", in: id, want: "7d444840-9dc0-11d1-b245-5ffdce74fad2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeUnsupported(t *testing.T) {
	_, err := Normalize(struct{}{})
	require.ErrorIs(t, err, ErrUnsupportedValue)

	_, err = Normalize(uint64(math.MaxUint64))
	require.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b any
		want int
	}{
		{nil, nil, 0},
		{nil, false, -1},
		{false, true, -1},
		{true, int64(0), -1},
		{int64(1), 1.5, -1},
		{2.5, int64(2), 1},
		{int64(3), int64(3), 0},
		{int64(100), "1", -1},
		{"A", "B", -1},
		{"b", "a", 1},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, Compare(tt.a, tt.b), "Compare(%v, %v)", tt.a, tt.b)
	}
}

func TestNew(t *testing.T) {
	tbl, err := New("DimProducts",
		[]Column{{Name: "ProductID", Type: Int}, {Name: "ProductName", Type: String}},
		[][]any{
			{1, "A"},
			{uint64(2), "B"},
			{nil, nil},
		})
	require.NoError(t, err)

	require.Equal(t, "DimProducts", tbl.Name())
	require.Equal(t, 3, tbl.Len())
	require.Equal(t, []string{"ProductID", "ProductName"}, tbl.ColumnNames())
	require.True(t, tbl.HasColumn("ProductName"))
	require.False(t, tbl.HasColumn("Missing"))

	idx, ok := tbl.ColumnIndex("ProductName")
	require.True(t, ok)
	require.Equal(t, 1, idx)

	require.Equal(t, int64(2), tbl.Value(1, 0))
	require.Equal(t, map[string]any{"ProductID": nil, "ProductName": nil}, tbl.Record(2))
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name    string
		columns []Column
		rows    [][]any
		wantErr error
	}{
		{
			name:    "row width mismatch",
			columns: []Column{{Name: "a"}, {Name: "b"}},
			rows:    [][]any{{1}},
		},
		{
			name:    "duplicate column",
			columns: []Column{{Name: "a"}, {Name: "a"}},
		},
		{
			name:    "empty column name",
			columns: []Column{{Name: ""}},
		},
		{
			name:    "type mismatch",
			columns: []Column{{Name: "id", Type: Int}},
			rows:    [][]any{{"x"}},
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "fraction in int column",
			columns: []Column{{Name: "id", Type: Int}},
			rows:    [][]any{{1.5}},
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "unsupported value",
			columns: []Column{{Name: "id"}},
			rows:    [][]any{{[]int{1}}},
			wantErr: ErrUnsupportedValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("t", tt.columns, tt.rows)
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestFromRecords(t *testing.T) {
	cols := []Column{{Name: "CustomerID", Type: Int}, {Name: "Region"}}

	tbl, err := FromRecords("DimCustomers", cols, []map[string]any{
		{"CustomerID": 10, "Region": "North"},
		{"CustomerID": 11},
	})
	require.NoError(t, err)
	require.Equal(t, Row{int64(11), nil}, tbl.Row(1))

	_, err = FromRecords("DimCustomers", cols, []map[string]any{{"Unknown": 1}})
	require.ErrorContains(t, err, `unknown column "Unknown"`)
}

func TestRowIsCopy(t *testing.T) {
	tbl, err := New("t", []Column{{Name: "a"}}, [][]any{{"x"}})
	require.NoError(t, err)

	row := tbl.Row(0)
	row[0] = "changed"
	rec := tbl.Record(0)
	rec["a"] = "changed"

	require.Equal(t, "x", tbl.Value(0, 0))
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{
		"":        Any,
		"INTEGER": Int,
		"text":    String,
		"double":  Float,
		"bool":    Bool,
	} {
		got, err := ParseType(in)
		require.NoError(t, err)
		require.Equal(t, want, got, in)
	}

	_, err := ParseType("blob")
	require.Error(t, err)
}
