package validate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/modelcheck/internal/table"
)

func mustTable(t *testing.T, name string, columns []string, rows ...[]any) *table.Table {
	t.Helper()

	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Name: c}
	}
	tbl, err := table.New(name, cols, rows)
	require.NoError(t, err)
	return tbl
}

func TestFindDependencyViolations(t *testing.T) {
	products := mustTable(t, "DimProducts", []string{"ProductID", "ProductName"},
		[]any{1, "A"},
		[]any{1, "B"},
		[]any{2, "C"},
	)

	tests := []struct {
		name string
		tbl  *table.Table
		opts *DependencyOptions
		want []DependencyViolation
	}{
		{
			name: "product id maps to two names",
			tbl:  products,
			want: []DependencyViolation{
				{
					Determinant:     int64(1),
					DependentValues: []any{"A", "B"},
					Counts:          []int{1, 1},
					Rows:            []int{0, 1},
				},
			},
		},
		{
			name: "consistent table",
			tbl: mustTable(t, "T", []string{"k", "v"},
				[]any{1, "x"},
				[]any{2, "y"},
				[]any{1, "x"},
			),
			want: nil,
		},
		{
			name: "empty table",
			tbl:  mustTable(t, "T", []string{"k", "v"}),
			want: nil,
		},
		{
			name: "ordered by first occurrence and dependent values sorted",
			tbl: mustTable(t, "T", []string{"k", "v"},
				[]any{"b", "z"},
				[]any{"a", 2},
				[]any{"b", "y"},
				[]any{"a", 1},
				[]any{"a", 2},
				[]any{"b", "z"},
			),
			want: []DependencyViolation{
				{Determinant: "b", DependentValues: []any{"y", "z"}, Counts: []int{1, 2}, Rows: []int{0, 2, 5}},
				{Determinant: "a", DependentValues: []any{int64(1), int64(2)}, Counts: []int{1, 2}, Rows: []int{1, 3, 4}},
			},
		},
		{
			name: "null dependent is a distinct value",
			tbl: mustTable(t, "T", []string{"k", "v"},
				[]any{1, "x"},
				[]any{1, nil},
			),
			want: []DependencyViolation{
				{Determinant: int64(1), DependentValues: []any{nil, "x"}, Counts: []int{1, 1}, Rows: []int{0, 1}},
			},
		},
		{
			name: "null determinants grouped by default",
			tbl: mustTable(t, "T", []string{"k", "v"},
				[]any{nil, "x"},
				[]any{2, "y"},
				[]any{nil, "z"},
			),
			want: []DependencyViolation{
				{Determinant: nil, DependentValues: []any{"x", "z"}, Counts: []int{1, 1}, Rows: []int{0, 2}},
			},
		},
		{
			name: "null determinants skipped",
			tbl: mustTable(t, "T", []string{"k", "v"},
				[]any{nil, "x"},
				[]any{2, "y"},
				[]any{nil, "z"},
			),
			opts: &DependencyOptions{NullDeterminant: SkipNull},
			want: nil,
		},
		{
			name: "integral float determinant joins int group",
			tbl: mustTable(t, "T", []string{"k", "v"},
				[]any{10, "x"},
				[]any{10.0, "y"},
			),
			want: []DependencyViolation{
				{Determinant: int64(10), DependentValues: []any{"x", "y"}, Counts: []int{1, 1}, Rows: []int{0, 1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var determinant, dependent string
			names := tt.tbl.ColumnNames()
			determinant, dependent = names[0], names[1]

			got, err := FindDependencyViolations(tt.tbl, determinant, dependent, tt.opts)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FindDependencyViolations() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFindDependencyViolationsMissingColumn(t *testing.T) {
	tbl := mustTable(t, "DimProducts", []string{"ProductID", "ProductName"})

	_, err := FindDependencyViolations(tbl, "SKU", "ProductName", nil)
	require.ErrorIs(t, err, ErrColumnNotFound)

	var colErr *ColumnNotFoundError
	require.ErrorAs(t, err, &colErr)
	require.Equal(t, "SKU", colErr.Column)
	require.Equal(t, "DimProducts", colErr.Table)

	_, err = FindDependencyViolations(tbl, "ProductID", "Name", nil)
	require.ErrorAs(t, err, &colErr)
	require.Equal(t, "Name", colErr.Column)
}

func TestFindDependencyViolationsIdempotent(t *testing.T) {
	tbl := mustTable(t, "T", []string{"k", "v"},
		[]any{1, "a"},
		[]any{1, "b"},
		[]any{2, "c"},
		[]any{2, "d"},
	)

	first, err := FindDependencyViolations(tbl, "k", "v", nil)
	require.NoError(t, err)
	second, err := FindDependencyViolations(tbl, "k", "v", nil)
	require.NoError(t, err)

	require.Len(t, first, 2)
	require.Empty(t, cmp.Diff(first, second))
}

func TestFindDependencyViolationsRowOrderIndependent(t *testing.T) {
	a := mustTable(t, "T", []string{"k", "v"},
		[]any{1, "a"},
		[]any{2, "c"},
		[]any{1, "b"},
	)
	b := mustTable(t, "T", []string{"k", "v"},
		[]any{1, "b"},
		[]any{2, "c"},
		[]any{1, "a"},
	)

	va, err := FindDependencyViolations(a, "k", "v", nil)
	require.NoError(t, err)
	vb, err := FindDependencyViolations(b, "k", "v", nil)
	require.NoError(t, err)

	require.Len(t, va, 1)
	require.Len(t, vb, 1)
	require.Equal(t, va[0].Determinant, vb[0].Determinant)
	require.Equal(t, va[0].DependentValues, vb[0].DependentValues)
}
