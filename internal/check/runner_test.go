package check

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tordrt/modelcheck/internal/fixture"
	"github.com/tordrt/modelcheck/internal/schema"
	"github.com/tordrt/modelcheck/internal/table"
	"github.com/tordrt/modelcheck/internal/validate"
)

const salesFixture = `
DimProducts:
  rows:
    - {ProductID: 1, ProductName: A}
    - {ProductID: 1, ProductName: B}
    - {ProductID: 2, ProductName: C}
DimCustomers:
  rows:
    - {CustomerID: 10}
    - {CustomerID: 11}
FactSales:
  rows:
    - {SaleID: 1, CustomerID: 10}
    - {SaleID: 2, CustomerID: 11}
    - {SaleID: 3, CustomerID: 999}
`

// countingSource records reads and can declare foreign keys or fail reads.
type countingSource struct {
	inner     *fixture.Source
	reads     map[string]int
	relations map[string][]schema.Relation
	broken    map[string]bool
	schemaErr error
}

func newCountingSource(t *testing.T) *countingSource {
	t.Helper()
	data, err := fixture.Parse([]byte(salesFixture))
	require.NoError(t, err)
	return &countingSource{inner: fixture.NewSource(data), reads: map[string]int{}}
}

func (s *countingSource) Schema(ctx context.Context, tables []string) (*schema.Schema, error) {
	if s.schemaErr != nil {
		return nil, s.schemaErr
	}
	sch, err := s.inner.Schema(ctx, tables)
	if err != nil {
		return nil, err
	}
	for i := range sch.Tables {
		sch.Tables[i].Relations = s.relations[sch.Tables[i].Name]
	}
	return sch, nil
}

func (s *countingSource) ReadTable(ctx context.Context, name string) (*table.Table, error) {
	s.reads[name]++
	if s.broken[name] {
		return nil, errors.New("connection reset")
	}
	return s.inner.ReadTable(ctx, name)
}

var customerSales = validate.Relationship{
	ParentTable: "DimCustomers", ParentColumn: "CustomerID",
	ChildTable: "FactSales", ChildColumn: "CustomerID",
}

func TestRun(t *testing.T) {
	src := newCountingSource(t)
	runner := &Runner{Source: src, Options: Options{SourceName: "sales.yaml"}}

	report, err := runner.Run(context.Background(), Plan{
		Dependencies: []DependencyCheck{
			{Table: "DimProducts", Determinant: "ProductID", Dependent: "ProductName"},
			{Table: "FactSales", Determinant: "SaleID", Dependent: "CustomerID"},
		},
		Relationships: []validate.Relationship{customerSales, customerSales},
	})
	require.NoError(t, err)

	require.NotEqual(t, uuid.Nil, report.RunID)
	require.Equal(t, "sales.yaml", report.Source)

	require.Len(t, report.Dependencies, 2)
	dep := report.Dependencies[0]
	require.Equal(t, StatusFail, dep.Status)
	require.Equal(t, 3, dep.Rows)
	if diff := cmp.Diff([]validate.DependencyViolation{{
		Determinant:     int64(1),
		DependentValues: []any{"A", "B"},
		Counts:          []int{1, 1},
		Rows:            []int{0, 1},
	}}, dep.Violations); diff != "" {
		t.Errorf("dependency violations mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, StatusPass, report.Dependencies[1].Status)

	require.Len(t, report.Relationships, 1, "duplicate relationships run once")
	rel := report.Relationships[0]
	require.Equal(t, StatusFail, rel.Status)
	require.Len(t, rel.Violations, 1)
	require.Equal(t, 2, rel.Violations[0].Row)
	require.Equal(t, int64(999), rel.Violations[0].Value)
	require.Equal(t, 3, rel.Summary.ChildRows)
	require.Equal(t, []any{int64(999)}, rel.Summary.MissingKeys)

	require.Equal(t, 1, report.ExitCode())
	for name, n := range src.reads {
		require.Equal(t, 1, n, "table %s read %d times", name, n)
	}
}

func TestRunRecordsErrorsAndContinues(t *testing.T) {
	src := newCountingSource(t)
	src.broken = map[string]bool{"DimProducts": true}

	core, logs := observer.New(zap.WarnLevel)
	runner := &Runner{Source: src, Logger: zap.New(core).Sugar()}

	report, err := runner.Run(context.Background(), Plan{
		Dependencies: []DependencyCheck{
			{Table: "DimProducts", Determinant: "ProductID", Dependent: "ProductName"},
			{Table: "DimProducts", Determinant: "ProductName", Dependent: "ProductID"},
			{Table: "DimCustomers", Determinant: "Missing", Dependent: "CustomerID"},
		},
		Relationships: []validate.Relationship{
			{ParentTable: "Nope", ParentColumn: "id", ChildTable: "FactSales", ChildColumn: "CustomerID"},
			{ParentTable: "DimCustomers", ParentColumn: "Region", ChildTable: "FactSales", ChildColumn: "CustomerID"},
			customerSales,
		},
	})
	require.NoError(t, err)

	require.Equal(t, StatusError, report.Dependencies[0].Status)
	require.Equal(t, StatusError, report.Dependencies[1].Status)
	require.Equal(t, 1, src.reads["DimProducts"], "failed reads are cached")
	require.ErrorIs(t, report.Dependencies[2].Err, validate.ErrColumnNotFound)

	require.Equal(t, StatusError, report.Relationships[0].Status)
	require.ErrorIs(t, report.Relationships[0].Err, fixture.ErrUnknownTable)
	require.Equal(t, StatusError, report.Relationships[1].Status)
	require.ErrorIs(t, report.Relationships[1].Err, validate.ErrColumnNotFound)
	require.Equal(t, StatusFail, report.Relationships[2].Status)

	totals := report.Totals()
	require.Equal(t, 6, totals.Checks)
	require.Equal(t, 5, totals.Errored)
	require.Equal(t, 2, report.ExitCode())
	require.Equal(t, 5, logs.Len())
}

func TestRunDiscover(t *testing.T) {
	src := newCountingSource(t)
	src.relations = map[string][]schema.Relation{
		"FactSales": {{TargetTable: "DimCustomers", TargetColumn: "CustomerID", SourceColumn: "CustomerID"}},
	}

	runner := &Runner{Source: src, Options: Options{Parallelism: 4}}
	report, err := runner.Run(context.Background(), Plan{Discover: true})
	require.NoError(t, err)

	require.Len(t, report.Relationships, 1)
	require.True(t, report.Relationships[0].Discovered)
	require.Equal(t, customerSales, report.Relationships[0].Relationship)

	report, err = runner.Run(context.Background(), Plan{
		Relationships: []validate.Relationship{customerSales},
		Discover:      true,
	})
	require.NoError(t, err)
	require.Len(t, report.Relationships, 1)
	require.False(t, report.Relationships[0].Discovered, "declared wins over discovered")
}

func TestRunDiscoverFailure(t *testing.T) {
	src := newCountingSource(t)
	src.schemaErr = errors.New("permission denied")

	_, err := (&Runner{Source: src}).Run(context.Background(), Plan{Discover: true})
	require.Error(t, err)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Runner{Source: newCountingSource(t)}).Run(ctx, Plan{
		Dependencies: []DependencyCheck{{Table: "DimProducts", Determinant: "ProductID", Dependent: "ProductName"}},
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name   string
		report Report
		want   int
	}{
		{"empty", Report{}, 0},
		{"pass", Report{Dependencies: []DependencyResult{{Status: StatusPass}}}, 0},
		{"fail", Report{Relationships: []RelationshipResult{{Status: StatusFail}}}, 1},
		{"error wins", Report{
			Dependencies:  []DependencyResult{{Status: StatusFail}},
			Relationships: []RelationshipResult{{Status: StatusError}},
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.report.ExitCode())
		})
	}
}
