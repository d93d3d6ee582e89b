package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tordrt/modelcheck/internal/validate"
)

func TestSchemaRelationships(t *testing.T) {
	s := &Schema{
		Tables: []Table{
			{Name: "DimCustomers"},
			{
				Name: "FactSales",
				Relations: []Relation{
					{SourceColumn: "CustomerID", TargetTable: "DimCustomers", TargetColumn: "CustomerID", Cardinality: "N:1"},
					{SourceColumn: "ProductID", TargetTable: "DimProducts", TargetColumn: "ProductID", Cardinality: "N:1"},
				},
			},
			{
				Name: "FactReturns",
				Relations: []Relation{
					{SourceColumn: "SaleID", TargetTable: "FactSales", TargetColumn: "SaleID", Cardinality: "N:1"},
				},
			},
		},
	}

	want := []validate.Relationship{
		{ParentTable: "DimCustomers", ParentColumn: "CustomerID", ChildTable: "FactSales", ChildColumn: "CustomerID"},
		{ParentTable: "DimProducts", ParentColumn: "ProductID", ChildTable: "FactSales", ChildColumn: "ProductID"},
		{ParentTable: "FactSales", ParentColumn: "SaleID", ChildTable: "FactReturns", ChildColumn: "SaleID"},
	}
	require.Equal(t, want, s.Relationships())
}

func TestSchemaFindTable(t *testing.T) {
	s := &Schema{Tables: []Table{{Name: "users"}, {Name: "orders"}}}

	require.Equal(t, []string{"users", "orders"}, s.TableNames())
	require.NotNil(t, s.FindTable("orders"))
	require.Nil(t, s.FindTable("posts"))
	require.Empty(t, (&Schema{}).Relationships())
}
