package schema

import "github.com/tordrt/modelcheck/internal/validate"

// Schema is the structural metadata of a data source
type Schema struct {
	Tables []Table
}

// Table describes one source table
type Table struct {
	Name       string
	Columns    []Column
	Relations  []Relation
	Indexes    []Index
	PrimaryKey []string
}

// Column describes one column as declared by the source
type Column struct {
	Name            string
	Type            string
	Nullable        bool
	DefaultValue    *string
	IsUnique        bool
	EnumValues      []string
	CheckConstraint *string
}

// Relation is a declared foreign key from this table to a target table
type Relation struct {
	TargetTable  string
	TargetColumn string
	SourceColumn string
	Cardinality  string // 1:1, 1:N, N:1
}

// Index describes a secondary index
type Index struct {
	Name     string
	Columns  []string
	IsUnique bool
}

// FindTable returns the named table, or nil.
func (s *Schema) FindTable(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// TableNames lists the tables in schema order.
func (s *Schema) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// Relationships flattens every foreign key into a relationship check with
// the referenced table as parent and the referencing table as child.
func (s *Schema) Relationships() []validate.Relationship {
	var rels []validate.Relationship
	for _, t := range s.Tables {
		for _, rel := range t.Relations {
			rels = append(rels, validate.Relationship{
				ParentTable:  rel.TargetTable,
				ParentColumn: rel.TargetColumn,
				ChildTable:   t.Name,
				ChildColumn:  rel.SourceColumn,
			})
		}
	}
	return rels
}
