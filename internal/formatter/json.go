package formatter

import (
	"io"
	"math"
	"time"

	"github.com/tordrt/modelcheck/internal/check"
	"github.com/tordrt/modelcheck/internal/schema"
	"github.com/tordrt/modelcheck/internal/table"
	"github.com/tordrt/modelcheck/internal/validate"
)

// JSONFormatter writes machine-readable output
type JSONFormatter struct {
	writer io.Writer
	opts   Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer, opts Options) *JSONFormatter {
	return &JSONFormatter{writer: w, opts: opts}
}

type jsonColumn struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Nullable   bool     `json:"nullable"`
	Unique     bool     `json:"unique,omitempty"`
	Default    *string  `json:"default,omitempty"`
	EnumValues []string `json:"enum_values,omitempty"`
}

type jsonRelation struct {
	Column       string `json:"column"`
	TargetTable  string `json:"target_table"`
	TargetColumn string `json:"target_column"`
	Cardinality  string `json:"cardinality,omitempty"`
}

type jsonIndex struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

type jsonTable struct {
	Name       string         `json:"name"`
	PrimaryKey []string       `json:"primary_key,omitempty"`
	Columns    []jsonColumn   `json:"columns"`
	Relations  []jsonRelation `json:"relations,omitempty"`
	Indexes    []jsonIndex    `json:"indexes,omitempty"`
}

type jsonRelationship struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

type jsonTotals struct {
	Checks     int `json:"checks"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Errored    int `json:"errored"`
	Violations int `json:"violations"`
}

type jsonReport struct {
	RunID         string                   `json:"run_id"`
	Source        string                   `json:"source,omitempty"`
	StartedAt     time.Time                `json:"started_at"`
	DurationMS    int64                    `json:"duration_ms"`
	ExitCode      int                      `json:"exit_code"`
	Totals        jsonTotals               `json:"totals"`
	Dependencies  []jsonDependencyResult   `json:"dependencies"`
	Relationships []jsonRelationshipResult `json:"relationships"`
}

type jsonDependentValue struct {
	Value any `json:"value"`
	Count int `json:"count"`
}

type jsonDependencyViolation struct {
	Determinant any                  `json:"determinant"`
	Values      []jsonDependentValue `json:"values"`
	Rows        []int                `json:"rows"`
}

type jsonDependencyResult struct {
	Table           string                    `json:"table"`
	Determinant     string                    `json:"determinant"`
	Dependent       string                    `json:"dependent"`
	NullDeterminant string                    `json:"null_determinant"`
	Status          check.Status              `json:"status"`
	Rows            int                       `json:"rows"`
	ViolationCount  int                       `json:"violation_count"`
	Violations      []jsonDependencyViolation `json:"violations"`
	Omitted         int                       `json:"omitted,omitempty"`
	Error           string                    `json:"error,omitempty"`
}

type jsonRelationshipViolation struct {
	Row    int            `json:"row"`
	Value  any            `json:"value"`
	Record map[string]any `json:"record"`
}

type jsonRelationshipResult struct {
	jsonRelationship
	Discovered     bool                        `json:"discovered,omitempty"`
	Status         check.Status                `json:"status"`
	ChildRows      int                         `json:"child_rows"`
	ViolatingRows  int                         `json:"violating_rows"`
	Coverage       float64                     `json:"coverage"`
	MissingKeys    []any                       `json:"missing_keys"`
	ViolationCount int                         `json:"violation_count"`
	Violations     []jsonRelationshipViolation `json:"violations"`
	Omitted        int                         `json:"omitted,omitempty"`
	Error          string                      `json:"error,omitempty"`
}

// FormatSchema writes the schema as a JSON array of tables
func (f *JSONFormatter) FormatSchema(s *schema.Schema) error {
	tables := make([]jsonTable, 0, len(s.Tables))
	for _, t := range s.Tables {
		jt := jsonTable{Name: t.Name, PrimaryKey: t.PrimaryKey, Columns: make([]jsonColumn, len(t.Columns))}
		for i, c := range t.Columns {
			jt.Columns[i] = jsonColumn{
				Name: c.Name, Type: c.Type, Nullable: c.Nullable, Unique: c.IsUnique,
				Default: c.DefaultValue, EnumValues: c.EnumValues,
			}
		}
		for _, rel := range t.Relations {
			jt.Relations = append(jt.Relations, jsonRelation{
				Column: rel.SourceColumn, TargetTable: rel.TargetTable,
				TargetColumn: rel.TargetColumn, Cardinality: rel.Cardinality,
			})
		}
		for _, idx := range t.Indexes {
			jt.Indexes = append(jt.Indexes, jsonIndex{Name: idx.Name, Columns: idx.Columns, Unique: idx.IsUnique})
		}
		tables = append(tables, jt)
	}
	return f.encode(tables)
}

// FormatRelationships writes the relationships as a JSON array
func (f *JSONFormatter) FormatRelationships(rels []validate.Relationship) error {
	out := make([]jsonRelationship, len(rels))
	for i, rel := range rels {
		out[i] = toJSONRelationship(rel)
	}
	return f.encode(out)
}

// FormatReport writes the check report as one JSON object
func (f *JSONFormatter) FormatReport(r *check.Report) error {
	t := r.Totals()
	out := jsonReport{
		RunID:         r.RunID.String(),
		Source:        r.Source,
		StartedAt:     r.StartedAt,
		DurationMS:    r.Duration.Milliseconds(),
		ExitCode:      r.ExitCode(),
		Totals:        jsonTotals(t),
		Dependencies:  make([]jsonDependencyResult, 0, len(r.Dependencies)),
		Relationships: make([]jsonRelationshipResult, 0, len(r.Relationships)),
	}

	for _, d := range r.Dependencies {
		out.Dependencies = append(out.Dependencies, f.dependencyResult(d))
	}
	for _, rel := range r.Relationships {
		out.Relationships = append(out.Relationships, f.relationshipResult(rel))
	}

	return f.encode(out)
}

func (f *JSONFormatter) dependencyResult(d check.DependencyResult) jsonDependencyResult {
	jd := jsonDependencyResult{
		Table:           d.Check.Table,
		Determinant:     d.Check.Determinant,
		Dependent:       d.Check.Dependent,
		NullDeterminant: d.Check.Options.NullDeterminant.String(),
		Status:          d.Status,
		Rows:            d.Rows,
		ViolationCount:  len(d.Violations),
		Violations:      []jsonDependencyViolation{},
	}
	if d.Err != nil {
		jd.Error = d.Err.Error()
	}

	shown, hidden := visible(len(d.Violations), f.opts.MaxRows)
	jd.Omitted = hidden
	for _, v := range d.Violations[:shown] {
		jv := jsonDependencyViolation{Determinant: jsonValue(v.Determinant), Rows: v.Rows}
		for i, dv := range v.DependentValues {
			jv.Values = append(jv.Values, jsonDependentValue{Value: jsonValue(dv), Count: v.Counts[i]})
		}
		jd.Violations = append(jd.Violations, jv)
	}
	return jd
}

func (f *JSONFormatter) relationshipResult(r check.RelationshipResult) jsonRelationshipResult {
	jr := jsonRelationshipResult{
		jsonRelationship: toJSONRelationship(r.Relationship),
		Discovered:       r.Discovered,
		Status:           r.Status,
		ChildRows:        r.Summary.ChildRows,
		ViolatingRows:    r.Summary.ViolatingRows,
		Coverage:         r.Summary.Coverage,
		MissingKeys:      []any{},
		ViolationCount:   len(r.Violations),
		Violations:       []jsonRelationshipViolation{},
	}
	if r.Err != nil {
		jr.Error = r.Err.Error()
	}
	for _, k := range r.Summary.MissingKeys {
		jr.MissingKeys = append(jr.MissingKeys, jsonValue(k))
	}

	shown, hidden := visible(len(r.Violations), f.opts.MaxRows)
	jr.Omitted = hidden
	for _, v := range r.Violations[:shown] {
		rec := make(map[string]any, len(v.Record))
		for k, val := range v.Record {
			rec[k] = jsonValue(val)
		}
		jr.Violations = append(jr.Violations, jsonRelationshipViolation{Row: v.Row, Value: jsonValue(v.Value), Record: rec})
	}
	return jr
}

func toJSONRelationship(rel validate.Relationship) jsonRelationship {
	return jsonRelationship{
		Parent: rel.ParentTable + "." + rel.ParentColumn,
		Child:  rel.ChildTable + "." + rel.ChildColumn,
	}
}

// jsonValue makes a normalized value encodable; infinities have no JSON form.
func jsonValue(v any) any {
	if f, ok := v.(float64); ok && math.IsInf(f, 0) {
		return table.Format(f)
	}
	return v
}

func (f *JSONFormatter) encode(v any) error {
	return encodeJSON(f.writer, v)
}
