package formatter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tordrt/modelcheck/internal/check"
	"github.com/tordrt/modelcheck/internal/schema"
	"github.com/tordrt/modelcheck/internal/table"
	"github.com/tordrt/modelcheck/internal/validate"
)

// TextFormatter formats output as compact text
type TextFormatter struct {
	writer io.Writer
	opts   Options
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer, opts Options) *TextFormatter {
	return &TextFormatter{writer: w, opts: opts}
}

// FormatSchema writes the schema in compact text format
func (f *TextFormatter) FormatSchema(s *schema.Schema) error {
	for i, t := range s.Tables {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}
		f.formatTable(t)
	}
	return nil
}

func (f *TextFormatter) formatTable(t schema.Table) {
	pkStr := ""
	if len(t.PrimaryKey) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(t.PrimaryKey, ", "))
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s%s\n", t.Name, pkStr)

	for _, col := range t.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.formatColumn(col))
	}

	if len(t.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, rel := range t.Relations {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s.%s (%s)\n", rel.SourceColumn, rel.TargetTable, rel.TargetColumn, rel.Cardinality)
		}
	}

	if len(t.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range t.Indexes {
			unique := ""
			if idx.IsUnique {
				unique = " UNIQUE"
			}
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), unique)
		}
	}
}

func (f *TextFormatter) formatColumn(col schema.Column) string {
	parts := []string{col.Name + ":"}

	typeStr := col.Type
	if len(col.EnumValues) > 0 {
		typeStr = fmt.Sprintf("%s (%s)", col.Type, strings.Join(col.EnumValues, "|"))
	}
	parts = append(parts, typeStr)

	if col.IsUnique {
		parts = append(parts, "UNIQUE")
	}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.DefaultValue != nil {
		parts = append(parts, fmt.Sprintf("DEFAULT %s", *col.DefaultValue))
	}

	return strings.Join(parts, " ")
}

// FormatRelationships writes one relationship per line
func (f *TextFormatter) FormatRelationships(rels []validate.Relationship) error {
	if len(rels) == 0 {
		_, _ = fmt.Fprintln(f.writer, "No relationships declared")
		return nil
	}
	for _, rel := range rels {
		_, _ = fmt.Fprintln(f.writer, relationshipTitle(rel))
	}
	return nil
}

// FormatReport writes the check report
func (f *TextFormatter) FormatReport(r *check.Report) error {
	t := r.Totals()
	_, _ = fmt.Fprintf(f.writer, "RUN %s", r.RunID)
	if r.Source != "" {
		_, _ = fmt.Fprintf(f.writer, " source=%s", r.Source)
	}
	_, _ = fmt.Fprintf(f.writer, " started=%s duration=%s\n", r.StartedAt.Format(time.RFC3339), r.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(f.writer, "%d checks: %d passed, %d failed, %d errored, %d violations\n",
		t.Checks, t.Passed, t.Failed, t.Errored, t.Violations)

	for _, d := range r.Dependencies {
		_, _ = fmt.Fprintln(f.writer)
		f.formatDependency(d)
	}
	for _, rel := range r.Relationships {
		_, _ = fmt.Fprintln(f.writer)
		f.formatRelationship(rel)
	}
	return nil
}

func (f *TextFormatter) formatDependency(d check.DependencyResult) {
	_, _ = fmt.Fprintf(f.writer, "DEPENDENCY %s  %s", dependencyTitle(d.Check), strings.ToUpper(string(d.Status)))
	if d.Status == check.StatusError {
		_, _ = fmt.Fprintf(f.writer, "\n  error: %v\n", d.Err)
		return
	}
	_, _ = fmt.Fprintf(f.writer, " (%d violations, %d rows)\n", len(d.Violations), d.Rows)

	shown, hidden := visible(len(d.Violations), f.opts.MaxRows)
	for _, v := range d.Violations[:shown] {
		_, _ = fmt.Fprintf(f.writer, "  %s=%s → %s; rows %s\n",
			d.Check.Determinant, table.Format(v.Determinant), formatDependents(v), formatRows(v.Rows))
	}
	if hidden > 0 {
		_, _ = fmt.Fprintf(f.writer, "  ... %d more\n", hidden)
	}
}

func (f *TextFormatter) formatRelationship(r check.RelationshipResult) {
	label := "RELATIONSHIP"
	if r.Discovered {
		label = "RELATIONSHIP (discovered)"
	}
	_, _ = fmt.Fprintf(f.writer, "%s %s  %s", label, relationshipTitle(r.Relationship), strings.ToUpper(string(r.Status)))
	if r.Status == check.StatusError {
		_, _ = fmt.Fprintf(f.writer, "\n  error: %v\n", r.Err)
		return
	}
	_, _ = fmt.Fprintf(f.writer, " (%d of %d rows orphaned, coverage %s)\n",
		r.Summary.ViolatingRows, r.Summary.ChildRows, formatCoverage(r.Summary.Coverage))
	if len(r.Summary.MissingKeys) > 0 {
		keys, hidden := visible(len(r.Summary.MissingKeys), f.opts.MaxRows)
		_, _ = fmt.Fprintf(f.writer, "  missing keys: %s", formatValues(r.Summary.MissingKeys[:keys]))
		if hidden > 0 {
			_, _ = fmt.Fprintf(f.writer, ", ... %d more", hidden)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	shown, hidden := visible(len(r.Violations), f.opts.MaxRows)
	for _, v := range r.Violations[:shown] {
		_, _ = fmt.Fprintf(f.writer, "  row %d: %s\n", v.Row, formatRecord(v.Record))
	}
	if hidden > 0 {
		_, _ = fmt.Fprintf(f.writer, "  ... %d more\n", hidden)
	}
}
