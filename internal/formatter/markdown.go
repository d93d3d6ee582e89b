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

// MarkdownFormatter formats output as markdown
type MarkdownFormatter struct {
	writer io.Writer
	opts   Options
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer, opts Options) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w, opts: opts}
}

// FormatSchema writes the schema in markdown format
func (f *MarkdownFormatter) FormatSchema(s *schema.Schema) error {
	_, _ = fmt.Fprintln(f.writer, "# Database Schema")
	_, _ = fmt.Fprintln(f.writer)

	for _, t := range s.Tables {
		f.formatTable(t, s)
	}
	return nil
}

func (f *MarkdownFormatter) formatTable(t schema.Table, s *schema.Schema) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", t.Name)

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)
	for _, col := range t.Columns {
		typeStr := col.Type
		if len(col.EnumValues) > 0 {
			typeStr = fmt.Sprintf("%s (%s)", col.Type, strings.Join(col.EnumValues, "|"))
		}

		constraintStr := formatConstraints(col, t.PrimaryKey)
		if constraintStr != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", col.Name, typeStr, constraintStr)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", col.Name, typeStr)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	if len(t.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range t.Relations {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s.%s (%s)\n",
				rel.SourceColumn,
				rel.TargetTable,
				rel.TargetColumn,
				rel.Cardinality)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if incoming := findIncomingRelations(t.Name, s); len(incoming) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Referenced by")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range incoming {
			_, _ = fmt.Fprintf(f.writer, "- %s.%s → %s\n", rel.SourceTable, rel.SourceColumn, rel.TargetColumn)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(t.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Idx")
		_, _ = fmt.Fprintln(f.writer)
		for _, idx := range t.Indexes {
			if idx.IsUnique {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s), unique\n", idx.Name, strings.Join(idx.Columns, ", "))
			} else {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s)\n", idx.Name, strings.Join(idx.Columns, ", "))
			}
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

func formatConstraints(col schema.Column, primaryKey []string) string {
	var constraints []string

	for _, pk := range primaryKey {
		if pk == col.Name {
			constraints = append(constraints, "PK")
			break
		}
	}
	if col.IsUnique {
		constraints = append(constraints, "UNIQUE")
	}
	if !col.Nullable {
		constraints = append(constraints, "NOT NULL")
	}
	if col.DefaultValue != nil {
		constraints = append(constraints, fmt.Sprintf("DEFAULT %s", *col.DefaultValue))
	}
	if col.CheckConstraint != nil {
		constraints = append(constraints, fmt.Sprintf("CHECK(%s)", *col.CheckConstraint))
	}

	return strings.Join(constraints, ", ")
}

// FormatRelationships writes the relationships as a markdown table
func (f *MarkdownFormatter) FormatRelationships(rels []validate.Relationship) error {
	_, _ = fmt.Fprintln(f.writer, "# Relationships")
	_, _ = fmt.Fprintln(f.writer)
	if len(rels) == 0 {
		_, _ = fmt.Fprintln(f.writer, "_No relationships declared._")
		return nil
	}

	_, _ = fmt.Fprintln(f.writer, "| Parent | Child |")
	_, _ = fmt.Fprintln(f.writer, "|---|---|")
	for _, rel := range rels {
		_, _ = fmt.Fprintf(f.writer, "| %s.%s | %s.%s |\n",
			escapeCell(rel.ParentTable), escapeCell(rel.ParentColumn),
			escapeCell(rel.ChildTable), escapeCell(rel.ChildColumn))
	}
	return nil
}

// FormatReport writes the check report
func (f *MarkdownFormatter) FormatReport(r *check.Report) error {
	f.formatSummary(r)
	if len(r.Dependencies) > 0 {
		_, _ = fmt.Fprintln(f.writer, "## Dependencies")
		_, _ = fmt.Fprintln(f.writer)
		for _, d := range r.Dependencies {
			f.formatDependency(d)
		}
	}
	if len(r.Relationships) > 0 {
		_, _ = fmt.Fprintln(f.writer, "## Relationships")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range r.Relationships {
			f.formatRelationship(rel)
		}
	}
	return nil
}

func (f *MarkdownFormatter) formatSummary(r *check.Report) {
	t := r.Totals()
	_, _ = fmt.Fprintln(f.writer, "# Model Check Report")
	_, _ = fmt.Fprintln(f.writer)
	_, _ = fmt.Fprintf(f.writer, "- **Run:** `%s`\n", r.RunID)
	if r.Source != "" {
		_, _ = fmt.Fprintf(f.writer, "- **Source:** `%s`\n", r.Source)
	}
	_, _ = fmt.Fprintf(f.writer, "- **Started:** %s (%s)\n", r.StartedAt.Format(time.RFC3339), r.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(f.writer, "- **Checks:** %d (%d passed, %d failed, %d errored)\n", t.Checks, t.Passed, t.Failed, t.Errored)
	_, _ = fmt.Fprintf(f.writer, "- **Violations:** %d\n\n", t.Violations)
}

func (f *MarkdownFormatter) formatDependency(d check.DependencyResult) {
	_, _ = fmt.Fprintf(f.writer, "### %s (%s)\n\n", dependencyTitle(d.Check), d.Status)
	if d.Status == check.StatusError {
		_, _ = fmt.Fprintf(f.writer, "**Error:** %s\n\n", escapeCell(fmt.Sprint(d.Err)))
		return
	}
	if len(d.Violations) == 0 {
		_, _ = fmt.Fprintf(f.writer, "No violations in %d rows.\n\n", d.Rows)
		return
	}

	_, _ = fmt.Fprintf(f.writer, "| %s | %s | Rows |\n", escapeCell(d.Check.Determinant), escapeCell(d.Check.Dependent))
	_, _ = fmt.Fprintln(f.writer, "|---|---|---|")
	shown, hidden := visible(len(d.Violations), f.opts.MaxRows)
	for _, v := range d.Violations[:shown] {
		_, _ = fmt.Fprintf(f.writer, "| %s | %s | %s |\n",
			escapeCell(table.Format(v.Determinant)), escapeCell(formatDependents(v)), formatRows(v.Rows))
	}
	_, _ = fmt.Fprintln(f.writer)
	if hidden > 0 {
		_, _ = fmt.Fprintf(f.writer, "_... %d more_\n\n", hidden)
	}
}

func (f *MarkdownFormatter) formatRelationship(r check.RelationshipResult) {
	suffix := ""
	if r.Discovered {
		suffix = ", discovered"
	}
	_, _ = fmt.Fprintf(f.writer, "### %s (%s%s)\n\n", relationshipTitle(r.Relationship), r.Status, suffix)
	if r.Status == check.StatusError {
		_, _ = fmt.Fprintf(f.writer, "**Error:** %s\n\n", escapeCell(fmt.Sprint(r.Err)))
		return
	}

	s := r.Summary
	_, _ = fmt.Fprintf(f.writer, "- **Child rows:** %d\n", s.ChildRows)
	_, _ = fmt.Fprintf(f.writer, "- **Orphaned rows:** %d\n", s.ViolatingRows)
	_, _ = fmt.Fprintf(f.writer, "- **Coverage:** %s\n", formatCoverage(s.Coverage))
	if len(s.MissingKeys) > 0 {
		keys, hidden := visible(len(s.MissingKeys), f.opts.MaxRows)
		more := ""
		if hidden > 0 {
			more = fmt.Sprintf(", ... %d more", hidden)
		}
		_, _ = fmt.Fprintf(f.writer, "- **Missing keys:** %s%s\n", escapeCell(formatValues(s.MissingKeys[:keys])), more)
	}
	_, _ = fmt.Fprintln(f.writer)

	if len(r.Violations) == 0 {
		return
	}
	_, _ = fmt.Fprintf(f.writer, "| Row | %s | Record |\n", escapeCell(r.Relationship.ChildColumn))
	_, _ = fmt.Fprintln(f.writer, "|---|---|---|")
	shown, hidden := visible(len(r.Violations), f.opts.MaxRows)
	for _, v := range r.Violations[:shown] {
		_, _ = fmt.Fprintf(f.writer, "| %d | %s | %s |\n", v.Row, escapeCell(table.Format(v.Value)), escapeCell(formatRecord(v.Record)))
	}
	_, _ = fmt.Fprintln(f.writer)
	if hidden > 0 {
		_, _ = fmt.Fprintf(f.writer, "_... %d more_\n\n", hidden)
	}
}

// escapeCell keeps a value on one markdown table line
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
