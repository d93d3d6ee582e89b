package formatter

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tordrt/modelcheck/internal/check"
	"github.com/tordrt/modelcheck/internal/schema"
	"github.com/tordrt/modelcheck/internal/table"
	"github.com/tordrt/modelcheck/internal/validate"
)

const (
	formatMarkdown = "markdown"
	formatText     = "text"
	formatJSON     = "json"
)

// maxRowIndices caps the row numbers listed for one dependency violation.
const maxRowIndices = 20

// Formatter renders schemas, relationship lists and check reports.
type Formatter interface {
	FormatSchema(s *schema.Schema) error
	FormatRelationships(rels []validate.Relationship) error
	FormatReport(r *check.Report) error
}

// Options controls report rendering.
type Options struct {
	// MaxRows caps the violations listed per check; 0 lists all of them.
	MaxRows int
}

// New returns the formatter for format ("text", "markdown" or "json").
func New(format string, w io.Writer, opts Options) (Formatter, error) {
	switch format {
	case formatText:
		return NewTextFormatter(w, opts), nil
	case formatMarkdown:
		return NewMarkdownFormatter(w, opts), nil
	case formatJSON:
		return NewJSONFormatter(w, opts), nil
	default:
		return nil, fmt.Errorf("invalid format: %s (must be 'text', 'markdown' or 'json')", format)
	}
}

// visible returns how many of n items to show and how many are hidden.
func visible(n, maxRows int) (shown, hidden int) {
	if maxRows <= 0 || n <= maxRows {
		return n, 0
	}
	return maxRows, n - maxRows
}

func formatRows(rows []int) string {
	shown, hidden := visible(len(rows), maxRowIndices)
	parts := make([]string, 0, shown+1)
	for _, r := range rows[:shown] {
		parts = append(parts, strconv.Itoa(r))
	}
	if hidden > 0 {
		parts = append(parts, fmt.Sprintf("+%d", hidden))
	}
	return strings.Join(parts, ", ")
}

func formatValues(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = table.Format(v)
	}
	return strings.Join(parts, ", ")
}

// formatDependents renders "A (2), B (1)": each dependent value with the
// number of rows holding it.
func formatDependents(v validate.DependencyViolation) string {
	parts := make([]string, len(v.DependentValues))
	for i, dv := range v.DependentValues {
		parts[i] = fmt.Sprintf("%s (%d)", table.Format(dv), v.Counts[i])
	}
	return strings.Join(parts, ", ")
}

// formatRecord renders a row as "k=v" pairs in key order.
func formatRecord(rec map[string]any) string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + table.Format(rec[k])
	}
	return strings.Join(parts, " ")
}

func formatCoverage(c float64) string {
	return strconv.FormatFloat(c*100, 'f', 1, 64) + "%"
}

func dependencyTitle(c check.DependencyCheck) string {
	return fmt.Sprintf("%s: %s → %s", c.Table, c.Determinant, c.Dependent)
}

func relationshipTitle(rel validate.Relationship) string {
	return fmt.Sprintf("%s.%s → %s.%s", rel.ParentTable, rel.ParentColumn, rel.ChildTable, rel.ChildColumn)
}

func sortedTables(s *schema.Schema) []schema.Table {
	tables := make([]schema.Table, len(s.Tables))
	copy(tables, s.Tables)
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Name < tables[j].Name
	})
	return tables
}

// IncomingRelation represents a relationship pointing to a table
type IncomingRelation struct {
	SourceTable  string
	SourceColumn string
	TargetColumn string
	Cardinality  string
}

// findIncomingRelations finds all foreign keys pointing to tableName
func findIncomingRelations(tableName string, s *schema.Schema) []IncomingRelation {
	var incoming []IncomingRelation
	for _, t := range s.Tables {
		for _, rel := range t.Relations {
			if rel.TargetTable == tableName {
				incoming = append(incoming, IncomingRelation{
					SourceTable:  t.Name,
					SourceColumn: rel.SourceColumn,
					TargetColumn: rel.TargetColumn,
					Cardinality:  rel.Cardinality,
				})
			}
		}
	}
	return incoming
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeFileName(s string) string {
	return strings.Trim(unsafeFileChars.ReplaceAllString(s, "_"), "_.")
}
