package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tordrt/modelcheck/internal/check"
	"github.com/tordrt/modelcheck/internal/schema"
)

// MultiFileFormatter writes output to multiple files in a directory: an
// _overview file plus one file per table (schemas) or per check (reports).
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text", "markdown" or "json"
	Options      Options
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string, opts Options) (*MultiFileFormatter, error) {
	if _, err := New(format, io.Discard, opts); err != nil {
		return nil, err
	}
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
		Options:      opts,
	}, nil
}

// FormatSchema writes _overview plus one file per table
func (f *MultiFileFormatter) FormatSchema(s *schema.Schema) error {
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeFile("_overview", func(w io.Writer) error {
		return f.writeSchemaOverview(w, s)
	}); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, t := range s.Tables {
		one := &schema.Schema{Tables: []schema.Table{t}}
		err := f.writeFile(sanitizeFileName(t.Name), func(w io.Writer) error {
			fm, err := New(f.OutputFormat, w, f.Options)
			if err != nil {
				return err
			}
			// markdown lists incoming references, which needs the whole schema
			if md, ok := fm.(*MarkdownFormatter); ok {
				md.formatTable(t, s)
				return nil
			}
			return fm.FormatSchema(one)
		})
		if err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", t.Name, err)
		}
	}

	return nil
}

func (f *MultiFileFormatter) writeSchemaOverview(w io.Writer, s *schema.Schema) error {
	ext := f.getFileExtension()
	tables := sortedTables(s)

	switch f.OutputFormat {
	case formatJSON:
		type entry struct {
			Table      string   `json:"table"`
			File       string   `json:"file"`
			References []string `json:"references,omitempty"`
		}
		entries := make([]entry, 0, len(tables))
		for _, t := range tables {
			entries = append(entries, entry{Table: t.Name, File: sanitizeFileName(t.Name) + ext, References: references(t)})
		}
		return encodeJSON(w, entries)
	case formatMarkdown:
		_, _ = fmt.Fprintf(w, "# Schema Overview\n\n")
		_, _ = fmt.Fprintf(w, "Each table has a corresponding file: `<table_name>%s`\n\n", ext)
		_, _ = fmt.Fprintf(w, "## Tables\n\n")
		for _, t := range tables {
			_, _ = fmt.Fprintf(w, "- **%s**", t.Name)
			if refs := references(t); len(refs) > 0 {
				_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(refs, ", "))
			}
			_, _ = fmt.Fprintln(w)
		}
	default:
		_, _ = fmt.Fprintf(w, "SCHEMA OVERVIEW\n")
		_, _ = fmt.Fprintf(w, "Each table has a file: <table_name>%s\n\n", ext)
		for _, t := range tables {
			_, _ = fmt.Fprintf(w, "%s", t.Name)
			if refs := references(t); len(refs) > 0 {
				_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(refs, ","))
			}
			_, _ = fmt.Fprintln(w)
		}
	}
	return nil
}

func references(t schema.Table) []string {
	var targets []string
	for _, rel := range t.Relations {
		targets = append(targets, rel.TargetTable)
	}
	return targets
}

// checkFile is one per-check output file
type checkFile struct {
	base       string
	File       string       `json:"file"`
	Kind       string       `json:"kind"`
	Check      string       `json:"check"`
	Status     check.Status `json:"status"`
	Violations int          `json:"violations"`
	report     *check.Report
}

// FormatReport writes _overview plus one file per check
func (f *MultiFileFormatter) FormatReport(r *check.Report) error {
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	files := f.checkFiles(r)

	if err := f.writeFile("_overview", func(w io.Writer) error {
		return f.writeReportOverview(w, r, files)
	}); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, cf := range files {
		err := f.writeFile(cf.base, func(w io.Writer) error {
			fm, err := New(f.OutputFormat, w, f.Options)
			if err != nil {
				return err
			}
			return fm.FormatReport(cf.report)
		})
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", cf.File, err)
		}
	}

	return nil
}

// checkFiles names one file per check. Names that collide get a numeric suffix.
func (f *MultiFileFormatter) checkFiles(r *check.Report) []checkFile {
	ext := f.getFileExtension()
	used := make(map[string]int)
	name := func(cf checkFile, base string) checkFile {
		base = sanitizeFileName(base)
		used[base]++
		if n := used[base]; n > 1 {
			base = fmt.Sprintf("%s_%d", base, n)
		}
		cf.base, cf.File = base, base+ext
		return cf
	}
	sub := func() *check.Report {
		return &check.Report{RunID: r.RunID, Source: r.Source, StartedAt: r.StartedAt, Duration: r.Duration}
	}

	files := make([]checkFile, 0, len(r.Dependencies)+len(r.Relationships))
	for _, d := range r.Dependencies {
		one := sub()
		one.Dependencies = []check.DependencyResult{d}
		files = append(files, name(checkFile{
			Kind:       "dependency",
			Check:      dependencyTitle(d.Check),
			Status:     d.Status,
			Violations: len(d.Violations),
			report:     one,
		}, fmt.Sprintf("dep_%s_%s_%s", d.Check.Table, d.Check.Determinant, d.Check.Dependent)))
	}
	for _, rel := range r.Relationships {
		one := sub()
		one.Relationships = []check.RelationshipResult{rel}
		files = append(files, name(checkFile{
			Kind:       "relationship",
			Check:      relationshipTitle(rel.Relationship),
			Status:     rel.Status,
			Violations: len(rel.Violations),
			report:     one,
		}, fmt.Sprintf("rel_%s_%s", rel.Relationship.ChildTable, rel.Relationship.ChildColumn)))
	}
	return files
}

func (f *MultiFileFormatter) writeReportOverview(w io.Writer, r *check.Report, files []checkFile) error {
	t := r.Totals()
	switch f.OutputFormat {
	case formatJSON:
		return encodeJSON(w, struct {
			RunID    string      `json:"run_id"`
			Source   string      `json:"source,omitempty"`
			ExitCode int         `json:"exit_code"`
			Totals   jsonTotals  `json:"totals"`
			Checks   []checkFile `json:"checks"`
		}{r.RunID.String(), r.Source, r.ExitCode(), jsonTotals(t), files})
	case formatMarkdown:
		_, _ = fmt.Fprintf(w, "# Check Overview\n\n")
		_, _ = fmt.Fprintf(w, "Run `%s`: %d checks, %d passed, %d failed, %d errored.\n\n", r.RunID, t.Checks, t.Passed, t.Failed, t.Errored)
		_, _ = fmt.Fprintln(w, "| Check | Status | Violations | File |")
		_, _ = fmt.Fprintln(w, "|---|---|---|---|")
		for _, cf := range files {
			_, _ = fmt.Fprintf(w, "| %s | %s | %d | [%s](%s) |\n", escapeCell(cf.Check), cf.Status, cf.Violations, cf.File, cf.File)
		}
	default:
		_, _ = fmt.Fprintf(w, "CHECK OVERVIEW\n")
		_, _ = fmt.Fprintf(w, "RUN %s: %d checks, %d passed, %d failed, %d errored\n\n", r.RunID, t.Checks, t.Passed, t.Failed, t.Errored)
		for _, cf := range files {
			_, _ = fmt.Fprintf(w, "%-5s %s (%d violations) %s\n", strings.ToUpper(string(cf.Status)), cf.Check, cf.Violations, cf.File)
		}
	}
	return nil
}

func (f *MultiFileFormatter) writeFile(base string, write func(w io.Writer) error) error {
	filename := filepath.Join(f.OutputDir, base+f.getFileExtension())

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func (f *MultiFileFormatter) getFileExtension() string {
	switch f.OutputFormat {
	case formatMarkdown:
		return ".md"
	case formatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
