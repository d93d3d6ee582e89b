package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tordrt/modelcheck"
	"github.com/tordrt/modelcheck/internal/check"
	"github.com/tordrt/modelcheck/internal/config"
	"github.com/tordrt/modelcheck/internal/formatter"
	"github.com/tordrt/modelcheck/internal/validate"
)

func newTablesCmd(g *globalFlags) *cobra.Command {
	var tables, exclude string

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List tables and their columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSource(cmd, g.source, g.schemaName, parseTableList(exclude), func(ctx context.Context, src modelcheck.Source, _ *zap.SugaredLogger) error {
				s, err := src.Schema(ctx, parseTableList(tables))
				if err != nil {
					return fmt.Errorf("failed to extract schema: %w", err)
				}
				if g.outputDir != "" {
					mf, err := formatter.NewMultiFileFormatter(g.outputDir, g.format, g.formatOptions())
					if err != nil {
						return err
					}
					return mf.FormatSchema(s)
				}
				return g.writeOutput(cmd, func(f formatter.Formatter) error {
					return f.FormatSchema(s)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&tables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	cmd.Flags().StringVar(&exclude, "exclude", "", "Tables to exclude (comma-separated)")
	return cmd
}

func newRelationshipsCmd(g *globalFlags) *cobra.Command {
	var exclude string

	cmd := &cobra.Command{
		Use:   "relationships",
		Short: "List the foreign-key relationships declared by the source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.outputDir != "" {
				return fmt.Errorf("--output-dir is not supported for relationships")
			}
			return g.withSource(cmd, g.source, g.schemaName, parseTableList(exclude), func(ctx context.Context, src modelcheck.Source, _ *zap.SugaredLogger) error {
				s, err := src.Schema(ctx, nil)
				if err != nil {
					return fmt.Errorf("failed to extract schema: %w", err)
				}
				return g.writeOutput(cmd, func(f formatter.Formatter) error {
					return f.FormatRelationships(s.Relationships())
				})
			})
		},
	}

	cmd.Flags().StringVar(&exclude, "exclude", "", "Tables to exclude (comma-separated)")
	return cmd
}

func newDepsCmd(g *globalFlags) *cobra.Command {
	var (
		tableName   string
		determinant string
		dependent   string
		skipNull    bool
	)

	cmd := &cobra.Command{
		Use:     "deps",
		Short:   "Check that a determinant column determines a dependent column",
		Example: `  modelcheck deps -u sales.yaml --table DimProducts --determinant ProductID --dependent ProductName`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := validate.DependencyOptions{NullDeterminant: validate.NullAsGroup}
			if skipNull {
				opts.NullDeterminant = validate.SkipNull
			}
			plan := check.Plan{Dependencies: []check.DependencyCheck{{
				Table: tableName, Determinant: determinant, Dependent: dependent, Options: opts,
			}}}
			return g.runPlan(cmd, g.source, g.schemaName, plan, 0)
		},
	}

	cmd.Flags().StringVar(&tableName, "table", "", "Table to check")
	cmd.Flags().StringVar(&determinant, "determinant", "", "Determinant column")
	cmd.Flags().StringVar(&dependent, "dependent", "", "Dependent column")
	cmd.Flags().BoolVar(&skipNull, "skip-null-determinant", false, "Ignore rows whose determinant is null")
	for _, name := range []string{"table", "determinant", "dependent"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newRelsCmd(g *globalFlags) *cobra.Command {
	var (
		rels     []string
		discover bool
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "rels",
		Short: "Check that every child key exists in its parent table",
		Long: `Check relationships given with --rel as Parent.Column->Child.Column.
Without --rel, the foreign keys declared by the source are checked.`,
		Example: `  modelcheck rels -u sales.yaml --rel "DimCustomers.CustomerID->FactSales.CustomerID"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseRelationships(rels)
			if err != nil {
				return err
			}
			plan := check.Plan{Relationships: parsed, Discover: discover || len(parsed) == 0}
			return g.runPlan(cmd, g.source, g.schemaName, plan, parallel)
		},
	}

	cmd.Flags().StringArrayVar(&rels, "rel", nil, "Relationship Parent.Column->Child.Column (repeatable)")
	cmd.Flags().BoolVar(&discover, "discover", false, "Also check foreign keys declared by the source")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "Relationship checks to run concurrently")
	return cmd
}

func newCheckCmd(g *globalFlags) *cobra.Command {
	var (
		configPath string
		parallel   int
		discover   bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the checks listed in a config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			source, schemaName := cfg.Source, cfg.Schema
			if g.source != "" {
				source = g.source
			}
			if g.schemaName != "" {
				schemaName = g.schemaName
			}
			if !cmd.Flags().Changed("parallel") {
				parallel = cfg.Parallelism
			}

			plan := check.Plan{
				Relationships: cfg.Relationships(),
				Discover:      discover || cfg.DiscoverRelationships,
			}
			for _, d := range cfg.Dependencies {
				plan.Dependencies = append(plan.Dependencies, check.DependencyCheck{
					Table:       d.Table,
					Determinant: d.Determinant,
					Dependent:   d.Dependent,
					Options:     cfg.DependencyOptions(d),
				})
			}
			return g.runPlan(cmd, source, schemaName, plan, parallel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Check configuration file")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "Relationship checks to run concurrently (overrides the config)")
	cmd.Flags().BoolVar(&discover, "discover", false, "Also check foreign keys declared by the source")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func parseRelationships(specs []string) ([]validate.Relationship, error) {
	rels := make([]validate.Relationship, 0, len(specs))
	for _, s := range specs {
		rel, err := validate.ParseRelationship(s)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

// runPlan runs the plan against source and writes the report. The returned
// error carries exit code 1 when checks found violations and 2 when a check
// could not run.
func (g *globalFlags) runPlan(cmd *cobra.Command, source, schemaName string, plan check.Plan, parallel int) error {
	return g.withSource(cmd, source, schemaName, nil, func(ctx context.Context, src modelcheck.Source, log *zap.SugaredLogger) error {
		runner := &check.Runner{
			Source:  src,
			Logger:  log,
			Options: check.Options{Parallelism: parallel, SourceName: sourceLabel(source)},
		}
		report, err := runner.Run(ctx, plan)
		if err != nil {
			return err
		}

		if g.outputDir != "" {
			mf, err := formatter.NewMultiFileFormatter(g.outputDir, g.format, g.formatOptions())
			if err != nil {
				return err
			}
			if err := mf.FormatReport(report); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
		} else if err := g.writeOutput(cmd, func(f formatter.Formatter) error {
			return f.FormatReport(report)
		}); err != nil {
			return err
		}

		switch code := report.ExitCode(); code {
		case exitViolations:
			return &exitError{code: code, err: errViolationsFound}
		case exitInvalid:
			return &exitError{code: code, err: fmt.Errorf("%d checks could not run", report.Totals().Errored)}
		}
		return nil
	})
}

// withSource opens the source, builds the logger and calls fn. The source is
// closed when fn returns.
func (g *globalFlags) withSource(cmd *cobra.Command, source, schemaName string, exclude []string,
	fn func(ctx context.Context, src modelcheck.Source, log *zap.SugaredLogger) error) error {
	if err := g.validateOutput(); err != nil {
		return err
	}
	if source == "" {
		return fmt.Errorf("a source is required (--source or source: in the config)")
	}

	log, err := newLogger(g.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	src, err := modelcheck.OpenSource(ctx, source, &modelcheck.Options{
		SchemaName:    schemaName,
		ExcludeTables: exclude,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(ctx); err != nil {
			log.Warnw("failed to close source", "error", err)
		}
	}()
	log.Debugw("opened source", "source", sourceLabel(source))

	return fn(ctx, src, log)
}

func (g *globalFlags) validateOutput() error {
	if g.outputDir != "" && g.outputFile != "" {
		return fmt.Errorf("cannot use both --output-dir and --output flags")
	}
	if _, err := formatter.New(g.format, io.Discard, formatter.Options{}); err != nil {
		return err
	}
	if g.maxRows < 0 {
		return fmt.Errorf("--max-rows must not be negative")
	}
	return nil
}

func (g *globalFlags) formatOptions() formatter.Options {
	return formatter.Options{MaxRows: g.maxRows}
}

// writeOutput formats to --output, or to the command's stdout.
func (g *globalFlags) writeOutput(cmd *cobra.Command, write func(f formatter.Formatter) error) error {
	w := cmd.OutOrStdout()
	if g.outputFile != "" {
		file, err := os.Create(g.outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := file.Close(); err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to close output file: %v\n", err)
			}
		}()
		w = file
	}

	f, err := formatter.New(g.format, w, g.formatOptions())
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}
