package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Exit codes
const (
	exitOK         = 0
	exitViolations = 1
	exitInvalid    = 2
)

var errViolationsFound = errors.New("violations found")

// exitError carries the process exit code for an error returned by a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// exitCode maps a command error to the process exit code. Errors without an
// explicit code are input or configuration errors.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitInvalid
}

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	source     string
	schemaName string
	format     string
	outputFile string
	outputDir  string
	verbose    bool
	maxRows    int
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "modelcheck",
		Short: "Validate data-model assumptions against real tables",
		Long: `Modelcheck reads tables from PostgreSQL, MySQL, SQLite or YAML fixtures and checks
functional dependencies (does A determine B?) and relationships (does every
child key exist in its parent?).

Exit codes: 0 no violations, 1 violations found, 2 invalid input or a check could not run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.source, "source", "u", "", "Source URL (postgres://, mysql://, sqlite://, yaml:// or a .yaml path)")
	flags.StringVarP(&g.schemaName, "schema", "s", "", "Database schema name (default: public for PostgreSQL, the DSN database for MySQL)")
	flags.StringVarP(&g.format, "format", "f", "text", "Output format: text, markdown or json")
	flags.StringVarP(&g.outputFile, "output", "o", "", "Output file (default: stdout)")
	flags.StringVarP(&g.outputDir, "output-dir", "d", "", "Output directory for multi-file output")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "Log progress to stderr")
	flags.IntVar(&g.maxRows, "max-rows", 50, "Maximum violations listed per check (0 lists all)")

	rootCmd.AddCommand(
		newTablesCmd(g),
		newRelationshipsCmd(g),
		newDepsCmd(g),
		newRelsCmd(g),
		newCheckCmd(g),
	)
	return rootCmd
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Sugar(), nil
}

// sourceLabel is the source URL with any password removed, for reports and logs.
func sourceLabel(source string) string {
	switch {
	case strings.HasPrefix(source, "postgres://"), strings.HasPrefix(source, "postgresql://"):
		u, err := url.Parse(source)
		if err != nil {
			return "postgres"
		}
		return u.Redacted()
	case strings.HasPrefix(source, "mysql://"):
		cfg, err := mysql.ParseDSN(strings.TrimPrefix(source, "mysql://"))
		if err != nil {
			return "mysql"
		}
		if cfg.Passwd != "" {
			cfg.Passwd = "xxxxx"
		}
		return "mysql://" + cfg.FormatDSN()
	default:
		return source
	}
}

// parseTableList splits a comma-separated flag value, dropping empty entries.
func parseTableList(s string) []string {
	var tables []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tables = append(tables, t)
		}
	}
	return tables
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	code := exitCode(err)
	if err != nil && !errors.Is(err, errViolationsFound) {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}
