package modelcheck

import (
	"context"
	"fmt"

	"github.com/tordrt/modelcheck/internal/db"
	"github.com/tordrt/modelcheck/internal/schema"
)

type postgresSource struct {
	*db.PostgresExtractor
	client *db.PostgresClient
}

func openPostgres(ctx context.Context, conn string, opts *Options) (Source, error) {
	client, err := db.NewPostgresClient(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return &postgresSource{
		PostgresExtractor: db.NewPostgresExtractor(client, opts.SchemaName),
		client:            client,
	}, nil
}

func (s *postgresSource) Schema(ctx context.Context, tables []string) (*schema.Schema, error) {
	return s.ExtractSchema(ctx, tables)
}

func (s *postgresSource) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

type mysqlSource struct {
	*db.MySQLExtractor
	client *db.MySQLClient
}

func openMySQL(ctx context.Context, conn string, opts *Options) (Source, error) {
	if opts.SchemaName == "" {
		if _, err := db.ParseDatabaseName(conn); err != nil {
			return nil, fmt.Errorf("failed to determine database name: %w (please specify SchemaName in Options)", err)
		}
	}

	client, err := db.NewMySQLClient(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	return &mysqlSource{
		MySQLExtractor: db.NewMySQLExtractor(client, opts.SchemaName),
		client:         client,
	}, nil
}

func (s *mysqlSource) Schema(ctx context.Context, tables []string) (*schema.Schema, error) {
	return s.ExtractSchema(ctx, tables)
}

func (s *mysqlSource) Close(ctx context.Context) error {
	return s.client.Close()
}

type sqliteSource struct {
	*db.SQLiteExtractor
	client *db.SQLiteClient
}

func openSQLite(ctx context.Context, path string) (Source, error) {
	client, err := db.NewSQLiteClient(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}
	return &sqliteSource{
		SQLiteExtractor: db.NewSQLiteExtractor(client),
		client:          client,
	}, nil
}

func (s *sqliteSource) Schema(ctx context.Context, tables []string) (*schema.Schema, error) {
	return s.ExtractSchema(ctx, tables)
}

func (s *sqliteSource) Close(ctx context.Context) error {
	return s.client.Close()
}

// filteredSource hides excluded tables from listing and discovery. Reading
// an excluded table by name still works.
type filteredSource struct {
	Source
	exclude map[string]bool
}

func newFilteredSource(src Source, excludeList []string) *filteredSource {
	exclude := make(map[string]bool, len(excludeList))
	for _, name := range excludeList {
		exclude[name] = true
	}
	return &filteredSource{Source: src, exclude: exclude}
}

func (s *filteredSource) ListTables(ctx context.Context) ([]string, error) {
	names, err := s.Source.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	kept := make([]string, 0, len(names))
	for _, name := range names {
		if !s.exclude[name] {
			kept = append(kept, name)
		}
	}
	return kept, nil
}

func (s *filteredSource) Schema(ctx context.Context, tables []string) (*schema.Schema, error) {
	if len(tables) == 0 {
		var err error
		if tables, err = s.ListTables(ctx); err != nil {
			return nil, err
		}
		if len(tables) == 0 {
			return &schema.Schema{}, nil
		}
	}
	sch, err := s.Source.Schema(ctx, tables)
	if err != nil {
		return nil, err
	}
	filterExcludedTables(sch, s.exclude)
	return sch, nil
}

// filterExcludedTables drops excluded tables and any relation pointing at one.
func filterExcludedTables(s *schema.Schema, exclude map[string]bool) {
	filteredTables := make([]schema.Table, 0, len(s.Tables))
	for _, t := range s.Tables {
		if exclude[t.Name] {
			continue
		}
		relations := t.Relations[:0:0]
		for _, rel := range t.Relations {
			if !exclude[rel.TargetTable] {
				relations = append(relations, rel)
			}
		}
		t.Relations = relations
		filteredTables = append(filteredTables, t)
	}
	s.Tables = filteredTables
}
