package fixture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tordrt/modelcheck/internal/schema"
	"github.com/tordrt/modelcheck/internal/table"
)

// Source serves fixture tables. Tables are built on first read and reused.
type Source struct {
	data *Data

	mu     sync.Mutex
	tables map[string]*table.Table
}

// NewSource wraps already loaded fixture data.
func NewSource(data *Data) *Source {
	return &Source{data: data, tables: map[string]*table.Table{}}
}

// Open loads a fixture file, or every fixture file in a directory.
func Open(path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixtures: %w", err)
	}

	var data *Data
	if info.IsDir() {
		data, err = Load(os.DirFS(path))
	} else {
		data, err = LoadFiles(os.DirFS(filepath.Dir(path)), filepath.Base(path))
	}
	if err != nil {
		return nil, err
	}

	return NewSource(data), nil
}

// ListTables lists the fixture tables in load order
func (s *Source) ListTables(ctx context.Context) ([]string, error) {
	return s.data.TableNames(), nil
}

// Schema describes the requested tables, or every table if none are named.
// Fixtures carry no keys or relations.
func (s *Source) Schema(ctx context.Context, tables []string) (*schema.Schema, error) {
	if len(tables) == 0 {
		tables = s.data.TableNames()
	}

	out := &schema.Schema{Tables: make([]schema.Table, 0, len(tables))}
	for _, name := range tables {
		cols, ok := s.data.Columns(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
		}
		st := schema.Table{Name: name, Columns: make([]schema.Column, len(cols))}
		for i, c := range cols {
			st.Columns[i] = schema.Column{Name: c.Name, Type: c.Type.String(), Nullable: true}
		}
		out.Tables = append(out.Tables, st)
	}
	return out, nil
}

// ReadTable returns the named fixture table
func (s *Source) ReadTable(ctx context.Context, name string) (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tables[name]; ok {
		return t, nil
	}
	t, err := s.data.Table(name)
	if err != nil {
		return nil, err
	}
	s.tables[name] = t
	return t, nil
}

// Close is a no-op; fixtures are fully loaded at open.
func (s *Source) Close(ctx context.Context) error {
	return nil
}
