// Package fixture loads tables from YAML fixture files.
//
// A fixture file maps table names to an optional column list and a row list:
//
//	DimCustomers:
//	  columns:
//	    - name: CustomerID
//	      type: int
//	    - Region
//	  rows:
//	    - {CustomerID: 10, Region: North}
//
// Without a column list, columns are the row keys in order of first
// appearance. A table may be spread over several files; its rows are
// appended in file order.
package fixture

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"

	"github.com/tordrt/modelcheck/internal/table"
)

// Data is the merged content of one or more fixture files.
type Data struct {
	tables map[string]*tableData
	order  []string
}

type tableData struct {
	columns  []table.Column
	explicit bool
	seen     map[string]bool
	rows     []map[string]any
}

type loader struct {
	data Data
	file string
}

// Load reads every .yaml and .yml file under fsys, in lexical path order.
func Load(fsys fs.FS) (*Data, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isYAML(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list fixture files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no fixture files found")
	}
	sort.Strings(files)

	return LoadFiles(fsys, files...)
}

// LoadFiles reads the named files from fsys in the given order.
func LoadFiles(fsys fs.FS, files ...string) (*Data, error) {
	l := &loader{}
	for _, name := range files {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read fixture file: %w", err)
		}
		if err := l.loadFile(name, content); err != nil {
			return nil, err
		}
	}
	return &l.data, nil
}

// Parse reads a single fixture document held in memory.
func Parse(content []byte) (*Data, error) {
	l := &loader{}
	if err := l.loadFile("", content); err != nil {
		return nil, err
	}
	return &l.data, nil
}

func isYAML(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	return ext == ".yaml" || ext == ".yml"
}

func (l *loader) loadFile(name string, content []byte) error {
	l.file = name

	file, err := parser.ParseBytes(content, 0)
	if err != nil {
		if name != "" {
			return fmt.Errorf("failed to parse %s: %w", name, err)
		}
		return fmt.Errorf("failed to parse fixture: %w", err)
	}

	for _, doc := range file.Docs {
		if doc.Body == nil {
			continue
		}
		if err := l.loadDoc(doc.Body); err != nil {
			var perr *ParseError
			if errors.As(err, &perr) && perr.File == "" {
				perr.File = name
			}
			return err
		}
	}
	return nil
}

func (l *loader) loadDoc(node ast.Node) error {
	values, err := mappingValues(node)
	if err != nil {
		return err
	}
	for _, value := range values {
		tableName, err := getStringNode(value.Key)
		if err != nil {
			return err
		}
		if err := l.loadTable(tableName, value.Value); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) loadTable(tableName string, node ast.Node) error {
	values, err := mappingValues(node)
	if err != nil {
		return err
	}

	td := l.data.table(tableName)

	var hasRows bool
	for _, value := range values {
		key, err := getStringNode(value.Key)
		if err != nil {
			return err
		}
		switch key {
		case "columns":
			columns, err := loadColumns(value.Value)
			if err != nil {
				return err
			}
			if err := td.declare(columns); err != nil {
				return nodeError(value.Value, "table %s: %v", tableName, err)
			}
		case "rows":
			hasRows = true
			if err := l.loadRows(value.Value, td); err != nil {
				return err
			}
		default:
			return nodeError(value.Key, "invalid table key '%s' for '%s'", key, tableName)
		}
	}

	if !hasRows {
		return nodeError(node, "table '%s' has no rows", tableName)
	}
	return nil
}

func loadColumns(node ast.Node) ([]table.Column, error) {
	seq, ok := node.(*ast.SequenceNode)
	if !ok {
		return nil, nodeError(node, "columns must be a list")
	}

	columns := make([]table.Column, 0, len(seq.Values))
	for _, item := range seq.Values {
		if s, ok := item.(*ast.StringNode); ok {
			columns = append(columns, table.Column{Name: s.Value, Type: table.Any})
			continue
		}

		var decl struct {
			Name string `yaml:"name"`
			Type string `yaml:"type"`
		}
		if err := yaml.NodeToValue(item, &decl); err != nil {
			return nil, nodeError(item, "invalid column: %v", err)
		}
		if decl.Name == "" {
			return nil, nodeError(item, "column has no name")
		}
		typ, err := table.ParseType(decl.Type)
		if err != nil {
			return nil, nodeError(item, "column %s: %v", decl.Name, err)
		}
		columns = append(columns, table.Column{Name: decl.Name, Type: typ})
	}
	return columns, nil
}

func (l *loader) loadRows(node ast.Node, td *tableData) error {
	switch n := node.(type) {
	case *ast.NullNode:
		return nil
	case *ast.SequenceNode:
		for _, item := range n.Values {
			row, err := loadRow(item)
			if err != nil {
				return err
			}
			td.addRow(row.keys, row.values)
		}
		return nil
	default:
		return nodeError(node, "invalid table rows node '%s'", node.Type().String())
	}
}

type rowData struct {
	keys   []string
	values map[string]any
}

func loadRow(node ast.Node) (*rowData, error) {
	fields, err := mappingValues(node)
	if err != nil {
		return nil, nodeError(node, "invalid table row node '%s'", node.Type().String())
	}

	row := &rowData{values: make(map[string]any, len(fields))}
	for _, field := range fields {
		key, err := getStringNode(field.Key)
		if err != nil {
			return nil, err
		}
		if _, dup := row.values[key]; dup {
			return nil, nodeError(field.Key, "duplicate field '%s'", key)
		}
		value, err := loadFieldValue(field.Value)
		if err != nil {
			return nil, err
		}
		row.keys = append(row.keys, key)
		row.values[key] = value
	}
	return row, nil
}

func loadFieldValue(node ast.Node) (any, error) {
	switch node.(type) {
	case *ast.MappingNode, *ast.MappingValueNode, *ast.SequenceNode:
		return nil, nodeError(node, "nested values are not supported")
	}

	var value any
	if err := yaml.NodeToValue(node, &value); err != nil {
		return nil, nodeError(node, "invalid value: %v", err)
	}
	return value, nil
}

// mappingValues accepts both a mapping and the single key/value node the
// parser produces for one-entry mappings.
func mappingValues(node ast.Node) ([]*ast.MappingValueNode, error) {
	switch n := node.(type) {
	case *ast.MappingNode:
		return n.Values, nil
	case *ast.MappingValueNode:
		return []*ast.MappingValueNode{n}, nil
	default:
		return nil, nodeError(node, "expected a mapping, got '%s'", node.Type().String())
	}
}

func getStringNode(node ast.Node) (string, error) {
	switch n := node.(type) {
	case *ast.StringNode:
		return n.Value, nil
	default:
		return "", nodeError(node, "node is not string")
	}
}

func (d *Data) table(name string) *tableData {
	if d.tables == nil {
		d.tables = map[string]*tableData{}
	}
	td, ok := d.tables[name]
	if !ok {
		td = &tableData{seen: map[string]bool{}}
		d.tables[name] = td
		d.order = append(d.order, name)
	}
	return td
}

// declare sets an explicit column list. A table declared in more than one
// file must declare the same columns each time.
func (td *tableData) declare(columns []table.Column) error {
	if td.explicit {
		if !sameColumns(td.columns, columns) {
			return fmt.Errorf("column list differs from an earlier declaration")
		}
		return nil
	}
	td.explicit = true
	td.columns = columns
	return nil
}

func (td *tableData) addRow(keys []string, values map[string]any) {
	for _, k := range keys {
		if !td.seen[k] {
			td.seen[k] = true
			td.inferred(k)
		}
	}
	td.rows = append(td.rows, values)
}

// inferred tracks first-seen keys for tables without an explicit column list.
func (td *tableData) inferred(key string) {
	if td.explicit {
		return
	}
	td.columns = append(td.columns, table.Column{Name: key, Type: table.Any})
}

func sameColumns(a, b []table.Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TableNames lists the loaded tables in order of first appearance.
func (d *Data) TableNames() []string {
	names := make([]string, len(d.order))
	copy(names, d.order)
	return names
}

// Table builds the named table.
func (d *Data) Table(name string) (*table.Table, error) {
	td, ok := d.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return table.FromRecords(name, td.columns, td.rows)
}

// Columns returns the column list of the named table.
func (d *Data) Columns(name string) ([]table.Column, bool) {
	td, ok := d.tables[name]
	if !ok {
		return nil, false
	}
	cols := make([]table.Column, len(td.columns))
	copy(cols, td.columns)
	return cols, true
}
