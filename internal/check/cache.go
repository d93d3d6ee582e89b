package check

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tordrt/modelcheck/internal/table"
)

// tableCache reads each table at most once per run. Read failures are
// cached too so a broken table is reported once per check, not re-queried.
type tableCache struct {
	source Source
	log    *zap.SugaredLogger
	tables map[string]cachedTable
}

type cachedTable struct {
	table *table.Table
	err   error
}

func newTableCache(source Source, log *zap.SugaredLogger) *tableCache {
	return &tableCache{source: source, log: log, tables: make(map[string]cachedTable)}
}

func (c *tableCache) get(ctx context.Context, name string) (*table.Table, error) {
	if ct, ok := c.tables[name]; ok {
		return ct.table, ct.err
	}

	c.log.Debugw("reading table", "table", name)
	t, err := c.source.ReadTable(ctx, name)
	if err != nil {
		err = fmt.Errorf("failed to read table %s: %w", name, err)
	} else {
		c.log.Debugw("read table", "table", name, "rows", t.Len())
	}

	c.tables[name] = cachedTable{table: t, err: err}
	return t, err
}
