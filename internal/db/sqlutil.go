package db

import (
	"context"
	"database/sql"
	"strings"
)

// queryStrings runs a query that yields a single string column
func queryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

// quoteIdent quotes one identifier with q, doubling any embedded quote
func quoteIdent(name string, q byte) string {
	quote := string(q)
	return quote + strings.ReplaceAll(name, quote, quote+quote) + quote
}

// qualifiedName quotes each non-empty part and joins them with dots
func qualifiedName(q byte, parts ...string) string {
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			quoted = append(quoted, quoteIdent(p, q))
		}
	}
	return strings.Join(quoted, ".")
}

// selectStatement builds SELECT col, ... FROM <from>; from must already be quoted
func selectStatement(from string, columns []string, q byte) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c, q)
	}
	return "SELECT " + strings.Join(quoted, ", ") + " FROM " + from
}
