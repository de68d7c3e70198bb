// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file executes generated read-only SQL and returns
// generic rows for text rendering. Statement vetting (SELECT-only gating)
// happens in the service layer before anything reaches RunSelect.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Row is one result row of a generated query, keyed by column name.
type Row map[string]any

// RunSelect executes a read-only SQL statement and materializes every row.
// Column order is preserved separately so callers can render rows in the
// order the statement projected them.
func RunSelect(ctx context.Context, db *gorm.DB, query string) (cols []string, out []Row, err error) {
	rows, err := db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err = rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		r := make(Row, len(cols))
		for i, c := range cols {
			v := vals[i]
			// sqlite hands back []byte for TEXT in raw mode
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			r[c] = v
		}
		out = append(out, r)
	}
	return cols, out, rows.Err()
}
