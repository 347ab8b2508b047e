// Package sqlrunner adapts a database/sql handle to the store.Runner
// contract. It backs both the Postgres and DuckDB drivers.
package sqlrunner

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/queryguard/queryguard/internal/store"
)

// Runner executes statements on an underlying *sql.DB.
type Runner struct {
	db *sql.DB
}

func New(db *sql.DB) *Runner {
	return &Runner{db: db}
}

// Run executes sql and scans every row into a column-name keyed map. []byte
// values are converted to string so the redaction layer sees text.
func (r *Runner) Run(ctx context.Context, sqlText string) (store.Result, error) {
	rows, err := r.db.QueryContext(ctx, sqlText)
	if err != nil {
		return store.Result{}, fmt.Errorf("run query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return store.Result{}, fmt.Errorf("read columns: %w", err)
	}

	result := store.Result{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return store.Result{}, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			value := values[i]
			if raw, ok := value.([]byte); ok {
				value = string(raw)
			}
			row[column] = value
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return store.Result{}, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}
