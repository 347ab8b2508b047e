// Package store defines the data-store collaborator the pipeline executes
// validated SQL against.
package store

import "context"

// Result is a row set; statements that return no rows yield empty Columns
// and nil Rows.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// Runner executes a single SQL statement. Implementations inherit the
// caller's context for cancellation.
type Runner interface {
	Run(ctx context.Context, sql string) (Result, error)
}
