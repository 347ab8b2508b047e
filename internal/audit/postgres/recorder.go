// Package postgres writes audit entries to the append-only query_logs table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/queryguard/queryguard/internal/audit"
)

type Recorder struct {
	db *sql.DB
}

func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

func (r *Recorder) Record(ctx context.Context, entry audit.Entry) error {
	query := `
INSERT INTO query_logs (preview_id, executed_at, query, user_id)
VALUES ($1, $2, $3, $4)`

	var previewID any
	if entry.PreviewID != "" {
		previewID = entry.PreviewID
	}
	var userID any
	if entry.UserID != "" {
		userID = entry.UserID
	}
	if _, err := r.db.ExecContext(ctx, query, previewID, entry.ExecutedAt, entry.Query, userID); err != nil {
		return fmt.Errorf("insert query log: %w", err)
	}
	return nil
}
