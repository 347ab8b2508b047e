// Package audit records executed queries. Recording is best-effort by
// contract: the orchestrator logs a failed write and carries on, so
// implementations never need to be durable, only honest about errors.
package audit

import (
	"context"
	"time"
)

// Entry is one executed query. PreviewID is empty when the query was
// submitted directly rather than confirmed from a preview.
type Entry struct {
	PreviewID  string
	Query      string
	UserID     string
	ExecutedAt time.Time
}

// Recorder persists entries. Implementations are substitutable: a database
// table, an object store, or nothing at all.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }
