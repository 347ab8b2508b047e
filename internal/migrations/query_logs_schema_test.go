package migrations

import (
	"strings"
	"testing"
)

func TestQueryLogsMigrationShape(t *testing.T) {
	body, err := embeddedFS.ReadFile("sql/000001_query_logs.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	sql := string(body)
	requiredSnippets := []string{
		"CREATE TABLE query_logs",
		"preview_id TEXT",
		"executed_at TIMESTAMPTZ NOT NULL",
		"query TEXT NOT NULL",
		"user_id TEXT",
		"CREATE INDEX idx_query_logs_executed_at",
	}
	for _, snippet := range requiredSnippets {
		if !strings.Contains(sql, snippet) {
			t.Fatalf("migration missing required snippet: %s", snippet)
		}
	}

	down, err := embeddedFS.ReadFile("sql/000001_query_logs.down.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(down), "DROP TABLE IF EXISTS query_logs") {
		t.Fatalf("down migration does not drop query_logs: %s", down)
	}
}
