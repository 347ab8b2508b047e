package explain

import (
	"context"
	"strings"
	"testing"
)

func TestHeuristicExplainsClauses(t *testing.T) {
	sql := "SELECT region, SUM(total) FROM sales WHERE year = 2026 GROUP BY region ORDER BY SUM(total) DESC LIMIT 10"
	text, err := (Heuristic{}).Explain(context.Background(), sql)
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}

	for _, fragment := range []string{
		"selects region, SUM(total)",
		"from sales",
		"where year = 2026",
		"grouped by region",
		"ordered by SUM(total) DESC",
		"limited to 10 rows",
	} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("explanation %q missing %q", text, fragment)
		}
	}
}

func TestHeuristicSelectStar(t *testing.T) {
	text, err := (Heuristic{}).Explain(context.Background(), "SELECT * FROM products")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if !strings.Contains(text, "selects all columns") || !strings.Contains(text, "from products") {
		t.Fatalf("explanation = %q", text)
	}
}

func TestHeuristicHandlesMultilineSQL(t *testing.T) {
	text, err := (Heuristic{}).Explain(context.Background(), "SELECT name\nFROM users\nWHERE active = true")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if !strings.Contains(text, "from users") || !strings.Contains(text, "where active = true") {
		t.Fatalf("explanation = %q", text)
	}
}

func TestHeuristicNeverFailsOnOddInput(t *testing.T) {
	text, err := (Heuristic{}).Explain(context.Background(), "SHOW TABLES")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if text == "" {
		t.Fatal("empty explanation")
	}
}
