package explain

import (
	"context"
	"regexp"
	"strings"
)

var (
	selectClause  = regexp.MustCompile(`(?is)\bselect\s+(.+?)\s+from\b`)
	fromClause    = regexp.MustCompile(`(?is)\bfrom\s+(.+?)(?:\s+where\b|\s+group\s+by\b|\s+order\s+by\b|\s+limit\b|$)`)
	whereClause   = regexp.MustCompile(`(?is)\bwhere\s+(.+?)(?:\s+group\s+by\b|\s+order\s+by\b|\s+limit\b|$)`)
	groupByClause = regexp.MustCompile(`(?is)\bgroup\s+by\s+(.+?)(?:\s+order\s+by\b|\s+having\b|\s+limit\b|$)`)
	orderByClause = regexp.MustCompile(`(?is)\border\s+by\s+(.+?)(?:\s+limit\b|$)`)
	limitClause   = regexp.MustCompile(`(?i)\blimit\s+(\d+)`)
)

// Heuristic renders the recognizable clauses of a query as short labeled
// phrases. It never fails; unrecognizable SQL yields a generic line.
type Heuristic struct{}

func (Heuristic) Explain(_ context.Context, sql string) (string, error) {
	normalized := strings.Join(strings.Fields(sql), " ")

	var parts []string
	if m := selectClause.FindStringSubmatch(normalized); m != nil {
		columns := strings.TrimSpace(m[1])
		if columns == "*" {
			parts = append(parts, "selects all columns")
		} else {
			parts = append(parts, "selects "+columns)
		}
	}
	if m := fromClause.FindStringSubmatch(normalized); m != nil {
		parts = append(parts, "from "+strings.TrimSpace(m[1]))
	}
	if m := whereClause.FindStringSubmatch(normalized); m != nil {
		parts = append(parts, "where "+strings.TrimSpace(m[1]))
	}
	if m := groupByClause.FindStringSubmatch(normalized); m != nil {
		parts = append(parts, "grouped by "+strings.TrimSpace(m[1]))
	}
	if m := orderByClause.FindStringSubmatch(normalized); m != nil {
		parts = append(parts, "ordered by "+strings.TrimSpace(m[1]))
	}
	if m := limitClause.FindStringSubmatch(normalized); m != nil {
		parts = append(parts, "limited to "+m[1]+" rows")
	}

	if len(parts) == 0 {
		return "Runs the query: " + normalized, nil
	}
	text := strings.Join(parts, ", ")
	return "This query " + text + ".", nil
}
