// Package guard holds the pre-execution SQL checks: a forbidden-statement
// classifier and a heuristic table-reference extractor. Both are deliberately
// regex-based rather than a full SQL parser; the classifier over-blocks
// (a forbidden keyword inside a string literal still rejects) and the
// extractor's misses fail closed at the policy layer.
package guard

import (
	"regexp"
	"sort"
	"strings"
)

var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "TRUNCATE", "ALTER", "REPLACE", "MERGE",
}

var (
	forbiddenPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(forbiddenKeywords, "|") + `)\b`)
	tableRefPattern  = regexp.MustCompile("(?i)\\b(?:FROM|JOIN)\\s+[`\"]?([A-Za-z0-9_.]+)[`\"]?")
	newlinePattern   = regexp.MustCompile(`[\r\n]+`)
)

// IsForbidden reports whether sql contains a mutating statement keyword.
// The match is whole-word and case-insensitive, anywhere in the string.
func IsForbidden(sql string) bool {
	return forbiddenPattern.MatchString(sql)
}

// ForbiddenKeyword returns the first forbidden keyword found in sql, uppercased,
// so rejections can name what was blocked.
func ForbiddenKeyword(sql string) (string, bool) {
	match := forbiddenPattern.FindString(sql)
	if match == "" {
		return "", false
	}
	return strings.ToUpper(match), true
}

// ExtractTableNames returns the sorted, de-duplicated, lowercased table names
// referenced by FROM and JOIN clauses in sql. Schema and database qualifiers
// are stripped to the last dot-separated segment. Subquery aliases and CTE
// names can leak into the result; callers must treat unknown names as a deny,
// never an allow.
func ExtractTableNames(sql string) []string {
	normalized := newlinePattern.ReplaceAllString(sql, " ")

	seen := map[string]struct{}{}
	for _, match := range tableRefPattern.FindAllStringSubmatch(normalized, -1) {
		name := match[1]
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[idx+1:]
		}
		name = strings.Trim(name, "`\"")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
