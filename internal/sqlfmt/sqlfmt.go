// Package sqlfmt canonicalizes SQL text so the guardrails re-check the same
// string the store will eventually execute.
package sqlfmt

import (
	"regexp"
	"strings"
)

// Formatter normalizes SQL text before storage and classification.
type Formatter interface {
	Format(sql string) string
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// Normalizer is the default Formatter: collapse runs of whitespace to single
// spaces, trim, and drop a single trailing semicolon.
type Normalizer struct{}

func (Normalizer) Format(sql string) string {
	normalized := whitespacePattern.ReplaceAllString(sql, " ")
	normalized = strings.TrimSpace(normalized)
	normalized = strings.TrimSuffix(normalized, ";")
	return strings.TrimSpace(normalized)
}
