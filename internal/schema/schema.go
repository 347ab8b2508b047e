// Package schema describes the queryable tables of the configured data
// store. The description feeds the translator prompt and the schema tool, so
// sample values are masked before leaving the package.
package schema

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/queryguard/queryguard/internal/nl2sql"
	"github.com/queryguard/queryguard/internal/redact"
	"github.com/queryguard/queryguard/internal/store"
)

const defaultSampleRows = 3

var identPattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// Provider probes tables through the shared store runner. Tables can be set
// explicitly from config; when empty the provider discovers them from
// information_schema.
type Provider struct {
	Runner     store.Runner
	Tables     []string
	SampleRows int
}

// Describe returns per-table columns and masked sample rows for every
// configured table. Tables that cannot be probed are skipped rather than
// failing the whole description; an error is returned only when no table
// could be described at all.
func (p *Provider) Describe(ctx context.Context) ([]nl2sql.TableContext, error) {
	tables := p.Tables
	if len(tables) == 0 {
		discovered, err := p.discoverTables(ctx)
		if err != nil {
			return nil, fmt.Errorf("discover tables: %w", err)
		}
		tables = discovered
	}

	limit := p.SampleRows
	if limit <= 0 {
		limit = defaultSampleRows
	}

	contexts := make([]nl2sql.TableContext, 0, len(tables))
	var firstErr error
	for _, table := range tables {
		if !identPattern.MatchString(table) {
			continue
		}
		result, err := p.Runner.Run(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, limit))
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("probe table %s: %w", table, err)
			}
			continue
		}
		contexts = append(contexts, nl2sql.TableContext{
			TableName:  table,
			Columns:    result.Columns,
			SampleRows: sampleValues(result),
		})
	}
	if len(contexts) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return contexts, nil
}

// Render flattens the table contexts into the text served by the schema tool.
func Render(tables []nl2sql.TableContext) string {
	if len(tables) == 0 {
		return "No tables available."
	}
	var b strings.Builder
	for i, table := range tables {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Table %s (%s)\n", table.TableName, strings.Join(table.Columns, ", "))
		for _, row := range table.SampleRows {
			parts := make([]string, len(row))
			for j, value := range row {
				parts[j] = fmt.Sprintf("%v", value)
			}
			fmt.Fprintf(&b, "  sample: %s\n", strings.Join(parts, ", "))
		}
	}
	return b.String()
}

func (p *Provider) discoverTables(ctx context.Context) ([]string, error) {
	result, err := p.Runner.Run(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema NOT IN ('pg_catalog', 'information_schema') ORDER BY table_name")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		if name, ok := row["table_name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func sampleValues(result store.Result) [][]any {
	samples := make([][]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		masked := redact.MaskRow(row)
		values := make([]any, len(result.Columns))
		for i, column := range result.Columns {
			values[i] = masked[column]
		}
		samples = append(samples, values)
	}
	return samples
}
