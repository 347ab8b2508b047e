// Package explain turns SQL into a short human-readable description for the
// preview confirmation step. The external provider may fail or be
// unconfigured; Heuristic is the deterministic local fallback.
package explain

import "context"

type Explainer interface {
	Explain(ctx context.Context, sql string) (string, error)
}
