// Package pipeline composes the guardrails into the two entry paths every
// query takes: a dry-run that parks validated SQL as a preview, and a commit
// path that re-validates, executes, masks, and audits. The data store is only
// ever invoked with text that passed both guardrails immediately prior.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/queryguard/queryguard/internal/audit"
	"github.com/queryguard/queryguard/internal/explain"
	"github.com/queryguard/queryguard/internal/guard"
	"github.com/queryguard/queryguard/internal/observability"
	"github.com/queryguard/queryguard/internal/policy"
	"github.com/queryguard/queryguard/internal/preview"
	"github.com/queryguard/queryguard/internal/redact"
	"github.com/queryguard/queryguard/internal/sqlfmt"
	"github.com/queryguard/queryguard/internal/store"
)

// Service orchestrates the query-safety pipeline. All collaborators are
// injected; Formatter, Explainer, Recorder, and Clock have working defaults.
type Service struct {
	Policy    *policy.Policy
	Previews  preview.Store
	Runner    store.Runner
	Recorder  audit.Recorder
	Explainer explain.Explainer
	Formatter sqlfmt.Formatter
	Logger    *slog.Logger
	Clock     func() time.Time

	// ExplainTimeout bounds the external explanation call before the local
	// heuristic takes over. Zero means 10 seconds.
	ExplainTimeout time.Duration
}

type PreviewInput struct {
	Query    string
	UserID   string
	UserRole string
}

type PreviewResult struct {
	PreviewID   string
	Query       string
	Explanation string
}

type ExecuteInput struct {
	Query     string
	PreviewID string
	UserID    string
	UserRole  string
}

type ExecuteResult struct {
	Columns       []string
	Rows          []map[string]any
	ExecutedQuery string
}

// Preview validates the query and parks it for confirmation. Nothing
// executes; the returned id is the handle for a later Execute call.
func (s *Service) Preview(ctx context.Context, input PreviewInput) (PreviewResult, error) {
	query := s.format(input.Query)

	if err := s.checkGuardrails(query, input.UserRole); err != nil {
		return PreviewResult{}, err
	}

	id, err := s.Previews.Put(ctx, query, input.UserID, input.UserRole)
	if err != nil {
		return PreviewResult{}, wrapError(CodeInternalError, "could not store preview", err)
	}
	observability.ObservePreviewCreated()

	return PreviewResult{
		PreviewID:   id,
		Query:       query,
		Explanation: s.explain(ctx, query),
	}, nil
}

// Execute runs a query against the data store. With a PreviewID the stored
// text is resolved and the preview is consumed on success or guard rejection
// (one-time-use); otherwise the literal query executes. The guardrails run
// again on the resolved text regardless of any earlier pass.
func (s *Service) Execute(ctx context.Context, input ExecuteInput) (ExecuteResult, error) {
	query := s.format(input.Query)
	role := input.UserRole
	userID := input.UserID
	fromPreview := false

	if input.PreviewID != "" {
		pending, err := s.Previews.Get(ctx, input.PreviewID)
		if err != nil {
			if errors.Is(err, preview.ErrNotFound) {
				return ExecuteResult{}, newError(CodePreviewNotFound, fmt.Sprintf("preview %q not found or expired", input.PreviewID))
			}
			return ExecuteResult{}, wrapError(CodeInternalError, "could not resolve preview", err)
		}
		fromPreview = true
		query = pending.Query
		if role == "" {
			role = pending.UserRole
		}
		if userID == "" {
			userID = pending.UserID
		}
	}

	if err := s.checkGuardrails(query, role); err != nil {
		if fromPreview {
			_ = s.Previews.Delete(ctx, input.PreviewID)
		}
		return ExecuteResult{}, err
	}

	result, err := s.Runner.Run(ctx, query)
	if err != nil {
		return ExecuteResult{}, wrapError(CodeExecutionError, err.Error(), err)
	}
	observability.ObserveQueryExecuted()

	rows := redact.MaskRows(result.Rows)

	s.recordAudit(ctx, audit.Entry{
		PreviewID:  input.PreviewID,
		Query:      query,
		UserID:     userID,
		ExecutedAt: s.now(),
	})

	if fromPreview {
		_ = s.Previews.Delete(ctx, input.PreviewID)
		observability.ObservePreviewConfirmed()
	}

	return ExecuteResult{
		Columns:       result.Columns,
		Rows:          rows,
		ExecutedQuery: query,
	}, nil
}

// ExplainOnly describes a query without touching guardrails, storage, or the
// data store.
func (s *Service) ExplainOnly(ctx context.Context, sql string) string {
	return s.explain(ctx, s.format(sql))
}

// checkGuardrails is the shared pre-execution gate: statement classifier
// first, then the role policy. It runs in full at every entry point.
func (s *Service) checkGuardrails(query, role string) error {
	if keyword, forbidden := guard.ForbiddenKeyword(query); forbidden {
		observability.ObserveGuardrailRejection(string(CodeForbiddenStatement))
		return newError(CodeForbiddenStatement, fmt.Sprintf("statement contains forbidden keyword %s", keyword))
	}

	if err := s.Policy.Check(query, role); err != nil {
		if errors.Is(err, policy.ErrUnknownRole) {
			observability.ObserveGuardrailRejection(string(CodeUnknownRole))
			return wrapError(CodeUnknownRole, err.Error(), err)
		}
		observability.ObserveGuardrailRejection(string(CodeRbacDenied))
		return wrapError(CodeRbacDenied, err.Error(), err)
	}
	return nil
}

func (s *Service) explain(ctx context.Context, query string) string {
	if s.Explainer != nil {
		timeout := s.ExplainTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		explainCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		text, err := s.Explainer.Explain(explainCtx, query)
		if err == nil {
			return text
		}
		observability.ObserveExplanationFallback()
		if s.Logger != nil {
			s.Logger.WarnContext(ctx, "explanation provider failed, using heuristic", slog.Any("error", err))
		}
	}

	text, _ := (explain.Heuristic{}).Explain(ctx, query)
	return text
}

func (s *Service) recordAudit(ctx context.Context, entry audit.Entry) {
	recorder := s.Recorder
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if err := recorder.Record(ctx, entry); err != nil {
		observability.ObserveAuditWriteFailure()
		if s.Logger != nil {
			s.Logger.WarnContext(ctx, "audit log write failed", slog.Any("error", err))
		}
	}
}

func (s *Service) format(sql string) string {
	if s.Formatter != nil {
		return s.Formatter.Format(sql)
	}
	return sqlfmt.Normalizer{}.Format(sql)
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}
