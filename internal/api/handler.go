package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/queryguard/queryguard/internal/config"
	"github.com/queryguard/queryguard/internal/nl2sql"
	"github.com/queryguard/queryguard/internal/observability"
	"github.com/queryguard/queryguard/internal/pipeline"
)

type ReadinessCheck func(ctx context.Context) error

// Orchestrator is the guarded execution pipeline the handlers front.
type Orchestrator interface {
	Preview(ctx context.Context, input pipeline.PreviewInput) (pipeline.PreviewResult, error)
	Execute(ctx context.Context, input pipeline.ExecuteInput) (pipeline.ExecuteResult, error)
	ExplainOnly(ctx context.Context, sql string) string
}

type SchemaDescriber interface {
	Describe(ctx context.Context) ([]nl2sql.TableContext, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Pipeline          Orchestrator
	Translator        nl2sql.Translator
	Schema            SchemaDescriber
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "not-ready", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/execute-preview", func(w http.ResponseWriter, r *http.Request) {
		handleExecutePreview(deps, w, r)
	})
	protected.HandleFunc("POST /v1/tools/db", func(w http.ResponseWriter, r *http.Request) {
		handleDBTool(deps, w, r)
	})
	protected.HandleFunc("POST /v1/tools/preview", func(w http.ResponseWriter, r *http.Request) {
		handlePreviewTool(deps, w, r)
	})
	protected.HandleFunc("POST /v1/tools/explain", func(w http.ResponseWriter, r *http.Request) {
		handleExplainTool(deps, w, r)
	})
	protected.HandleFunc("GET /v1/tools/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchemaTool(deps, w, r)
	})
	protected.HandleFunc("POST /v1/translate", func(w http.ResponseWriter, r *http.Request) {
		handleTranslate(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "internal-error", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/execute-preview", protectedHandler)
	mux.Handle("POST /v1/tools/db", protectedHandler)
	mux.Handle("POST /v1/tools/preview", protectedHandler)
	mux.Handle("POST /v1/tools/explain", protectedHandler)
	mux.Handle("GET /v1/tools/schema", protectedHandler)
	mux.Handle("POST /v1/translate", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckDatabaseConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		switch cfg.Database.Driver {
		case "duckdb":
			return nil
		default:
			if cfg.Database.DSN == "" {
				return errors.New("database dsn is not configured")
			}
			return nil
		}
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
