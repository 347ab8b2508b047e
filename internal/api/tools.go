package api

import (
	"net/http"
	"strings"

	"github.com/queryguard/queryguard/internal/nl2sql"
	"github.com/queryguard/queryguard/internal/schema"
)

type explainRequest struct {
	Query string `json:"query"`
}

func handleExplainTool(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "internal-error", "pipeline is not configured", false, nil)
		return
	}

	var request explainRequest
	if !decodeRequest(w, r, &request) {
		return
	}
	if strings.TrimSpace(request.Query) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "query-required", "query is required", false, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"explanation": deps.Pipeline.ExplainOnly(r.Context(), request.Query),
	})
}

func handleSchemaTool(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "internal-error", "schema provider is not configured", false, nil)
		return
	}

	tables, err := deps.Schema.Describe(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "internal-error", "failed to load schema context", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"schema": schema.Render(tables),
		"tables": tables,
	})
}

type translateRequest struct {
	Prompt string `json:"prompt"`
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "translate-not-configured", "query translation is not configured", false, nil)
		return
	}

	var request translateRequest
	if !decodeRequest(w, r, &request) {
		return
	}
	if strings.TrimSpace(request.Prompt) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "prompt-required", "prompt is required", false, nil)
		return
	}

	var tables []nl2sql.TableContext
	if deps.Schema != nil {
		described, err := deps.Schema.Describe(r.Context())
		if err != nil {
			writeError(r.Context(), w, http.StatusInternalServerError, "internal-error", "failed to load schema context", true, map[string]any{"details": err.Error()})
			return
		}
		tables = described
	}

	result, err := deps.Translator.Translate(r.Context(), nl2sql.Request{
		Question: request.Prompt,
		Tables:   tables,
	})
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "translate-failed", "failed to translate question", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"sql":      result.SQL,
		"provider": result.Provider,
		"model":    result.Model,
	})
}
