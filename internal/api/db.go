package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/queryguard/queryguard/internal/auth"
	"github.com/queryguard/queryguard/internal/pipeline"
)

type dbToolRequest struct {
	Query     string `json:"query"`
	DryRun    bool   `json:"dry_run"`
	PreviewID string `json:"preview_id"`
	UserID    string `json:"user_id"`
	UserRole  string `json:"user_role"`
}

type previewResponse struct {
	OK          bool   `json:"ok"`
	PreviewID   string `json:"preview_id"`
	Query       string `json:"query"`
	Explanation string `json:"explanation"`
}

type executeResponse struct {
	OK            bool             `json:"ok"`
	Columns       []string         `json:"columns"`
	Rows          []map[string]any `json:"rows"`
	ExecutedQuery string           `json:"executed_query"`
}

// handleDBTool is the assistant-facing entry point: dry_run parks the query
// as a preview, otherwise the query (or a resolved preview_id) executes.
func handleDBTool(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "internal-error", "pipeline is not configured", false, nil)
		return
	}

	var request dbToolRequest
	if !decodeRequest(w, r, &request) {
		return
	}
	request.UserID, request.UserRole = identityDefaults(r, request.UserID, request.UserRole)

	if request.DryRun {
		if strings.TrimSpace(request.Query) == "" {
			writeError(r.Context(), w, http.StatusBadRequest, "query-required", "query is required for a dry run", false, nil)
			return
		}
		result, err := deps.Pipeline.Preview(r.Context(), pipeline.PreviewInput{
			Query:    request.Query,
			UserID:   request.UserID,
			UserRole: request.UserRole,
		})
		if err != nil {
			writePipelineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, previewResponse{
			OK:          true,
			PreviewID:   result.PreviewID,
			Query:       result.Query,
			Explanation: result.Explanation,
		})
		return
	}

	if strings.TrimSpace(request.Query) == "" && strings.TrimSpace(request.PreviewID) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "query-required", "query or preview_id is required", false, nil)
		return
	}
	result, err := deps.Pipeline.Execute(r.Context(), pipeline.ExecuteInput{
		Query:     request.Query,
		PreviewID: request.PreviewID,
		UserID:    request.UserID,
		UserRole:  request.UserRole,
	})
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, executeResponse{
		OK:            true,
		Columns:       result.Columns,
		Rows:          result.Rows,
		ExecutedQuery: result.ExecutedQuery,
	})
}

type executePreviewRequest struct {
	PreviewID string `json:"preview_id"`
	UserID    string `json:"user_id"`
	UserRole  string `json:"user_role"`
}

func handleExecutePreview(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "internal-error", "pipeline is not configured", false, nil)
		return
	}

	var request executePreviewRequest
	if !decodeRequest(w, r, &request) {
		return
	}
	if strings.TrimSpace(request.PreviewID) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "preview-id-required", "preview_id is required", false, nil)
		return
	}
	request.UserID, request.UserRole = identityDefaults(r, request.UserID, request.UserRole)

	result, err := deps.Pipeline.Execute(r.Context(), pipeline.ExecuteInput{
		PreviewID: request.PreviewID,
		UserID:    request.UserID,
		UserRole:  request.UserRole,
	})
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, executeResponse{
		OK:            true,
		Columns:       result.Columns,
		Rows:          result.Rows,
		ExecutedQuery: result.ExecutedQuery,
	})
}

type previewToolRequest struct {
	Query    string `json:"query"`
	UserID   string `json:"user_id"`
	UserRole string `json:"user_role"`
}

func handlePreviewTool(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "internal-error", "pipeline is not configured", false, nil)
		return
	}

	var request previewToolRequest
	if !decodeRequest(w, r, &request) {
		return
	}
	if strings.TrimSpace(request.Query) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "query-required", "query is required", false, nil)
		return
	}
	request.UserID, request.UserRole = identityDefaults(r, request.UserID, request.UserRole)

	result, err := deps.Pipeline.Preview(r.Context(), pipeline.PreviewInput{
		Query:    request.Query,
		UserID:   request.UserID,
		UserRole: request.UserRole,
	})
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{
		OK:          true,
		PreviewID:   result.PreviewID,
		Query:       result.Query,
		Explanation: result.Explanation,
	})
}

func decodeRequest(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid-json", "invalid request body", false, map[string]any{"details": err.Error()})
		return false
	}
	return true
}

// identityDefaults fills user and role from the authenticated identity when
// the request body leaves them empty. Explicit body values win so trusted
// callers can act on behalf of another user.
func identityDefaults(r *http.Request, userID, userRole string) (string, string) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return userID, userRole
	}
	if userID == "" {
		userID = identity.UserID
	}
	if userRole == "" {
		userRole = identity.Role
	}
	return userID, userRole
}

func writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	code := pipeline.CodeOf(err)
	status := http.StatusInternalServerError
	retryable := false
	switch code {
	case pipeline.CodeForbiddenStatement, pipeline.CodeExecutionError:
		status = http.StatusBadRequest
	case pipeline.CodeRbacDenied, pipeline.CodeUnknownRole:
		status = http.StatusForbidden
	case pipeline.CodePreviewNotFound:
		status = http.StatusNotFound
	default:
		code = pipeline.CodeInternalError
		retryable = true
	}
	writeError(r.Context(), w, status, string(code), err.Error(), retryable, nil)
}
