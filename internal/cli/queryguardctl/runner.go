package queryguardctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("queryguardctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "queryguard API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 10*time.Second), "HTTP timeout (e.g. 10s)")
	query := fs.String("query", "", "SQL text for query/preview/explain commands")
	previewID := fs.String("preview-id", "", "preview id for the execute command")
	prompt := fs.String("prompt", "", "natural-language question for the translate command")
	userID := fs.String("user", "", "user id recorded in the audit trail")
	userRole := fs.String("role", "", "role checked against the table policy")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	method := ""
	path := ""
	var payload map[string]any
	switch command {
	case "health":
		method, path = http.MethodGet, "/v1/health"
	case "ready":
		method, path = http.MethodGet, "/v1/ready"
	case "schema":
		method, path = http.MethodGet, "/v1/tools/schema"
	case "query":
		method, path = http.MethodPost, "/v1/tools/db"
		payload = map[string]any{"query": *query, "user_id": *userID, "user_role": *userRole}
	case "preview":
		method, path = http.MethodPost, "/v1/tools/preview"
		payload = map[string]any{"query": *query, "user_id": *userID, "user_role": *userRole}
	case "execute":
		method, path = http.MethodPost, "/v1/execute-preview"
		payload = map[string]any{"preview_id": *previewID, "user_id": *userID, "user_role": *userRole}
	case "explain":
		method, path = http.MethodPost, "/v1/tools/explain"
		payload = map[string]any{"query": *query}
	case "translate":
		method, path = http.MethodPost, "/v1/translate"
		payload = map[string]any{"prompt": *prompt}
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, method, endpoint, *apiKey, payload)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, payload map[string]any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(compact(payload))
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

// compact drops empty string fields so the server applies its own defaults
// (identity-derived user and role) instead of seeing explicit blanks.
func compact(payload map[string]any) map[string]any {
	cleaned := make(map[string]any, len(payload))
	for key, value := range payload {
		if text, ok := value.(string); ok && strings.TrimSpace(text) == "" {
			continue
		}
		cleaned[key] = value
	}
	return cleaned
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: queryguardctl [flags] <command>")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health     GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready      GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  schema     GET /v1/tools/schema")
	_, _ = fmt.Fprintln(w, "  query      POST /v1/tools/db (-query, -user, -role)")
	_, _ = fmt.Fprintln(w, "  preview    POST /v1/tools/preview (-query, -user, -role)")
	_, _ = fmt.Fprintln(w, "  execute    POST /v1/execute-preview (-preview-id, -user, -role)")
	_, _ = fmt.Fprintln(w, "  explain    POST /v1/tools/explain (-query)")
	_, _ = fmt.Fprintln(w, "  translate  POST /v1/translate (-prompt)")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
