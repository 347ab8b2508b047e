package pipeline

import (
	"errors"
	"fmt"
)

// Code classifies a pipeline rejection for callers.
type Code string

const (
	CodeForbiddenStatement Code = "forbidden-statement"
	CodeRbacDenied         Code = "rbac-denied"
	CodeUnknownRole        Code = "unknown-role"
	CodePreviewNotFound    Code = "preview-not-found"
	CodeExecutionError     Code = "execution-error"
	CodeInternalError      Code = "internal-error"
)

// Error is the structured rejection returned by the orchestrator. Guardrail
// rejections carry enough detail to self-correct (the offending keyword,
// role, or table) but never echo data from the store.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func wrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the pipeline code from err, or CodeInternalError when err
// is not a pipeline rejection.
func CodeOf(err error) Code {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Code
	}
	return CodeInternalError
}
