package generation

import (
	"context"
	"errors"
	"strings"

	"neurolearn-backend/internal/ai"
)

// Error codes persisted on failed generation rows.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeAITimeout      = "AI_TIMEOUT"
	CodeAIRateLimited  = "AI_RATE_LIMITED"
	CodeSchemaMismatch = "AI_SCHEMA_MISMATCH"
	CodeExtraction     = "EXTRACTION_ERROR"
	CodeStorage        = "STORAGE_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
)

// Classify maps a pipeline error onto a persisted failure. Retryable means a
// later run with the same inputs could succeed, so the client may offer a
// retry button.
func Classify(err error) Failure {
	code, retryable := classify(err)
	return Failure{Code: code, Message: sanitizeError(err), Retryable: retryable}
}

func classify(err error) (string, bool) {
	if err == nil {
		return CodeInternal, false
	}
	if ai.IsRateLimited(err) {
		return CodeAIRateLimited, true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeAITimeout, true
	}
	if errors.Is(err, ai.ErrNoJSON) {
		return CodeSchemaMismatch, false
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return CodeAITimeout, true
	case strings.Contains(msg, "model reply"), strings.Contains(msg, "schema"),
		strings.Contains(msg, "model output"):
		return CodeSchemaMismatch, false
	case strings.Contains(msg, "extract"), strings.Contains(msg, "no text content"),
		strings.Contains(msg, "unsupported file type"), strings.Contains(msg, "transcription"):
		return CodeExtraction, false
	case strings.Contains(msg, "storage"), strings.Contains(msg, "document"),
		strings.Contains(msg, "save copy"), strings.Contains(msg, "load text"):
		return CodeStorage, true
	case strings.Contains(msg, "validation"), strings.Contains(msg, "invalid input"):
		return CodeValidation, false
	}
	if ai.IsRetryable(err) {
		return CodeInternal, true
	}
	return CodeInternal, false
}

// sanitizeError flattens an error into a single bounded line safe to persist
// and return to clients.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
