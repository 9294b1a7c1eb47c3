package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"neurolearn-backend/internal/ai"
)

func TestClassifyRateLimited(t *testing.T) {
	err := fmt.Errorf("summarize chunk 2: %w", &ai.APIError{
		StatusCode: http.StatusTooManyRequests,
		Status:     "RESOURCE_EXHAUSTED",
		Message:    "quota exceeded",
	})
	f := Classify(err)
	if f.Code != CodeAIRateLimited {
		t.Fatalf("expected %s, got %s", CodeAIRateLimited, f.Code)
	}
	if !f.Retryable {
		t.Fatal("rate limit failures must be retryable")
	}
}

func TestClassifyTimeout(t *testing.T) {
	f := Classify(fmt.Errorf("combine parts: %w", context.DeadlineExceeded))
	if f.Code != CodeAITimeout || !f.Retryable {
		t.Fatalf("expected retryable %s, got %+v", CodeAITimeout, f)
	}
}

func TestClassifySchemaMismatch(t *testing.T) {
	f := Classify(fmt.Errorf("decode cards: %w", ai.ErrNoJSON))
	if f.Code != CodeSchemaMismatch {
		t.Fatalf("expected %s, got %s", CodeSchemaMismatch, f.Code)
	}
	if f.Retryable {
		t.Fatal("schema mismatches are not retryable")
	}
}

func TestClassifyExtraction(t *testing.T) {
	f := Classify(errors.New("extract text key=a.pdf mime=application/pdf: no text content in pdf file"))
	if f.Code != CodeExtraction {
		t.Fatalf("expected %s, got %s", CodeExtraction, f.Code)
	}
}

func TestClassifyServerErrorRetryable(t *testing.T) {
	f := Classify(&ai.APIError{StatusCode: http.StatusServiceUnavailable, Message: "overloaded"})
	if !f.Retryable {
		t.Fatalf("5xx should be retryable, got %+v", f)
	}
}

func TestClassifyUnknownDefaultsInternal(t *testing.T) {
	f := Classify(errors.New("something odd happened"))
	if f.Code != CodeInternal || f.Retryable {
		t.Fatalf("expected non-retryable %s, got %+v", CodeInternal, f)
	}
}

func TestSanitizeErrorBounded(t *testing.T) {
	long := errors.New(strings.Repeat("x", 600) + "\nline two")
	f := Classify(long)
	if len(f.Message) > 500 {
		t.Fatalf("message not truncated: %d chars", len(f.Message))
	}
	if strings.Contains(f.Message, "\n") {
		t.Fatal("message should be a single line")
	}
}
