package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "http 429", err: &APIError{StatusCode: http.StatusTooManyRequests}, want: true},
		{name: "resource exhausted", err: &APIError{StatusCode: 400, Status: "RESOURCE_EXHAUSTED"}, want: true},
		{name: "quota message", err: &APIError{StatusCode: 403, Message: "Quota exceeded for requests"}, want: true},
		{name: "rate limit message", err: &APIError{StatusCode: 400, Message: "Rate limit reached"}, want: true},
		{name: "server error", err: &APIError{StatusCode: 503}, want: false},
		{name: "wrapped", err: fmt.Errorf("call failed: %w", &APIError{StatusCode: 429}), want: true},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimited(tt.err); got != tt.want {
				t.Fatalf("IsRateLimited(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "rate limited", err: &APIError{StatusCode: 429}, want: true},
		{name: "server error", err: &APIError{StatusCode: 500}, want: true},
		{name: "bad gateway", err: &APIError{StatusCode: 502}, want: true},
		{name: "bad request", err: &APIError{StatusCode: 400}, want: false},
		{name: "unauthorized", err: &APIError{StatusCode: 401}, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "wrapped deadline", err: fmt.Errorf("gemini request timeout: %w", context.DeadlineExceeded), want: true},
		{name: "client timeout", err: errors.New("Post \"x\": net/http: request canceled (Client.Timeout exceeded while awaiting headers)"), want: true},
		{name: "connection reset", err: errors.New("read tcp: connection reset by peer"), want: true},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Fatalf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryAfterHint(t *testing.T) {
	err := fmt.Errorf("call failed: %w", &APIError{StatusCode: 429, RetryAfter: 7 * time.Second})
	if got := RetryAfterHint(err); got != 7*time.Second {
		t.Fatalf("RetryAfterHint = %v, want 7s", got)
	}
	if got := RetryAfterHint(errors.New("boom")); got != 0 {
		t.Fatalf("RetryAfterHint on plain error = %v, want 0", got)
	}
}
