package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// Client abstracts the generative model provider.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Model() string
}

// Request is a single model call. JSONOutput asks the provider for a JSON
// response body instead of prose.
type Request struct {
	System      string
	Prompt      string
	JSONOutput  bool
	Temperature float32
	MaxTokens   int
}

// Response carries the model output and token accounting.
type Response struct {
	Text         string
	PromptTokens int
	OutputTokens int
}

// APIError is a non-2xx reply from the provider.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("model api error: http %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("model api error: http %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether the provider rejected the call for quota or
// request-rate reasons.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if strings.EqualFold(apiErr.Status, "RESOURCE_EXHAUSTED") {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit")
}

// IsRetryable reports whether another attempt could plausibly succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsRateLimited(err) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "client.timeout"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection closed"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "tls handshake timeout"),
		strings.Contains(msg, "eof"):
		return true
	}
	return false
}

// RetryAfterHint returns the provider's requested wait, if it sent one.
func RetryAfterHint(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}
