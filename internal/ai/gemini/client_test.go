package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"neurolearn-backend/internal/ai"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient("test-key", "gemini-test", 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.baseURL = srv.URL
	return client, srv
}

func TestGenerateSuccess(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates":[{"content":{"role":"model","parts":[{"text":"part one "},{"text":"part two"}]},"finishReason":"STOP"}],
			"usageMetadata":{"promptTokenCount":120,"candidatesTokenCount":45}
		}`))
	})

	resp, err := client.Generate(context.Background(), ai.Request{
		System:      "be brief",
		Prompt:      "summarize this",
		JSONOutput:  true,
		Temperature: 0.4,
		MaxTokens:   256,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if resp.Text != "part one part two" {
		t.Fatalf("Text = %q, want joined parts", resp.Text)
	}
	if resp.PromptTokens != 120 || resp.OutputTokens != 45 {
		t.Fatalf("tokens = %d/%d, want 120/45", resp.PromptTokens, resp.OutputTokens)
	}
	if gotPath != "/models/gemini-test:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("x-goog-api-key = %q", gotKey)
	}
	if gotBody.SystemInstruction == nil || gotBody.SystemInstruction.Parts[0].Text != "be brief" {
		t.Fatalf("systemInstruction = %+v", gotBody.SystemInstruction)
	}
	if len(gotBody.Contents) != 1 || gotBody.Contents[0].Parts[0].Text != "summarize this" {
		t.Fatalf("contents = %+v", gotBody.Contents)
	}
	cfg := gotBody.GenerationConfig
	if cfg == nil || cfg.ResponseMimeType != "application/json" || cfg.MaxOutputTokens != 256 {
		t.Fatalf("generationConfig = %+v", cfg)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.4 {
		t.Fatalf("temperature = %v, want 0.4", cfg.Temperature)
	}
}

func TestGenerateRateLimited(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{
			"error":{
				"code":429,
				"message":"Resource has been exhausted (e.g. check quota).",
				"status":"RESOURCE_EXHAUSTED",
				"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"7s"}]
			}
		}`))
	})

	_, err := client.Generate(context.Background(), ai.Request{Prompt: "hi"})
	var apiErr *ai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Status != "RESOURCE_EXHAUSTED" {
		t.Fatalf("APIError = %+v", apiErr)
	}
	if apiErr.RetryAfter != 7*time.Second {
		t.Fatalf("RetryAfter = %v, want 7s", apiErr.RetryAfter)
	}
	if !ai.IsRateLimited(err) {
		t.Fatalf("IsRateLimited = false, want true")
	}
}

func TestGenerateRetryAfterHeader(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
	})

	_, err := client.Generate(context.Background(), ai.Request{Prompt: "hi"})
	var apiErr *ai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.RetryAfter != 12*time.Second {
		t.Fatalf("RetryAfter = %v, want 12s", apiErr.RetryAfter)
	}
	if !ai.IsRetryable(err) {
		t.Fatalf("IsRetryable = false, want true")
	}
}

func TestGenerateServerErrorPlainBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	_, err := client.Generate(context.Background(), ai.Request{Prompt: "hi"})
	var apiErr *ai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("StatusCode = %d, want 500", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Message, "upstream exploded") {
		t.Fatalf("Message = %q, want raw body", apiErr.Message)
	}
}

func TestGenerateBlockedPrompt(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	})

	_, err := client.Generate(context.Background(), ai.Request{Prompt: "hi"})
	if err == nil || !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("error = %v, want blocked prompt error", err)
	}
	if ai.IsRetryable(err) {
		t.Fatalf("blocked prompt should not be retryable")
	}
}

func TestGenerateEmptyCandidates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := client.Generate(context.Background(), ai.Request{Prompt: "hi"})
	if err == nil || !strings.Contains(err.Error(), "missing candidates") {
		t.Fatalf("error = %v, want missing candidates", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", "gemini-test", 0); err == nil {
		t.Fatalf("NewClient without key succeeded")
	}
	if _, err := NewClient("key", "", 0); err == nil {
		t.Fatalf("NewClient without model succeeded")
	}
}
