package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vla/internal/domain"
	"vla/internal/retry"
)

// newOpenAITestServer serves /v1/chat/completions with the given status and body
// and records the decoded request.
func newOpenAITestServer(t *testing.T, status int, body string, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProvider_Generate_WhenAPISuccess_ShouldReturnFirstChoice(t *testing.T) {
	var req map[string]any
	srv := newOpenAITestServer(t, 200, `{"choices":[{"message":{"role":"assistant","content":"First choice"}},{"message":{"content":"Second"}}]}`, &req)
	p := NewOpenAIProvider("key", "gpt-4", WithBaseURL(srv.URL+"/v1"), WithHTTPClient(srv.Client()))

	result, err := p.Generate(context.Background(), "hi", domain.GenerateOptions{Stop: []string{"Observation:"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result != "First choice" {
		t.Errorf("expected 'First choice', got %q", result)
	}
	if req["model"] != "gpt-4" {
		t.Errorf("unexpected model %v", req["model"])
	}
	stop, _ := req["stop"].([]any)
	if len(stop) != 1 || stop[0] != "Observation:" {
		t.Errorf("unexpected stop %v", req["stop"])
	}
	temp, ok := req["temperature"].(float64)
	if !ok || temp > 1e-6 {
		t.Errorf("zero temperature must be sent as a tiny positive value, got %v", req["temperature"])
	}
}

func TestOpenAIProvider_Generate_WhenAPIError_ShouldReturnStatusError(t *testing.T) {
	srv := newOpenAITestServer(t, 429, `{"error":{"message":"Rate limit reached","type":"requests"}}`, nil)
	p := NewOpenAIProvider("key", "gpt-4", WithBaseURL(srv.URL+"/v1"), WithHTTPClient(srv.Client()))

	_, err := p.Generate(context.Background(), "hi", domain.GenerateOptions{})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != 429 {
		t.Fatalf("expected StatusError 429, got %v", err)
	}
	if !retry.IsRetryable(err) || !isRateLimitError(err) {
		t.Error("429 should be retryable and count as a rate limit")
	}
}

func TestOpenAIProvider_Generate_WhenNonJSONErrorBody_ShouldKeepStatus(t *testing.T) {
	srv := newOpenAITestServer(t, 500, `Internal Server Error`, nil)
	p := NewOpenAIProvider("key", "gpt-4", WithBaseURL(srv.URL+"/v1"), WithHTTPClient(srv.Client()))

	_, err := p.Generate(context.Background(), "hi", domain.GenerateOptions{})
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("expected error containing 500, got %v", err)
	}
}

func TestOpenAIProvider_Generate_WhenAPIEmptyChoices_ShouldReturnError(t *testing.T) {
	srv := newOpenAITestServer(t, 200, `{"choices":[]}`, nil)
	p := NewOpenAIProvider("key", "gpt-4", WithBaseURL(srv.URL+"/v1"), WithHTTPClient(srv.Client()))

	_, err := p.Generate(context.Background(), "hi", domain.GenerateOptions{})
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Errorf("expected error about no choices, got %v", err)
	}
}

func TestOpenAIProvider_Generate_WhenContextCanceled_ShouldReturnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewOpenAIProvider("key", "gpt-4").Generate(ctx, "hi", domain.GenerateOptions{}); err == nil {
		t.Error("expected error when context canceled")
	}
}

func TestNewOpenRouterProvider_ShouldNameErrorsAfterOpenRouter(t *testing.T) {
	srv := newOpenAITestServer(t, 401, `{"error":{"message":"bad key"}}`, nil)
	p := NewOpenRouterProvider("key", "meta-llama/llama-3-8b", WithBaseURL(srv.URL+"/v1"), WithHTTPClient(srv.Client()))

	_, err := p.Generate(context.Background(), "hi", domain.GenerateOptions{})
	if err == nil || !strings.HasPrefix(err.Error(), "openrouter api: 401") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestTemperature(t *testing.T) {
	if temperature(0) <= 0 {
		t.Error("zero must map to a positive value")
	}
	if temperature(0.7) != float32(0.7) {
		t.Errorf("unexpected %v", temperature(0.7))
	}
}
