package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"newsreel/internal/services"
)

func completionHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{"content": content},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func TestOpenRouterHealthCheck(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, `{"ok":true}`))
	defer server.Close()

	client := NewOpenRouterClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestOpenRouterHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "```json\n{\"ok\":true}\n```"))
	defer server.Close()

	client := NewOpenRouterClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestOpenRouterHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewOpenRouterClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	err := client.HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected health check to fail")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service marker, got %v", err)
	}
}

func TestOpenRouterCompleteTextSendsHeaders(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer key" {
			t.Errorf("authorization = %q", auth)
		}
		if title := r.Header.Get("X-Title"); title != "newsreel" {
			t.Errorf("x-title = %q", title)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		completionHandler(t, "今日のニュース")(w, r)
	}))
	defer server.Close()

	client := NewOpenRouterClient(Config{APIKey: "key", BaseURL: server.URL, Model: "demo", Title: "newsreel"})
	text, err := client.CompleteText(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteText returned error: %v", err)
	}
	if text != "今日のニュース" {
		t.Fatalf("text = %q", text)
	}
	if got.Model != "demo" || len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("unexpected request payload: %+v", got)
	}
	if got.Temperature == nil || *got.Temperature != defaultTemperature {
		t.Fatalf("temperature = %v", got.Temperature)
	}
}

func TestOpenRouterRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		completionHandler(t, "ok")(w, r)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewOpenRouterClient(
		Config{APIKey: "key", BaseURL: server.URL, Model: "demo"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	text, err := client.CompleteText(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteText returned error: %v", err)
	}
	if text != "ok" || calls.Load() != 2 {
		t.Fatalf("text=%q calls=%d", text, calls.Load())
	}
	if len(slept) != 1 || slept[0] != 3*time.Second {
		t.Fatalf("slept = %v, want [3s]", slept)
	}
}

func TestOpenRouterEmptyContentExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":""},"finish_reason":"length"}]}`))
	}))
	defer server.Close()

	client := NewOpenRouterClient(
		Config{APIKey: "key", BaseURL: server.URL, Model: "demo"},
		WithRetryMaxAttempts(3),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.CompleteText(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected error for empty content")
	}
	var empty *emptyContentError
	if !errors.As(err, &empty) || empty.FinishReason != "length" {
		t.Fatalf("expected empty content error with finish reason, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestOpenRouterDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewOpenRouterClient(Config{APIKey: "key", BaseURL: server.URL, Model: "demo"}, WithSleeper(func(time.Duration) {}))
	if _, err := client.CompleteText(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestOpenRouterRequiresAPIKey(t *testing.T) {
	client := NewOpenRouterClient(Config{Model: "demo"})
	_, err := client.CompleteText(context.Background(), "system", "user")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if services.IsRetryable(err) {
		t.Fatalf("missing key must not be retried: %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
		ok    bool
	}{
		{"", 0, false},
		{"5", 5 * time.Second, true},
		{"-1", 0, false},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseRetryAfter(tt.value)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseRetryAfter(%q) = %v,%v want %v,%v", tt.value, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNewTextGeneratorSelectsProvider(t *testing.T) {
	gen, err := NewTextGenerator(Config{Provider: "OpenRouter", APIKey: "k"})
	if err != nil {
		t.Fatalf("NewTextGenerator: %v", err)
	}
	if _, ok := gen.(*OpenRouterClient); !ok {
		t.Fatalf("expected OpenRouterClient, got %T", gen)
	}
	gen, err = NewTextGenerator(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewTextGenerator: %v", err)
	}
	if _, ok := gen.(*GeminiClient); !ok {
		t.Fatalf("expected GeminiClient, got %T", gen)
	}
	if _, err := NewTextGenerator(Config{Provider: "bogus"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
