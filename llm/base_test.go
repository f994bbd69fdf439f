package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kilnforge/meshpilot/core"
)

type mockLogger struct {
	logs []string
}

func (m *mockLogger) Debug(msg string, fields map[string]interface{}) { m.logs = append(m.logs, "DEBUG: "+msg) }
func (m *mockLogger) Info(msg string, fields map[string]interface{})  { m.logs = append(m.logs, "INFO: "+msg) }
func (m *mockLogger) Warn(msg string, fields map[string]interface{})  { m.logs = append(m.logs, "WARN: "+msg) }
func (m *mockLogger) Error(msg string, fields map[string]interface{}) { m.logs = append(m.logs, "ERROR: "+msg) }

func (m *mockLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	m.logs = append(m.logs, "DEBUG: "+msg)
}
func (m *mockLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	m.logs = append(m.logs, "INFO: "+msg)
}
func (m *mockLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	m.logs = append(m.logs, "WARN: "+msg)
}
func (m *mockLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	m.logs = append(m.logs, "ERROR: "+msg)
}

func TestNewBaseClient_Defaults(t *testing.T) {
	b := NewBaseClient(10*time.Second, nil, nil)

	if b.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", b.MaxRetries)
	}
	if b.DefaultTemperature != 0.7 {
		t.Errorf("DefaultTemperature = %v, want 0.7", b.DefaultTemperature)
	}
	if b.DefaultMaxTokens != 1024 {
		t.Errorf("DefaultMaxTokens = %d, want 1024", b.DefaultMaxTokens)
	}
	if b.HTTPClient.Timeout != 10*time.Second {
		t.Errorf("HTTPClient.Timeout = %v, want 10s", b.HTTPClient.Timeout)
	}
}

func TestBaseClient_ApplyDefaults(t *testing.T) {
	b := NewBaseClient(time.Second, nil, nil)
	b.DefaultModel = "test-model"

	opts := b.ApplyDefaults(nil)
	if opts.Model != "test-model" {
		t.Errorf("Model = %q, want test-model", opts.Model)
	}
	if opts.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", opts.Temperature)
	}

	explicit := b.ApplyDefaults(&core.AIOptions{Model: "override", Temperature: 0.2})
	if explicit.Model != "override" || explicit.Temperature != 0.2 {
		t.Errorf("explicit options overwritten: %+v", explicit)
	}
}

func TestBaseClient_ExecuteWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger := &mockLogger{}
	b := NewBaseClient(5*time.Second, logger, nil)
	b.RetryDelay = time.Millisecond

	resp, err := b.ExecuteWithRetry(context.Background(), func() (*http.Request, error) {
		return http.NewRequest("GET", server.URL, nil)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestBaseClient_ExecuteWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	b := NewBaseClient(5*time.Second, nil, nil)
	b.RetryDelay = time.Millisecond
	b.MaxRetries = 2

	_, err := b.ExecuteWithRetry(context.Background(), func() (*http.Request, error) {
		return http.NewRequest("GET", server.URL, nil)
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (1 + 2 retries)", attempts)
	}
}

func TestBaseClient_ExecuteWithRetry_DoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	b := NewBaseClient(5*time.Second, nil, nil)
	b.RetryDelay = time.Millisecond

	resp, err := b.ExecuteWithRetry(context.Background(), func() (*http.Request, error) {
		return http.NewRequest("GET", server.URL, nil)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (4xx should not retry)", attempts)
	}
}

func TestStripMarkdownFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json", `{"a":1}`, `{"a":1}`},
		{"fenced with language", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced without language", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace padded", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripMarkdownFence(tt.in)
			if got != tt.want {
				t.Errorf("StripMarkdownFence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
