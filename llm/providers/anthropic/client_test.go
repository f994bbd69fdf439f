package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/llm"
)

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c := NewClient("test-key", "", nil, nil)
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
	if c.DefaultModel != "claude-3-5-sonnet-20241022" {
		t.Errorf("DefaultModel = %q", c.DefaultModel)
	}
}

func TestClient_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") != APIVersion {
			t.Errorf("anthropic-version = %q, want %q", r.Header.Get("anthropic-version"), APIVersion)
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.System != "be concise" {
			t.Errorf("System = %q, want %q", req.System, "be concise")
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "hello" {
			t.Errorf("Messages = %+v", req.Messages)
		}

		resp := response{
			Content: []contentBlock{{Type: "text", Text: "hi there"}},
			Model:   req.Model,
		}
		resp.Usage.InputTokens = 5
		resp.Usage.OutputTokens = 3

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewClient("test-key", server.URL, nil, nil)
	out, err := c.Generate(context.Background(), []llm.Message{{Role: "user", Content: "hello"}}, &core.AIOptions{SystemPrompt: "be concise"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Content != "hi there" {
		t.Errorf("Content = %q, want %q", out.Content, "hi there")
	}
	if out.Usage.TotalTokens != 8 {
		t.Errorf("TotalTokens = %d, want 8", out.Usage.TotalTokens)
	}
}

func TestClient_Generate_CollapsesSystemMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		json.NewDecoder(r.Body).Decode(&req)
		if req.System != "opt system\nmsg system" {
			t.Errorf("System = %q", req.System)
		}
		if len(req.Messages) != 1 {
			t.Errorf("expected system-role messages stripped from Messages, got %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(response{Content: []contentBlock{{Type: "text", Text: "ok"}}})
	}))
	defer server.Close()

	c := NewClient("test-key", server.URL, nil, nil)
	messages := []llm.Message{
		{Role: "system", Content: "msg system"},
		{Role: "user", Content: "hello"},
	}
	_, err := c.Generate(context.Background(), messages, &core.AIOptions{SystemPrompt: "opt system"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

func TestClient_Generate_MissingAPIKey(t *testing.T) {
	c := NewClient("", "https://example.com", nil, nil)
	_, err := c.Generate(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestClient_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer server.Close()

	c := NewClient("bad-key", server.URL, nil, nil)
	_, err := c.Generate(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}
