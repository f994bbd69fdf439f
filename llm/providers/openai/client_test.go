package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/llm"
)

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("key", "", nil, nil)
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
	if c.DefaultModel != "gpt-4o-mini" {
		t.Errorf("DefaultModel = %q", c.DefaultModel)
	}
}

func TestClient_Generate_PrependsSystemPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var req request
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Fatalf("Messages = %+v", req.Messages)
		}

		resp := response{Model: req.Model}
		resp.Choices = []struct {
			Message apiMessage `json:"message"`
		}{{Message: apiMessage{Role: "assistant", Content: "sure"}}}
		resp.Usage.PromptTokens = 10
		resp.Usage.CompletionTokens = 2
		resp.Usage.TotalTokens = 12

		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewClient("key", server.URL, nil, nil)
	out, err := c.Generate(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, &core.AIOptions{SystemPrompt: "be terse"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Content != "sure" {
		t.Errorf("Content = %q", out.Content)
	}
	if out.Usage.TotalTokens != 12 {
		t.Errorf("TotalTokens = %d, want 12", out.Usage.TotalTokens)
	}
}

func TestClient_Generate_EmptyChoicesIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(response{Model: "gpt-4o-mini"})
	}))
	defer server.Close()

	c := NewClient("key", server.URL, nil, nil)
	_, err := c.Generate(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestClient_Generate_MissingAPIKey(t *testing.T) {
	c := NewClient("", "https://example.com", nil, nil)
	_, err := c.Generate(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}
