// Package openai adapts the OpenAI-compatible chat completions API to the
// llm.Client contract.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/llm"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// Client implements llm.Client for the OpenAI chat completions API.
type Client struct {
	*llm.BaseClient
	apiKey  string
	baseURL string
}

func NewClient(apiKey, baseURL string, logger core.Logger, telemetry core.Telemetry) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base := llm.NewBaseClient(30*time.Second, logger, telemetry)
	base.DefaultModel = "gpt-4o-mini"
	base.DefaultMaxTokens = 1024
	return &Client{BaseClient: base, apiKey: apiKey, baseURL: baseURL}
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float32      `json:"temperature,omitempty"`
}

type response struct {
	Model   string `json:"model"`
	Choices []struct {
		Message apiMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate sends the conversation to the chat completions endpoint.
func (c *Client) Generate(ctx context.Context, messages []llm.Message, opts *core.AIOptions) (*core.AIResponse, error) {
	ctx, span := c.StartSpan(ctx, "llm.openai.generate")
	defer span.End()

	if c.apiKey == "" {
		err := fmt.Errorf("openai: API key not configured")
		span.RecordError(err)
		return nil, err
	}

	opts = c.ApplyDefaults(opts)
	span.SetAttribute("llm.provider", "openai")
	span.SetAttribute("llm.model", opts.Model)

	apiMessages := make([]apiMessage, 0, len(messages)+1)
	if opts.SystemPrompt != "" {
		apiMessages = append(apiMessages, apiMessage{Role: "system", Content: opts.SystemPrompt})
	}
	for _, m := range messages {
		apiMessages = append(apiMessages, apiMessage{Role: m.Role, Content: m.Content})
	}

	body := request{
		Model:       opts.Model,
		Messages:    apiMessages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	c.LogRequest("openai", opts.Model, "")
	start := time.Now()

	resp, err := c.ExecuteWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return req, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("openai: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := c.HandleError(resp.StatusCode, respBody, "openai")
		span.RecordError(apiErr)
		return nil, apiErr
	}

	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("openai: parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		err := fmt.Errorf("openai: empty choices in response")
		span.RecordError(err)
		return nil, err
	}

	usage := core.TokenUsage{
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		TotalTokens:      parsed.Usage.TotalTokens,
	}
	c.LogResponse("openai", parsed.Model, usage, time.Since(start))

	return &core.AIResponse{Content: parsed.Choices[0].Message.Content, Model: parsed.Model, Usage: usage}, nil
}
