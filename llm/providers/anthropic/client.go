// Package anthropic adapts the Anthropic Messages API to the llm.Client contract.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/llm"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/v1"
	APIVersion     = "2023-06-01"
)

// Client implements llm.Client for Anthropic's native Messages API.
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
	base.DefaultModel = "claude-3-5-sonnet-20241022"
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
	MaxTokens   int          `json:"max_tokens"`
	Temperature float32      `json:"temperature,omitempty"`
	System      string       `json:"system,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type response struct {
	Content []contentBlock `json:"content"`
	Model   string          `json:"model"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate sends the conversation to Anthropic and returns its reply.
// System messages are collapsed into the request's top-level "system" field
// since the native Messages API does not accept a system role inline.
func (c *Client) Generate(ctx context.Context, messages []llm.Message, opts *core.AIOptions) (*core.AIResponse, error) {
	ctx, span := c.StartSpan(ctx, "llm.anthropic.generate")
	defer span.End()

	if c.apiKey == "" {
		err := fmt.Errorf("anthropic: API key not configured")
		span.RecordError(err)
		return nil, err
	}

	opts = c.ApplyDefaults(opts)
	span.SetAttribute("llm.provider", "anthropic")
	span.SetAttribute("llm.model", opts.Model)

	var system strings.Builder
	if opts.SystemPrompt != "" {
		system.WriteString(opts.SystemPrompt)
	}
	var apiMessages []apiMessage
	for _, m := range messages {
		if m.Role == "system" {
			if system.Len() > 0 {
				system.WriteByte('\n')
			}
			system.WriteString(m.Content)
			continue
		}
		apiMessages = append(apiMessages, apiMessage{Role: m.Role, Content: m.Content})
	}

	body := request{
		Model:       opts.Model,
		Messages:    apiMessages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		System:      system.String(),
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	lastContent := ""
	if len(apiMessages) > 0 {
		lastContent = apiMessages[len(apiMessages)-1].Content
	}
	c.LogRequest("anthropic", opts.Model, lastContent)
	start := time.Now()

	resp, err := c.ExecuteWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", APIVersion)
		return req, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("anthropic: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := c.HandleError(resp.StatusCode, respBody, "anthropic")
		span.RecordError(apiErr)
		return nil, apiErr
	}

	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("anthropic: parse response: %w", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	usage := core.TokenUsage{
		PromptTokens:     parsed.Usage.InputTokens,
		CompletionTokens: parsed.Usage.OutputTokens,
		TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
	}
	c.LogResponse("anthropic", parsed.Model, usage, time.Since(start))

	return &core.AIResponse{Content: text.String(), Model: parsed.Model, Usage: usage}, nil
}
