// Package gemini adapts Google's Gemini generateContent API to the
// llm.Client and llm.VisionClient contracts. Gemini is the only vision-
// capable provider wired into this deployment (analyze_image,
// validate_with_vision).
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/llm"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements llm.Client and llm.VisionClient for Gemini.
type Client struct {
	*llm.BaseClient
	apiKey  string
	baseURL string
}

func NewClient(apiKey, baseURL string, logger core.Logger, telemetry core.Telemetry) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base := llm.NewBaseClient(45*time.Second, logger, telemetry)
	base.DefaultModel = "gemini-1.5-flash"
	base.DefaultMaxTokens = 1024
	return &Client{BaseClient: base, apiKey: apiKey, baseURL: baseURL}
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	SystemInstruction *content `json:"systemInstruction,omitempty"`
	GenerationConfig struct {
		Temperature     float32 `json:"temperature,omitempty"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Generate sends a text-only conversation to Gemini.
func (c *Client) Generate(ctx context.Context, messages []llm.Message, opts *core.AIOptions) (*core.AIResponse, error) {
	return c.generate(ctx, messages, nil, "", opts)
}

// GenerateWithImage sends a single prompt plus one inline image to Gemini's
// vision-capable generateContent endpoint.
func (c *Client) GenerateWithImage(ctx context.Context, prompt string, imageData []byte, mimeType string, opts *core.AIOptions) (*core.AIResponse, error) {
	return c.generate(ctx, []llm.Message{{Role: "user", Content: prompt}}, imageData, mimeType, opts)
}

func (c *Client) generate(ctx context.Context, messages []llm.Message, imageData []byte, mimeType string, opts *core.AIOptions) (*core.AIResponse, error) {
	ctx, span := c.StartSpan(ctx, "llm.gemini.generate")
	defer span.End()

	if c.apiKey == "" {
		err := fmt.Errorf("gemini: API key not configured")
		span.RecordError(err)
		return nil, err
	}

	opts = c.ApplyDefaults(opts)
	span.SetAttribute("llm.provider", "gemini")
	span.SetAttribute("llm.model", opts.Model)
	span.SetAttribute("llm.has_image", len(imageData) > 0)

	var contents []content
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		parts := []part{{Text: m.Content}}
		contents = append(contents, content{Role: role, Parts: parts})
	}
	if len(imageData) > 0 && len(contents) > 0 {
		last := &contents[len(contents)-1]
		last.Parts = append(last.Parts, part{InlineData: &inlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(imageData),
		}})
	}

	reqBody := generateRequest{Contents: contents}
	if opts.SystemPrompt != "" {
		reqBody.SystemInstruction = &content{Parts: []part{{Text: opts.SystemPrompt}}}
	}
	reqBody.GenerationConfig.Temperature = opts.Temperature
	reqBody.GenerationConfig.MaxOutputTokens = opts.MaxTokens

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	c.LogRequest("gemini", opts.Model, "")
	start := time.Now()

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, opts.Model, c.apiKey)
	resp, err := c.ExecuteWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("gemini: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("gemini: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := c.HandleError(resp.StatusCode, respBody, "gemini")
		span.RecordError(apiErr)
		return nil, apiErr
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("gemini: parse response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		err := fmt.Errorf("gemini: empty candidates in response")
		span.RecordError(err)
		return nil, err
	}

	var text string
	for _, p := range parsed.Candidates[0].Content.Parts {
		text += p.Text
	}

	usage := core.TokenUsage{
		PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
		CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
	}
	c.LogResponse("gemini", opts.Model, usage, time.Since(start))

	return &core.AIResponse{Content: text, Model: opts.Model, Usage: usage}, nil
}
