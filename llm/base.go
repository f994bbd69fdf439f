// Package llm implements the LLM Gateway (§4.G): a stateless call(messages,
// provider) -> string interface over a small set of chat providers. Provider
// wire formats are translated here; callers never see provider APIs.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kilnforge/meshpilot/core"
)

// Message is one turn in a chat-style conversation.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Client is the uniform contract every provider adapter satisfies.
type Client interface {
	// Generate sends messages to the provider and returns its raw textual
	// reply. Provider-specific request/response shapes never escape here.
	Generate(ctx context.Context, messages []Message, opts *core.AIOptions) (*core.AIResponse, error)
}

// Embedder is satisfied by providers that can produce fixed-dim embeddings
// (only bedrock/Titan in this deployment, see vectorstore.Embedder).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VisionClient is satisfied by providers that can analyze image bytes
// (gemini in this deployment; used by analyze_image/validate_with_vision).
type VisionClient interface {
	GenerateWithImage(ctx context.Context, prompt string, imageData []byte, mimeType string, opts *core.AIOptions) (*core.AIResponse, error)
}

// BaseClient provides the HTTP plumbing shared by every provider: a timeout
// client, exponential-backoff retry on transient failures, default option
// application, and structured request/response logging.
type BaseClient struct {
	HTTPClient *http.Client
	Logger     core.Logger
	Telemetry  core.Telemetry

	MaxRetries int
	RetryDelay time.Duration

	DefaultModel        string
	DefaultTemperature  float32
	DefaultMaxTokens    int
	DefaultSystemPrompt string
}

// NewBaseClient creates a base client with sensible defaults.
func NewBaseClient(timeout time.Duration, logger core.Logger, telemetry core.Telemetry) *BaseClient {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}
	return &BaseClient{
		HTTPClient:         &http.Client{Timeout: timeout},
		Logger:             logger,
		Telemetry:          telemetry,
		MaxRetries:         3,
		RetryDelay:         time.Second,
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   1024,
	}
}

// StartSpan starts a telemetry span scoped to the gateway's Telemetry
// collaborator, defaulting to a no-op span when none is configured.
func (b *BaseClient) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	return b.Telemetry.StartSpan(ctx, name)
}

// ExecuteWithRetry performs an HTTP request with exponential backoff,
// retrying transient network errors and 5xx/429 responses.
func (b *BaseClient) ExecuteWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= b.MaxRetries; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := b.HTTPClient.Do(req)
		if err == nil && resp.StatusCode < 400 {
			return resp, nil
		}
		if err == nil && resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			resp.Body.Close()
		}

		if attempt < b.MaxRetries {
			shift := uint(attempt)
			if shift > 6 {
				shift = 6
			}
			delay := b.RetryDelay * time.Duration(1<<shift)
			b.Logger.Debug("retrying llm request", map[string]interface{}{
				"attempt": attempt + 1, "max_retries": b.MaxRetries, "delay": delay.String(), "error": lastErr.Error(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", b.MaxRetries, lastErr)
}

// ApplyDefaults fills unset option fields with the client's configured defaults.
func (b *BaseClient) ApplyDefaults(options *core.AIOptions) *core.AIOptions {
	if options == nil {
		options = &core.AIOptions{}
	}
	if options.Model == "" {
		options.Model = b.DefaultModel
	}
	if options.Temperature == 0 {
		options.Temperature = b.DefaultTemperature
	}
	if options.MaxTokens == 0 {
		options.MaxTokens = b.DefaultMaxTokens
	}
	if options.SystemPrompt == "" {
		options.SystemPrompt = b.DefaultSystemPrompt
	}
	return options
}

// HandleError turns an HTTP error response into a uniform error.
func (b *BaseClient) HandleError(statusCode int, body []byte, provider string) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: invalid or missing API key", provider)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: rate limit exceeded", provider)
	case http.StatusBadRequest:
		return fmt.Errorf("%s: invalid request - %s", provider, string(body))
	default:
		return fmt.Errorf("%s: api error (status %d): %s", provider, statusCode, string(body))
	}
}

// LogRequest/LogResponse give every provider consistent structured logging.
func (b *BaseClient) LogRequest(provider, model, prompt string) {
	b.Logger.Debug("llm request", map[string]interface{}{
		"provider": provider, "model": model, "prompt_length": len(prompt),
	})
}

func (b *BaseClient) LogResponse(provider, model string, usage core.TokenUsage, duration time.Duration) {
	b.Logger.Debug("llm response", map[string]interface{}{
		"provider": provider, "model": model,
		"prompt_tokens": usage.PromptTokens, "completion_tokens": usage.CompletionTokens,
		"duration_ms": duration.Milliseconds(),
	})
}

// StripMarkdownFence removes a leading/trailing ``` or ```json fence,
// used by every caller that asks a chat provider for "JSON only".
func StripMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
