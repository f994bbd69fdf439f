package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/llm/providers/anthropic"
	"github.com/kilnforge/meshpilot/llm/providers/bedrock"
	"github.com/kilnforge/meshpilot/llm/providers/gemini"
	"github.com/kilnforge/meshpilot/llm/providers/openai"
)

// ErrProviderNotConfigured is returned when a call names a provider the
// gateway has no credentials for.
var ErrProviderNotConfigured = errors.New("llm: provider not configured")

// Provider names recognized by the gateway's call(messages, provider)
// contract. "bedrock" and "anthropic" both speak Claude but over different
// wire protocols; "gemini" is the only vision-capable provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// Gateway is the stateless LLM Gateway described in §4.G: a single
// call(messages, provider) -> string surface over every configured chat
// provider. It holds no conversation state between calls; each call carries
// its full message history.
type Gateway struct {
	logger core.Logger

	mu        sync.RWMutex
	clients   map[string]Client
	embedder  Embedder
	vision    VisionClient
	defaultProvider string
}

// Config collects the provider credentials and endpoints recognized from
// environment configuration (§6).
type Config struct {
	DefaultProvider string

	AnthropicAPIKey  string
	AnthropicBaseURL string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	GeminiAPIKey  string
	GeminiBaseURL string

	BedrockRegion string
}

// ConfigFromEnv reads provider credentials from environment variables,
// matching the "Provider API keys per enabled provider" configuration
// option (§6).
func ConfigFromEnv() *Config {
	cfg := &Config{
		DefaultProvider:  os.Getenv("MESHPILOT_LLM_DEFAULT_PROVIDER"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:    os.Getenv("GEMINI_BASE_URL"),
		BedrockRegion:    os.Getenv("AWS_REGION"),
	}
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = ProviderAnthropic
	}
	if cfg.BedrockRegion == "" {
		cfg.BedrockRegion = "us-east-1"
	}
	return cfg
}

// NewGateway builds a Gateway with one client per configured provider.
// Providers without credentials are skipped rather than failing startup;
// callers discover a missing provider at call time via ErrProviderNotConfigured.
func NewGateway(ctx context.Context, cfg *Config, logger core.Logger, telemetry core.Telemetry) (*Gateway, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}

	gw := &Gateway{
		logger:          logger,
		clients:         make(map[string]Client),
		defaultProvider: cfg.DefaultProvider,
	}

	if cfg.AnthropicAPIKey != "" {
		gw.clients[ProviderAnthropic] = anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, logger, telemetry)
	}
	if cfg.OpenAIAPIKey != "" {
		gw.clients[ProviderOpenAI] = openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, logger, telemetry)
	}
	if cfg.GeminiAPIKey != "" {
		geminiClient := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL, logger, telemetry)
		gw.clients[ProviderGemini] = geminiClient
		gw.vision = geminiClient
	}
	if cfg.BedrockRegion != "" {
		awsCfg, err := bedrock.CreateAWSConfig(ctx, cfg.BedrockRegion)
		if err != nil {
			logger.Warn("bedrock disabled: could not load AWS config", map[string]interface{}{"error": err.Error()})
		} else {
			bedrockClient := bedrock.NewClient(awsCfg, cfg.BedrockRegion, logger, telemetry)
			gw.clients[ProviderBedrock] = bedrockClient
			gw.embedder = bedrockClient
		}
	}

	if len(gw.clients) == 0 {
		return nil, fmt.Errorf("llm: no provider configured (checked anthropic, openai, gemini, bedrock credentials)")
	}
	if _, ok := gw.clients[gw.defaultProvider]; !ok {
		for name := range gw.clients {
			gw.defaultProvider = name
			break
		}
		logger.Warn("configured default provider not available, falling back", map[string]interface{}{"provider": gw.defaultProvider})
	}

	return gw, nil
}

// Call is the gateway's one contract: translate a conversation to a named
// provider's wire format, invoke it, and return plain text. Provider wire
// formats never escape this function.
func (g *Gateway) Call(ctx context.Context, messages []Message, provider string) (string, error) {
	if provider == "" {
		provider = g.defaultProvider
	}

	g.mu.RLock()
	client, ok := g.clients[provider]
	g.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("llm: provider %q not configured: %w", provider, ErrProviderNotConfigured)
	}

	resp, err := client.Generate(ctx, messages, &core.AIOptions{})
	if err != nil {
		return "", fmt.Errorf("llm: %s: %w", provider, err)
	}
	return resp.Content, nil
}

// CallWithOptions is Call with explicit model/temperature/token overrides,
// for callers (planner, tools) that need deterministic low-temperature
// decoding for structured JSON output.
func (g *Gateway) CallWithOptions(ctx context.Context, messages []Message, provider string, opts *core.AIOptions) (*core.AIResponse, error) {
	if provider == "" {
		provider = g.defaultProvider
	}

	g.mu.RLock()
	client, ok := g.clients[provider]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("llm: provider %q not configured: %w", provider, ErrProviderNotConfigured)
	}

	return client.Generate(ctx, messages, opts)
}

// AnalyzeImage dispatches to the gateway's vision-capable provider
// (gemini). Used by the analyze_image and validate_with_vision tools.
func (g *Gateway) AnalyzeImage(ctx context.Context, prompt string, imageData []byte, mimeType string, opts *core.AIOptions) (*core.AIResponse, error) {
	if g.vision == nil {
		return nil, fmt.Errorf("llm: no vision-capable provider configured: %w", ErrProviderNotConfigured)
	}
	return g.vision.GenerateWithImage(ctx, prompt, imageData, mimeType, opts)
}

// Embed dispatches to the gateway's embedding-capable provider (bedrock
// Titan Embed). Grounds vectorstore.Embedder's embed(text) -> vector<float>
// contract (§4.B).
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if g.embedder == nil {
		return nil, fmt.Errorf("llm: no embedding-capable provider configured: %w", ErrProviderNotConfigured)
	}
	return g.embedder.Embed(ctx, text)
}

// HasProvider reports whether a given provider name has a live client.
func (g *Gateway) HasProvider(provider string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.clients[provider]
	return ok
}
