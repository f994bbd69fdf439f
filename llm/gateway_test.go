package llm

import (
	"context"
	"testing"
)

func TestNewGateway_NoProvidersConfigured(t *testing.T) {
	cfg := &Config{DefaultProvider: ProviderAnthropic}
	_, err := NewGateway(context.Background(), cfg, nil, nil)
	if err == nil {
		t.Fatal("expected error when no provider credentials are configured")
	}
}

func TestNewGateway_FallsBackWhenDefaultProviderMissing(t *testing.T) {
	cfg := &Config{
		DefaultProvider: ProviderOpenAI,
		AnthropicAPIKey: "test-key",
	}
	gw, err := NewGateway(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	if gw.defaultProvider != ProviderAnthropic {
		t.Errorf("defaultProvider = %q, want %q (fallback to only configured provider)", gw.defaultProvider, ProviderAnthropic)
	}
}

func TestGateway_Call_UnknownProvider(t *testing.T) {
	cfg := &Config{AnthropicAPIKey: "test-key", DefaultProvider: ProviderAnthropic}
	gw, err := NewGateway(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}

	_, err = gw.Call(context.Background(), []Message{{Role: "user", Content: "hi"}}, "not-a-real-provider")
	if err == nil {
		t.Fatal("expected error calling unconfigured provider")
	}
}

func TestGateway_HasProvider(t *testing.T) {
	cfg := &Config{AnthropicAPIKey: "test-key", DefaultProvider: ProviderAnthropic}
	gw, err := NewGateway(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	if !gw.HasProvider(ProviderAnthropic) {
		t.Error("expected anthropic to be configured")
	}
	if gw.HasProvider(ProviderGemini) {
		t.Error("expected gemini to be unconfigured")
	}
}

func TestGateway_Embed_NoEmbedderConfigured(t *testing.T) {
	cfg := &Config{AnthropicAPIKey: "test-key", DefaultProvider: ProviderAnthropic}
	gw, err := NewGateway(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	_, err = gw.Embed(context.Background(), "some text")
	if err == nil {
		t.Fatal("expected error when bedrock is not configured")
	}
}

func TestGateway_AnalyzeImage_NoVisionConfigured(t *testing.T) {
	cfg := &Config{AnthropicAPIKey: "test-key", DefaultProvider: ProviderAnthropic}
	gw, err := NewGateway(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	_, err = gw.AnalyzeImage(context.Background(), "what is this?", []byte{1, 2, 3}, "image/png", nil)
	if err == nil {
		t.Fatal("expected error when gemini is not configured")
	}
}
