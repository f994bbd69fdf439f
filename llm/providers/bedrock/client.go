// Package bedrock adapts AWS Bedrock's Converse API (chat) and Titan Embed
// model (embeddings) to the llm.Client and llm.Embedder contracts.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/llm"
)

const (
	ModelClaude3Sonnet = "anthropic.claude-3-sonnet-20240229-v1:0"
	ModelTitanEmbed    = "amazon.titan-embed-text-v1"
)

// Client implements llm.Client and llm.Embedder for AWS Bedrock.
type Client struct {
	*llm.BaseClient
	bedrockClient *bedrockruntime.Client
	region        string
}

func NewClient(cfg aws.Config, region string, logger core.Logger, telemetry core.Telemetry) *Client {
	base := llm.NewBaseClient(30*time.Second, logger, telemetry)
	base.DefaultModel = ModelClaude3Sonnet
	base.DefaultMaxTokens = 1024
	return &Client{
		BaseClient:    base,
		bedrockClient: bedrockruntime.NewFromConfig(cfg),
		region:        region,
	}
}

// CreateAWSConfig loads the AWS configuration for a Bedrock client, honoring
// IAM role, environment, or explicit credential providers in that order.
func CreateAWSConfig(ctx context.Context, region string, credentials ...aws.CredentialsProvider) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if len(credentials) > 0 && credentials[0] != nil {
		opts = append(opts, config.WithCredentialsProvider(credentials[0]))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("bedrock: load AWS config: %w", err)
	}
	return cfg, nil
}

// Generate sends the conversation to Bedrock's Converse API.
func (c *Client) Generate(ctx context.Context, messages []llm.Message, opts *core.AIOptions) (*core.AIResponse, error) {
	ctx, span := c.StartSpan(ctx, "llm.bedrock.generate")
	defer span.End()

	opts = c.ApplyDefaults(opts)
	span.SetAttribute("llm.provider", "bedrock")
	span.SetAttribute("llm.model", opts.Model)

	var converseMessages []types.Message
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		role := types.ConversationRoleUser
		if m.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		converseMessages = append(converseMessages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(opts.Model),
		Messages: converseMessages,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(opts.MaxTokens)),
			Temperature: aws.Float32(opts.Temperature),
		},
	}
	if opts.SystemPrompt != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: opts.SystemPrompt}}
	}

	c.LogRequest("bedrock", opts.Model, "")
	start := time.Now()

	output, err := c.bedrockClient.Converse(ctx, input)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("bedrock: converse: %w", err)
	}

	var text string
	if msg, ok := output.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if t, ok := block.(*types.ContentBlockMemberText); ok {
				text += t.Value
			}
		}
	}

	usage := core.TokenUsage{}
	if output.Usage != nil {
		usage = core.TokenUsage{
			PromptTokens:     int(aws.ToInt32(output.Usage.InputTokens)),
			CompletionTokens: int(aws.ToInt32(output.Usage.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(output.Usage.TotalTokens)),
		}
	}
	c.LogResponse("bedrock", opts.Model, usage, time.Since(start))

	return &core.AIResponse{Content: text, Model: opts.Model, Usage: usage}, nil
}

// InvokeModel provides direct access to model-specific invoke formats,
// bypassing Converse. Used by Embed to reach the Titan Embed model, which
// the Converse API does not expose.
func (c *Client) InvokeModel(ctx context.Context, modelID string, body []byte) ([]byte, error) {
	input := &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	}
	output, err := c.bedrockClient.InvokeModel(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock: invoke model: %w", err)
	}
	return output.Body, nil
}

// Embed produces a fixed-dimension embedding via Amazon Titan Embed. This is
// the sole embedder this deployment exercises (§4.B).
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(map[string]string{"inputText": text})
	if err != nil {
		return nil, fmt.Errorf("bedrock: marshal embed request: %w", err)
	}

	respBody, err := c.InvokeModel(ctx, ModelTitanEmbed, reqBody)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("bedrock: parse embed response: %w", err)
	}
	return parsed.Embedding, nil
}
