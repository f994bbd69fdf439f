package tools

import (
	"context"
	"fmt"

	"github.com/kilnforge/meshpilot/core"
)

// VisionGateway is the subset of llm.Gateway the vision tools depend on.
type VisionGateway interface {
	AnalyzeImage(ctx context.Context, prompt string, imageData []byte, mimeType string, opts *core.AIOptions) (*core.AIResponse, error)
}

// Attachment is one input binary blob carried through the scheduler
// alongside a user request (images attached to a prompt).
type Attachment struct {
	Data     []byte
	MimeType string
}

const analyzeImagePrompt = "Describe this image in detail: the primary subject, its shape, materials, colors, and any distinguishing features relevant to recreating it as a 3D asset."

// AnalyzeImageTool implements the analyze_image tool (§4.D): sends every
// attachment to a vision-capable LLM with a fixed descriptive prompt,
// falling back to a templated description if the call fails.
type AnalyzeImageTool struct {
	vision VisionGateway
	logger core.Logger
}

func NewAnalyzeImageTool(vision VisionGateway, logger core.Logger) *AnalyzeImageTool {
	return &AnalyzeImageTool{vision: vision, logger: logger}
}

func (t *AnalyzeImageTool) Name() Name { return AnalyzeImage }

func (t *AnalyzeImageTool) Run(ctx context.Context, attachments []Attachment) Result {
	if len(attachments) == 0 {
		return Result{Success: false, Error: "analyze_image: no attachments provided"}
	}

	descriptions := make([]string, 0, len(attachments))
	for i, a := range attachments {
		resp, err := t.vision.AnalyzeImage(ctx, analyzeImagePrompt, a.Data, a.MimeType, nil)
		if err != nil {
			if t.logger != nil {
				t.logger.Warn("analyze_image: vision call failed, using fallback description",
					map[string]interface{}{"index": i, "error": err.Error()})
			}
			descriptions = append(descriptions, fmt.Sprintf("attachment %d: an uploaded reference image (description unavailable)", i))
			continue
		}
		descriptions = append(descriptions, resp.Content)
	}

	return Result{
		Success: true,
		Payload: map[string]interface{}{
			"analysis":   descriptions,
			"imageCount": len(attachments),
		},
	}
}
