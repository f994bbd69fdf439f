package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/llm"
)

// Validation is the parsed verdict returned by validate_with_vision.
type Validation struct {
	Matches     bool     `json:"matches"`
	Confidence  float64  `json:"confidence"`
	QualityScore float64 `json:"quality_score"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
	Pass        bool     `json:"pass"`
}

const validationRubricTemplate = `You are validating a 3D scene render against an expected outcome.

Expected outcome: %s

Respond with JSON only, matching exactly this schema:
{"matches": bool, "confidence": 0.0-1.0, "quality_score": 0-10, "issues": [string], "suggestions": [string], "pass": bool}`

// ValidateWithVisionTool implements the validate_with_vision tool
// (§4.D): request a screenshot over the TCP transport, send it plus an
// evaluation rubric to the vision LLM, and parse a strict JSON verdict.
type ValidateWithVisionTool struct {
	sender Sender
	vision VisionGateway
	logger core.Logger
}

func NewValidateWithVisionTool(sender Sender, vision VisionGateway, logger core.Logger) *ValidateWithVisionTool {
	return &ValidateWithVisionTool{sender: sender, vision: vision, logger: logger}
}

func (t *ValidateWithVisionTool) Name() Name { return ValidateWithVision }

func (t *ValidateWithVisionTool) Run(ctx context.Context, expectedOutcome string) Result {
	shot, err := t.sender.Send(ctx, "get_viewport_screenshot", nil)
	if err != nil {
		return Result{Success: false, Error: fmt.Errorf("%w: screenshot failed: %v", core.ErrToolFailed, err).Error()}
	}

	imageData, mimeType, err := decodeScreenshot(shot)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	rubric := fmt.Sprintf(validationRubricTemplate, expectedOutcome)
	resp, err := t.vision.AnalyzeImage(ctx, rubric, imageData, mimeType, nil)
	if err != nil {
		return Result{Success: false, Error: fmt.Errorf("%w: vision call failed: %v", core.ErrToolFailed, err).Error()}
	}

	var v Validation
	if jsonErr := json.Unmarshal([]byte(llm.StripMarkdownFence(resp.Content)), &v); jsonErr != nil {
		if t.logger != nil {
			t.logger.Warn("validate_with_vision: verdict did not parse as JSON", map[string]interface{}{"error": jsonErr.Error()})
		}
		return Result{Success: false, Error: fmt.Errorf("%w: %v", core.ErrSchemaError, jsonErr).Error()}
	}

	return Result{
		Success: true,
		Payload: map[string]interface{}{"validation": v},
	}
}

func decodeScreenshot(shot interface{}) ([]byte, string, error) {
	m, ok := shot.(map[string]interface{})
	if !ok {
		return nil, "", fmt.Errorf("%w: screenshot response missing image data", core.ErrSchemaError)
	}
	encoded, _ := m["imageData"].(string)
	mimeType, _ := m["mimeType"].(string)
	if mimeType == "" {
		mimeType = "image/png"
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("%w: screenshot imageData not valid base64: %v", core.ErrSchemaError, err)
	}
	return raw, mimeType, nil
}
