package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/llm"
)

// ChatGateway is the subset of llm.Gateway the planning tools depend on.
type ChatGateway interface {
	Call(ctx context.Context, messages []llm.Message, provider string) (string, error)
}

const decomposeSystemPrompt = `You are a task planner for a 3D modeling assistant. Given a user request, ` +
	`produce a JSON plan only, no prose, matching exactly this schema:
{"mainTask": string, "subtasks": [{"id": int, "description": string, "tool": string, "parameters": object, "dependencies": [int]}]}
Valid tool names: decompose_task, search_knowledge_base, get_scene_info, execute_blender_code, asset_search_and_import, analyze_image, validate_with_vision, create_animation, finish_task.
Every plan must contain exactly one finish_task subtask, depended on (transitively) by nothing and depending on every subtask that must occur before termination.`

// DecomposeTaskTool implements the decompose_task tool (§4.D / §4.E
// primary path): ask the LLM gateway for a strict JSON plan, strip
// markdown fences, and fall back to a deterministic pattern-matched plan
// if the response doesn't parse.
type DecomposeTaskTool struct {
	gateway  ChatGateway
	provider string
	logger   core.Logger
}

func NewDecomposeTaskTool(gateway ChatGateway, provider string, logger core.Logger) *DecomposeTaskTool {
	return &DecomposeTaskTool{gateway: gateway, provider: provider, logger: logger}
}

func (t *DecomposeTaskTool) Name() Name { return DecomposeTask }

func (t *DecomposeTaskTool) Run(ctx context.Context, userRequest string, hasAttachments bool) Result {
	plan, err := t.decomposeWithLLM(ctx, userRequest)
	if err != nil {
		if t.logger != nil {
			t.logger.Warn("decompose_task: LLM plan failed, using deterministic fallback",
				map[string]interface{}{"error": err.Error()})
		}
		plan = FallbackPlan(userRequest, hasAttachments)
	}

	return Result{
		Success: true,
		Payload: map[string]interface{}{"plan": plan},
	}
}

func (t *DecomposeTaskTool) decomposeWithLLM(ctx context.Context, userRequest string) (*Plan, error) {
	messages := []llm.Message{
		{Role: "system", Content: decomposeSystemPrompt},
		{Role: "user", Content: userRequest},
	}

	raw, err := t.gateway.Call(ctx, messages, t.provider)
	if err != nil {
		return nil, err
	}

	stripped := llm.StripMarkdownFence(raw)
	var plan Plan
	if err := json.Unmarshal([]byte(stripped), &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// FallbackPlan implements the deterministic fallback ruleset (§4.E):
// information queries get a scene-info-then-finish plan, requests with
// attachments route through image analysis, and everything else, named
// common assets included, gets the default asset-search-then-code-exec
// template. There is no per-asset template: the conditional
// execute_blender_code subtask carries no code parameter.
func FallbackPlan(userRequest string, hasAttachments bool) *Plan {
	lowered := strings.ToLower(userRequest)

	if isInformationQuery(lowered) {
		return &Plan{
			MainTask: userRequest,
			Subtasks: []Subtask{
				{ID: 1, Description: "get the current scene state", Tool: GetSceneInfo, Parameters: map[string]interface{}{}, Dependencies: nil},
				{ID: 2, Description: "finish", Tool: FinishTask, Parameters: map[string]interface{}{"finalAnswer": ""}, Dependencies: []int{1}},
			},
		}
	}

	if hasAttachments {
		return &Plan{
			MainTask: userRequest,
			Subtasks: []Subtask{
				{ID: 1, Description: "analyze the attached image", Tool: AnalyzeImage, Parameters: map[string]interface{}{}, Dependencies: nil},
				{ID: 2, Description: "search for and import the depicted asset", Tool: AssetSearchAndImport, Parameters: map[string]interface{}{"prompt": userRequest}, Dependencies: []int{1}},
				{ID: 3, Description: "if asset search and import failed, write code to build it instead", Tool: ExecuteBlenderCode, Parameters: map[string]interface{}{}, Dependencies: []int{2}},
				{ID: 4, Description: "finish", Tool: FinishTask, Parameters: map[string]interface{}{"finalAnswer": ""}, Dependencies: []int{2, 3}},
			},
		}
	}

	// Default and named-asset cases share the same shape; the asset
	// search query is simply the raw request either way.
	return &Plan{
		MainTask: userRequest,
		Subtasks: []Subtask{
			{ID: 1, Description: "search for and import the requested asset", Tool: AssetSearchAndImport, Parameters: map[string]interface{}{"prompt": userRequest}, Dependencies: nil},
			{ID: 2, Description: "if asset search and import failed, write code to build it instead", Tool: ExecuteBlenderCode, Parameters: map[string]interface{}{}, Dependencies: []int{1}},
			{ID: 3, Description: "finish", Tool: FinishTask, Parameters: map[string]interface{}{"finalAnswer": ""}, Dependencies: []int{1, 2}},
		},
	}
}

var informationQueryPhrases = []string{"status", "what is in the scene", "what's in the scene", "how many objects", "describe the scene"}

func isInformationQuery(lowered string) bool {
	for _, phrase := range informationQueryPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
