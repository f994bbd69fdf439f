package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/llm"
	"github.com/kilnforge/meshpilot/tools"
)

const primarySystemPrompt = `You are a task planner for a 3D modeling assistant. Given a user request, ` +
	`produce a JSON plan only, no prose, matching exactly this schema:
{"mainTask": string, "subtasks": [{"id": int, "description": string, "tool": string, "parameters": object, "dependencies": [int]}]}
Valid tool names: decompose_task, search_knowledge_base, get_scene_info, execute_blender_code, asset_search_and_import, analyze_image, validate_with_vision, create_animation, finish_task.
Every plan must contain exactly one finish_task subtask, depended on (transitively) by nothing and depending on every subtask that must occur before termination.
A subtask description that begins with "if <condition> failed" or "if <condition> succeeded" is a conditional fallback, gated on whether a dependency succeeded or failed.`

const replanSystemPromptTemplate = `The previous plan for this request encountered failures. Propose an alternative ` +
	`strategy that avoids the observed failure mode (for example, switch from asset import to code synthesis, ` +
	`or search the knowledge base first). Respond with JSON only, matching the same schema as before:
{"mainTask": string, "subtasks": [{"id": int, "description": string, "tool": string, "parameters": object, "dependencies": [int]}]}

Completed subtasks: %s
Failed subtasks: %s`

// Planner produces validated Plans from user requests, with a
// deterministic fallback when the LLM gateway is unavailable or returns
// an unparseable or invalid plan.
type Planner struct {
	gateway  tools.ChatGateway
	provider string
	logger   core.Logger
}

func NewPlanner(gateway tools.ChatGateway, provider string, logger core.Logger) *Planner {
	return &Planner{gateway: gateway, provider: provider, logger: logger}
}

// Plan produces an initial plan for a fresh user request (§4.E primary
// path, falling back to the deterministic ruleset on any failure).
func (p *Planner) Plan(ctx context.Context, userRequest string, attachments []tools.Attachment) *tools.Plan {
	plan, err := p.callLLM(ctx, primarySystemPrompt, userRequest)
	if err == nil {
		if verr := Validate(plan); verr == nil {
			return plan
		} else if p.logger != nil {
			p.logger.Warn("planner: LLM plan failed validation, using fallback", map[string]interface{}{"error": verr.Error()})
		}
	} else if p.logger != nil {
		p.logger.Warn("planner: LLM plan generation failed, using fallback", map[string]interface{}{"error": err.Error()})
	}

	return tools.FallbackPlan(userRequest, len(attachments) > 0)
}

// RePlan is invoked by the scheduler (§4.F) when the critical failure
// rate crosses threshold. It is given the failed and completed subtasks
// of the abandoned plan and asked to propose an alternative strategy. On
// LLM failure, a minimal deterministic three-step fallback (kb-search,
// code-exec, finish) is produced.
func (p *Planner) RePlan(ctx context.Context, userRequest string, failed, completed []tools.Subtask) *tools.Plan {
	prompt := fmt.Sprintf(replanSystemPromptTemplate, summarizeSubtasks(completed), summarizeSubtasks(failed))

	plan, err := p.callLLM(ctx, prompt, userRequest)
	if err == nil {
		if verr := Validate(plan); verr == nil {
			return plan
		} else if p.logger != nil {
			p.logger.Warn("planner: re-plan failed validation, using minimal fallback", map[string]interface{}{"error": verr.Error()})
		}
	} else if p.logger != nil {
		p.logger.Warn("planner: re-plan LLM call failed, using minimal fallback", map[string]interface{}{"error": err.Error()})
	}

	return minimalReplanFallback(userRequest)
}

func (p *Planner) callLLM(ctx context.Context, systemPrompt, userRequest string) (*tools.Plan, error) {
	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userRequest},
	}

	raw, err := p.gateway.Call(ctx, messages, p.provider)
	if err != nil {
		return nil, err
	}

	stripped := llm.StripMarkdownFence(raw)
	var plan tools.Plan
	if err := json.Unmarshal([]byte(stripped), &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// minimalReplanFallback is the deterministic three-step plan (§4.E):
// search the knowledge base for guidance, then synthesize code directly
// rather than retrying asset acquisition, then finish.
func minimalReplanFallback(userRequest string) *tools.Plan {
	return &tools.Plan{
		MainTask: userRequest,
		Subtasks: []tools.Subtask{
			{ID: 1, Description: "search the knowledge base for an alternative approach", Tool: tools.SearchKnowledgeBase, Parameters: map[string]interface{}{"query": userRequest}, Dependencies: nil},
			{ID: 2, Description: "synthesize the scene directly with code", Tool: tools.ExecuteBlenderCode, Parameters: map[string]interface{}{}, Dependencies: []int{1}},
			{ID: 3, Description: "finish", Tool: tools.FinishTask, Parameters: map[string]interface{}{"finalAnswer": ""}, Dependencies: []int{2}},
		},
	}
}

func summarizeSubtasks(subtasks []tools.Subtask) string {
	if len(subtasks) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(subtasks))
	for _, st := range subtasks {
		parts = append(parts, fmt.Sprintf("#%d %s (%s)", st.ID, st.Description, st.Tool))
	}
	return strings.Join(parts, "; ")
}
