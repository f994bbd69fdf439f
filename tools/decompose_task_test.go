package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/kilnforge/meshpilot/llm"
)

type stubChatGateway struct {
	response string
	err      error
}

func (s *stubChatGateway) Call(ctx context.Context, messages []llm.Message, provider string) (string, error) {
	return s.response, s.err
}

func TestDecomposeTaskTool_ParsesLLMPlan(t *testing.T) {
	gateway := &stubChatGateway{response: "```json\n" +
		`{"mainTask":"add a cube","subtasks":[` +
		`{"id":1,"description":"search for and import the requested asset","tool":"asset_search_and_import","parameters":{"prompt":"cube"},"dependencies":[]},` +
		`{"id":2,"description":"finish","tool":"finish_task","parameters":{"finalAnswer":""},"dependencies":[1]}` +
		`]}` + "\n```"}

	tool := NewDecomposeTaskTool(gateway, "anthropic", nil)
	res := tool.Run(context.Background(), "add a cube", false)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	plan, ok := res.Payload["plan"].(*Plan)
	if !ok {
		t.Fatalf("payload plan has wrong type: %T", res.Payload["plan"])
	}
	if len(plan.Subtasks) != 2 || plan.Subtasks[1].Tool != FinishTask {
		t.Errorf("plan = %+v", plan)
	}
}

func TestDecomposeTaskTool_FallsBackOnLLMFailure(t *testing.T) {
	gateway := &stubChatGateway{err: errors.New("provider unavailable")}
	tool := NewDecomposeTaskTool(gateway, "anthropic", nil)

	res := tool.Run(context.Background(), "what is in the scene", false)
	if !res.Success {
		t.Fatalf("expected success via fallback, got %+v", res)
	}
	plan := res.Payload["plan"].(*Plan)
	if len(plan.Subtasks) != 2 || plan.Subtasks[0].Tool != GetSceneInfo {
		t.Errorf("expected information-query fallback, got %+v", plan)
	}
}

func TestDecomposeTaskTool_FallsBackOnMalformedJSON(t *testing.T) {
	gateway := &stubChatGateway{response: "not json"}
	tool := NewDecomposeTaskTool(gateway, "anthropic", nil)

	res := tool.Run(context.Background(), "add a dragon", false)
	if !res.Success {
		t.Fatalf("expected success via fallback, got %+v", res)
	}
	plan := res.Payload["plan"].(*Plan)
	if plan.Subtasks[0].Tool != AssetSearchAndImport {
		t.Errorf("expected default fallback, got %+v", plan)
	}
}

func TestFallbackPlan_WithAttachments(t *testing.T) {
	plan := FallbackPlan("what does this look like", true)
	if plan.Subtasks[0].Tool != AnalyzeImage {
		t.Errorf("expected analyze_image first subtask, got %+v", plan.Subtasks[0])
	}
}
