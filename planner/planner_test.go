package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/kilnforge/meshpilot/llm"
	"github.com/kilnforge/meshpilot/tools"
)

type stubGateway struct {
	response string
	err      error
}

func (s *stubGateway) Call(ctx context.Context, messages []llm.Message, provider string) (string, error) {
	return s.response, s.err
}

const validPlanJSON = `{"mainTask":"add a cube","subtasks":[` +
	`{"id":1,"description":"search for and import the requested asset","tool":"asset_search_and_import","parameters":{},"dependencies":[]},` +
	`{"id":2,"description":"if asset search and import failed, write code instead","tool":"execute_blender_code","parameters":{},"dependencies":[1]},` +
	`{"id":3,"description":"finish","tool":"finish_task","parameters":{},"dependencies":[1,2]}` +
	`]}`

func TestPlanner_Plan_UsesLLMPlanWhenValid(t *testing.T) {
	gateway := &stubGateway{response: "```json\n" + validPlanJSON + "\n```"}
	p := NewPlanner(gateway, "anthropic", nil)

	plan := p.Plan(context.Background(), "add a cube", nil)
	if len(plan.Subtasks) != 3 {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestPlanner_Plan_FallsBackOnLLMError(t *testing.T) {
	gateway := &stubGateway{err: errors.New("provider down")}
	p := NewPlanner(gateway, "anthropic", nil)

	plan := p.Plan(context.Background(), "add a dragon", nil)
	if plan.Subtasks[0].Tool != tools.AssetSearchAndImport {
		t.Errorf("expected default fallback, got %+v", plan)
	}
}

func TestPlanner_Plan_FallsBackOnInvalidLLMPlan(t *testing.T) {
	gateway := &stubGateway{response: `{"mainTask":"x","subtasks":[{"id":1,"description":"no finish here","tool":"get_scene_info","parameters":{},"dependencies":[]}]}`}
	p := NewPlanner(gateway, "anthropic", nil)

	plan := p.Plan(context.Background(), "what is in the scene", nil)
	if plan.Subtasks[0].Tool != tools.GetSceneInfo {
		t.Errorf("expected information-query fallback, got %+v", plan)
	}
	if err := Validate(plan); err != nil {
		t.Errorf("fallback plan should itself validate cleanly: %v", err)
	}
}

func TestPlanner_RePlan_UsesDeterministicFallbackOnLLMError(t *testing.T) {
	gateway := &stubGateway{err: errors.New("provider down")}
	p := NewPlanner(gateway, "anthropic", nil)

	failed := []tools.Subtask{{ID: 1, Description: "generate dragon", Tool: tools.AssetSearchAndImport}}
	plan := p.RePlan(context.Background(), "add a dragon", failed, nil)
	if len(plan.Subtasks) != 3 || plan.Subtasks[0].Tool != tools.SearchKnowledgeBase {
		t.Errorf("expected minimal re-plan fallback, got %+v", plan)
	}
	if err := Validate(plan); err != nil {
		t.Errorf("re-plan fallback should validate cleanly: %v", err)
	}
}

func TestPlanner_RePlan_UsesLLMPlanWhenValid(t *testing.T) {
	gateway := &stubGateway{response: validPlanJSON}
	p := NewPlanner(gateway, "anthropic", nil)

	failed := []tools.Subtask{{ID: 1, Description: "x", Tool: tools.AssetSearchAndImport}}
	plan := p.RePlan(context.Background(), "add a cube", failed, nil)
	if len(plan.Subtasks) != 3 {
		t.Errorf("plan = %+v", plan)
	}
}
