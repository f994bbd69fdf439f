package scheduler

import (
	"strings"
	"testing"

	"github.com/kilnforge/meshpilot/tools"
)

func TestFinalResponse_PrefersFinishTaskSummary(t *testing.T) {
	state := tools.NewSchedulerState(10)
	state.Plan = &tools.Plan{Subtasks: []tools.Subtask{{ID: 1, Tool: tools.FinishTask}}}
	state.Results[1] = tools.SubtaskResult{Success: true, Payload: map[string]interface{}{"finalAnswer": "built the scene"}}

	got := FinalResponse(state)
	if got != "built the scene" {
		t.Errorf("got %q", got)
	}
}

func TestFinalResponse_FallsBackToMessages(t *testing.T) {
	state := tools.NewSchedulerState(10)
	state.Messages = []string{"analyzed the reference image", "imported a matching asset"}

	got := FinalResponse(state)
	if !strings.Contains(got, "analyzed the reference image") {
		t.Errorf("got %q", got)
	}
}

func TestFinalResponse_FallsBackToSceneTemplate(t *testing.T) {
	state := tools.NewSchedulerState(10)
	state.SceneContext = map[string]interface{}{"objects": []interface{}{"Cube", "Light"}}

	got := FinalResponse(state)
	if !strings.Contains(got, "2 object") {
		t.Errorf("got %q", got)
	}
}

func TestFinalResponse_NoInformationAtAll(t *testing.T) {
	state := tools.NewSchedulerState(10)
	got := FinalResponse(state)
	if got == "" {
		t.Error("expected a non-empty templated fallback")
	}
}
