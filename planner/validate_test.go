package planner

import (
	"errors"
	"testing"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/tools"
)

func validPlan() *tools.Plan {
	return &tools.Plan{
		MainTask: "add a cube",
		Subtasks: []tools.Subtask{
			{ID: 1, Description: "search for and import the requested asset", Tool: tools.AssetSearchAndImport, Dependencies: nil},
			{ID: 2, Description: "if asset search and import failed, write code instead", Tool: tools.ExecuteBlenderCode, Dependencies: []int{1}},
			{ID: 3, Description: "finish", Tool: tools.FinishTask, Dependencies: []int{1, 2}},
		},
	}
}

func TestValidate_AcceptsWellFormedPlan(t *testing.T) {
	if err := Validate(validPlan()); err != nil {
		t.Fatalf("expected valid plan, got %v", err)
	}
}

func TestValidate_RejectsUnknownDependency(t *testing.T) {
	plan := validPlan()
	plan.Subtasks[1].Dependencies = []int{99}
	if err := Validate(plan); !errors.Is(err, core.ErrPlanInvalid) {
		t.Errorf("err = %v, want ErrPlanInvalid", err)
	}
}

func TestValidate_RejectsMissingFinishTask(t *testing.T) {
	plan := validPlan()
	plan.Subtasks = plan.Subtasks[:2]
	if err := Validate(plan); !errors.Is(err, core.ErrPlanInvalid) {
		t.Errorf("err = %v, want ErrPlanInvalid", err)
	}
}

func TestValidate_RejectsMultipleFinishTasks(t *testing.T) {
	plan := validPlan()
	plan.Subtasks = append(plan.Subtasks, tools.Subtask{ID: 4, Description: "finish again", Tool: tools.FinishTask, Dependencies: []int{3}})
	if err := Validate(plan); !errors.Is(err, core.ErrPlanInvalid) {
		t.Errorf("err = %v, want ErrPlanInvalid", err)
	}
}

func TestValidate_RejectsFinishTaskNotAtFrontier(t *testing.T) {
	plan := validPlan()
	plan.Subtasks = append(plan.Subtasks, tools.Subtask{ID: 4, Description: "after finish", Tool: tools.GetSceneInfo, Dependencies: []int{3}})
	if err := Validate(plan); !errors.Is(err, core.ErrPlanInvalid) {
		t.Errorf("err = %v, want ErrPlanInvalid", err)
	}
}

func TestValidate_RejectsCycle(t *testing.T) {
	plan := validPlan()
	plan.Subtasks[0].Dependencies = []int{3}
	if err := Validate(plan); !errors.Is(err, core.ErrPlanInvalid) {
		t.Errorf("err = %v, want ErrPlanInvalid", err)
	}
}
