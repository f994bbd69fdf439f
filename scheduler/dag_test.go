package scheduler

import (
	"testing"

	"github.com/kilnforge/meshpilot/tools"
)

func samplePlan() *tools.Plan {
	return &tools.Plan{
		MainTask: "add a cube",
		Subtasks: []tools.Subtask{
			{ID: 1, Description: "search for and import the requested asset", Tool: tools.AssetSearchAndImport},
			{ID: 2, Description: "if asset search and import failed, write code instead", Tool: tools.ExecuteBlenderCode, Dependencies: []int{1}},
			{ID: 3, Description: "get the current scene state", Tool: tools.GetSceneInfo},
			{ID: 4, Description: "finish", Tool: tools.FinishTask, Dependencies: []int{1, 2, 3}},
		},
	}
}

func TestReadySubtasks_InitialPass(t *testing.T) {
	plan := samplePlan()
	ready := readySubtasks(plan, map[int]bool{}, map[int]tools.SubtaskResult{})
	ids := idsOf(ready)
	if !containsID(ids, 1) || !containsID(ids, 3) {
		t.Errorf("ready = %v, want at least {1,3}", ids)
	}
	if containsID(ids, 2) {
		t.Error("subtask 2 depends on 1 which isn't complete yet")
	}
	if containsID(ids, 4) {
		t.Error("finish_task should never appear in the ready set")
	}
}

func TestReadySubtasks_GuardGatesEligibility(t *testing.T) {
	plan := samplePlan()
	completed := map[int]bool{1: true, 3: true}
	results := map[int]tools.SubtaskResult{1: {Success: true}, 3: {Success: true}}

	ready := readySubtasks(plan, completed, results)
	if containsID(idsOf(ready), 2) {
		t.Error("failure-gated subtask 2 should not be ready when its dependency succeeded")
	}

	results[1] = tools.SubtaskResult{Success: false}
	ready = readySubtasks(plan, completed, results)
	if !containsID(idsOf(ready), 2) {
		t.Error("failure-gated subtask 2 should be ready when its dependency failed")
	}
}

func TestFinishDue(t *testing.T) {
	plan := samplePlan()
	_, due := finishDue(plan, map[int]bool{1: true, 2: true})
	if due {
		t.Error("finish should not be due until all its deps are complete")
	}

	_, due = finishDue(plan, map[int]bool{1: true, 2: true, 3: true})
	if !due {
		t.Error("finish should be due once all deps are complete")
	}

	_, due = finishDue(plan, map[int]bool{1: true, 2: true, 3: true, 4: true})
	if due {
		t.Error("finish should not be due again once already completed")
	}
}

func idsOf(subtasks []tools.Subtask) []int {
	ids := make([]int, len(subtasks))
	for i, st := range subtasks {
		ids[i] = st.ID
	}
	return ids
}

func containsID(ids []int, target int) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
