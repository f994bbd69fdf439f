// Package planner implements the Planner (§4.E): produces a validated
// Plan from a user request (and optional image attachments, and prior
// results on re-plan), via a primary LLM-driven path with a deterministic
// fallback.
package planner

import (
	"fmt"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/tools"
)

// Validate checks the three invariants every produced plan must satisfy
// (§4.E): the dependency graph is acyclic, every referenced id exists,
// and exactly one finish_task sits at the frontier (nothing depends on
// it).
func Validate(plan *tools.Plan) error {
	if plan == nil {
		return fmt.Errorf("%w: nil plan", core.ErrPlanInvalid)
	}

	ids := make(map[int]bool, len(plan.Subtasks))
	for _, st := range plan.Subtasks {
		ids[st.ID] = true
	}

	finishCount := 0
	dependedOn := make(map[int]bool)
	for _, st := range plan.Subtasks {
		if st.Tool == tools.FinishTask {
			finishCount++
		}
		for _, dep := range st.Dependencies {
			if !ids[dep] {
				return fmt.Errorf("%w: subtask %d depends on unknown id %d", core.ErrPlanInvalid, st.ID, dep)
			}
			dependedOn[dep] = true
		}
	}

	if finishCount != 1 {
		return fmt.Errorf("%w: expected exactly one finish_task subtask, found %d", core.ErrPlanInvalid, finishCount)
	}

	for _, st := range plan.Subtasks {
		if st.Tool == tools.FinishTask && dependedOn[st.ID] {
			return fmt.Errorf("%w: finish_task subtask %d is not at the frontier", core.ErrPlanInvalid, st.ID)
		}
	}

	if hasCycle(plan.Subtasks) {
		return fmt.Errorf("%w: dependency graph contains a cycle", core.ErrPlanInvalid)
	}

	return nil
}

func hasCycle(subtasks []tools.Subtask) bool {
	deps := make(map[int][]int, len(subtasks))
	for _, st := range subtasks {
		deps[st.ID] = st.Dependencies
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[int]int, len(subtasks))

	var visit func(id int) bool
	visit = func(id int) bool {
		switch state[id] {
		case visiting:
			return true
		case done:
			return false
		}
		state[id] = visiting
		for _, dep := range deps[id] {
			if visit(dep) {
				return true
			}
		}
		state[id] = done
		return false
	}

	for _, st := range subtasks {
		if visit(st.ID) {
			return true
		}
	}
	return false
}
