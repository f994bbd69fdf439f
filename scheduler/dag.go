package scheduler

import "github.com/kilnforge/meshpilot/tools"

// readySubtasks computes the set of subtasks eligible to run right now
// (§4.F step 4): not yet completed, every dependency completed, not the
// terminal finish_task, and (for guarded subtasks) the guard currently
// evaluates true.
func readySubtasks(plan *tools.Plan, completed map[int]bool, results map[int]tools.SubtaskResult) []tools.Subtask {
	var ready []tools.Subtask
	for _, st := range plan.Subtasks {
		if completed[st.ID] || st.Tool == tools.FinishTask {
			continue
		}
		if !allDependenciesComplete(st, completed) {
			continue
		}
		if !EvaluateGuard(st, results) {
			continue
		}
		ready = append(ready, st)
	}
	return ready
}

func allDependenciesComplete(st tools.Subtask, completed map[int]bool) bool {
	for _, dep := range st.Dependencies {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// dependenciesSatisfied reports whether a subtask's dependencies are all
// in the completed set, irrespective of its guard — used by the
// sequential fallback to decide whether the cursor can stop advancing.
func dependenciesSatisfied(st tools.Subtask, completed map[int]bool) bool {
	return allDependenciesComplete(st, completed)
}

// finishDue reports whether the plan's terminal finish_task subtask's
// dependencies are all satisfied and it hasn't run yet.
func finishDue(plan *tools.Plan, completed map[int]bool) (tools.Subtask, bool) {
	for _, st := range plan.Subtasks {
		if st.Tool != tools.FinishTask {
			continue
		}
		if completed[st.ID] {
			return tools.Subtask{}, false
		}
		return st, allDependenciesComplete(st, completed)
	}
	return tools.Subtask{}, false
}
