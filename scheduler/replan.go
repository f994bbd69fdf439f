package scheduler

import "github.com/kilnforge/meshpilot/tools"

// assetProducingTools are the tools whose failure counts toward the
// critical failure rate (§4.F step 3): asset-producing or
// generation-producing tools. A failure in, say, search_knowledge_base
// is not critical on its own.
var assetProducingTools = map[tools.Name]bool{
	tools.AssetSearchAndImport: true,
	tools.ExecuteBlenderCode:   true,
	tools.CreateAnimation:      true,
}

// isCritical reports whether a subtask counts toward the critical
// failure rate: not skipped, not a conditional fallback, and bound to an
// asset/generation-producing tool.
func isCritical(st tools.Subtask, result tools.SubtaskResult) bool {
	if result.Skipped || IsConditional(st.Description) {
		return false
	}
	return assetProducingTools[st.Tool]
}

// criticalFailureStats computes (attempted, criticalFailures) over the
// subtasks recorded in results so far, keyed by the plan's subtask
// definitions.
func criticalFailureStats(plan *tools.Plan, results map[int]tools.SubtaskResult) (attempted, criticalFailures int) {
	byID := make(map[int]tools.Subtask, len(plan.Subtasks))
	for _, st := range plan.Subtasks {
		byID[st.ID] = st
	}

	for id, r := range results {
		if r.Skipped {
			continue
		}
		attempted++
		st, ok := byID[id]
		if !ok {
			continue
		}
		if isCritical(st, r) && !r.Success {
			criticalFailures++
		}
	}
	return attempted, criticalFailures
}

// shouldReplan implements §4.F step 3's threshold rule: at most one
// re-plan per run, requiring both an absolute count (≥2) and a rate
// (≥0.5). It additionally re-plans once attempted == 1 and that sole
// attempted subtask is itself a critical failure, per the noted
// short-plan extension (spec.md §9 design notes) — otherwise a plan
// with only one asset-producing subtask could never cross the ≥2
// absolute-count threshold and would run to maxLoops instead of
// recovering.
func shouldReplan(state *tools.SchedulerState) bool {
	if state.HasReplanned || state.Plan == nil {
		return false
	}
	attempted, criticalFailures := criticalFailureStats(state.Plan, state.Results)
	if attempted == 1 && criticalFailures == 1 {
		return true
	}
	if attempted < 2 || criticalFailures < 2 {
		return false
	}
	rate := float64(criticalFailures) / float64(attempted)
	return rate >= 0.5
}

// failedAndCompletedSubtasks splits the plan's subtasks (restricted to
// those with a recorded result) into failed and completed lists, for the
// Planner's re-plan prompt.
func failedAndCompletedSubtasks(plan *tools.Plan, results map[int]tools.SubtaskResult) (failed, completed []tools.Subtask) {
	for _, st := range plan.Subtasks {
		r, ok := results[st.ID]
		if !ok || r.Skipped {
			continue
		}
		if r.Success {
			completed = append(completed, st)
		} else {
			failed = append(failed, st)
		}
	}
	return failed, completed
}
