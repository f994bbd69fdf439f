// Package scheduler implements the Agent Scheduler (§4.F): drives a Plan
// to terminal state, selecting ready subtasks, running parallel-safe
// ones concurrently, routing around failures via conditional branches,
// and triggering re-planning when the critical failure rate crosses
// threshold.
package scheduler

import (
	"regexp"

	"github.com/kilnforge/meshpilot/tools"
)

// GuardKind classifies a subtask's description as unconditional,
// failure-gated, or success-gated (§4.F "Conditional-guard semantics").
type GuardKind int

const (
	GuardNone GuardKind = iota
	GuardOnFailure
	GuardOnSuccess
)

var (
	failureGuardRe = regexp.MustCompile(`(?i)^\s*if\s+.+\b(failed|cannot|not found|unsuccessful)\b`)
	successGuardRe = regexp.MustCompile(`(?i)^\s*if\s+.+\b(succeeded|success)\b`)
)

// ParseGuard classifies a subtask description. A description starting
// (case-insensitive, optional leading whitespace) with
// "if <phrase> failed|cannot|not found|unsuccessful" is failure-gated; one
// starting with "if <phrase> succeeded|success" is success-gated; every
// other description is unconditional.
func ParseGuard(description string) GuardKind {
	switch {
	case failureGuardRe.MatchString(description):
		return GuardOnFailure
	case successGuardRe.MatchString(description):
		return GuardOnSuccess
	default:
		return GuardNone
	}
}

// IsConditional reports whether a description carries any guard at all,
// the sense in which §4.F's critical-failure rule means "not a
// conditional fallback".
func IsConditional(description string) bool {
	return ParseGuard(description) != GuardNone
}

// EvaluateGuard decides whether a subtask's guard is satisfied given the
// recorded results of its dependencies. Unconditional subtasks are
// always satisfied.
func EvaluateGuard(subtask tools.Subtask, results map[int]tools.SubtaskResult) bool {
	switch ParseGuard(subtask.Description) {
	case GuardOnFailure:
		return anyDependencyFailed(subtask.Dependencies, results)
	case GuardOnSuccess:
		return anyDependencySucceeded(subtask.Dependencies, results)
	default:
		return true
	}
}

func anyDependencyFailed(deps []int, results map[int]tools.SubtaskResult) bool {
	for _, id := range deps {
		if r, ok := results[id]; ok && !r.Skipped && !r.Success {
			return true
		}
	}
	return false
}

func anyDependencySucceeded(deps []int, results map[int]tools.SubtaskResult) bool {
	for _, id := range deps {
		if r, ok := results[id]; ok && !r.Skipped && r.Success {
			return true
		}
	}
	return false
}
