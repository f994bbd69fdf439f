package tools

import (
	"github.com/google/uuid"
	"github.com/kilnforge/meshpilot/integration"
)

// Plan is a directed acyclic graph of Subtasks produced for one user
// request (§3). It is the shared data model between decompose_task, the
// Planner, and the Agent Scheduler.
type Plan struct {
	MainTask string    `json:"mainTask"`
	Subtasks []Subtask `json:"subtasks"`
}

// Subtask is one atomic step bound to a named tool. Order in
// Plan.Subtasks is the default execution order; the true execution order
// is derived from Dependencies.
type Subtask struct {
	ID           int                    `json:"id"`
	Description  string                 `json:"description"`
	Tool         Name                   `json:"tool"`
	Parameters   map[string]interface{} `json:"parameters"`
	Dependencies []int                  `json:"dependencies"`
}

// SubtaskResult records the outcome of dispatching one Subtask's tool.
type SubtaskResult struct {
	Success   bool        `json:"success"`
	Skipped   bool        `json:"skipped"`
	Error     string      `json:"error,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Retryable bool        `json:"retryable"`
	TimedOut  bool        `json:"timedOut,omitempty"`
}

// SchedulerState is mutated only by the scheduler and consumed by the
// planner on re-plan (§3).
type SchedulerState struct {
	// RunID correlates every log line and RAG/tool trace emitted over one
	// Run with a single opaque identifier.
	RunID string

	Plan         *Plan
	CurrentIndex int
	Completed    map[int]bool
	Results      map[int]SubtaskResult

	LoopCount int
	MaxLoops  int

	HasReplanned bool

	Attachments []Attachment

	RAGContext        []string
	SceneContext      interface{}
	IntegrationStatus integration.Status

	// Messages accumulates AI-visible text produced over the run (e.g.
	// image analyses, finish_task's own summary), used to synthesize the
	// final response when finish_task never ran or left no summary.
	Messages []string

	Finished bool
}

// NewSchedulerState returns a fresh, unplanned state bounded to maxLoops
// iterations (§4.F default ≈10).
func NewSchedulerState(maxLoops int) *SchedulerState {
	if maxLoops <= 0 {
		maxLoops = 10
	}
	return &SchedulerState{
		RunID:     uuid.NewString(),
		Completed: map[int]bool{},
		Results:   map[int]SubtaskResult{},
		MaxLoops:  maxLoops,
	}
}
