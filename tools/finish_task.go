package tools

import (
	"context"
	"fmt"
	"strings"
)

// CriticalFailure describes one non-skipped, non-conditional,
// asset/generation-producing subtask that failed. The scheduler computes
// this list from SchedulerState.results before dispatching finish_task;
// the tool itself only decides whether it vetoes termination.
type CriticalFailure struct {
	SubtaskID   int
	Description string
	Error       string
}

// FinishTaskTool implements the finish_task tool (§4.D): the sole
// terminal node of every plan. It refuses to finalize while critical
// failures remain, returning {success:false} with an explanatory
// finalAnswer instead.
type FinishTaskTool struct{}

func NewFinishTaskTool() *FinishTaskTool { return &FinishTaskTool{} }

func (t *FinishTaskTool) Name() Name { return FinishTask }

func (t *FinishTaskTool) Run(ctx context.Context, finalAnswer string, criticalFailures []CriticalFailure) Result {
	if len(criticalFailures) == 0 {
		return Result{
			Success: true,
			Payload: map[string]interface{}{"finalAnswer": finalAnswer},
		}
	}

	var b strings.Builder
	b.WriteString("cannot finish: ")
	b.WriteString(fmt.Sprintf("%d critical subtask(s) failed: ", len(criticalFailures)))
	for i, f := range criticalFailures {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(fmt.Sprintf("#%d %q (%s)", f.SubtaskID, f.Description, f.Error))
	}

	return Result{
		Success: false,
		Payload: map[string]interface{}{"finalAnswer": b.String()},
		Error:   b.String(),
	}
}
