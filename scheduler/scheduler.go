package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/planner"
	"github.com/kilnforge/meshpilot/tools"
)

// defaultParallelSubtaskTimeout bounds one subtask's execution within a
// parallel pass (§4.F "each with its own per-subtask timeout").
const defaultParallelSubtaskTimeout = 60 * time.Second

// defaultMaxLoops bounds the overall agent run so the scheduler always
// terminates (§4.F "Cancellation and timeouts").
const defaultMaxLoops = 10

// Scheduler drives a Plan to terminal state or gives up after MaxLoops
// (§4.F).
type Scheduler struct {
	planner    *planner.Planner
	dispatcher *tools.Dispatcher
	logger     core.Logger

	parallelSubtaskTimeout time.Duration
}

func NewScheduler(p *planner.Planner, dispatcher *tools.Dispatcher, logger core.Logger) *Scheduler {
	return &Scheduler{
		planner:                p,
		dispatcher:             dispatcher,
		logger:                 logger,
		parallelSubtaskTimeout: defaultParallelSubtaskTimeout,
	}
}

// Run drives state to completion, returning the synthesized final
// response (§4.F "Output").
func (s *Scheduler) Run(ctx context.Context, userRequest string, attachments []tools.Attachment) (string, *tools.SchedulerState) {
	state := tools.NewSchedulerState(defaultMaxLoops)
	state.Attachments = attachments

	for {
		done := s.step(ctx, userRequest, state)
		if done {
			break
		}
	}

	return FinalResponse(state), state
}

// step executes exactly one iteration of the agent-step state machine
// (§4.F). It returns true when the run is over (finished, or the loop
// bound was reached).
func (s *Scheduler) step(ctx context.Context, userRequest string, state *tools.SchedulerState) bool {
	// Step 1: terminal check.
	if state.Finished || state.LoopCount >= state.MaxLoops {
		return true
	}
	state.LoopCount++

	// Step 2: initial plan.
	if state.Plan == nil {
		state.Plan = s.planner.Plan(ctx, userRequest, state.Attachments)
		return false
	}

	// Step 3: re-plan check.
	if shouldReplan(state) {
		failed, completed := failedAndCompletedSubtasks(state.Plan, state.Results)
		state.Plan = s.planner.RePlan(ctx, userRequest, failed, completed)
		state.Completed = map[int]bool{}
		state.Results = map[int]tools.SubtaskResult{}
		state.CurrentIndex = 0
		state.HasReplanned = true
		return false
	}

	// Step 4: parallel pass.
	ready := readySubtasks(state.Plan, state.Completed, state.Results)
	if len(ready) >= 2 {
		s.runParallel(ctx, ready, state)
		s.advanceCursor(state)
		return false
	}

	// Step 5: sequential step.
	if s.sequentialStep(ctx, state) {
		return false
	}

	// Step 6: terminal finish_task dispatch.
	if st, due := finishDue(state.Plan, state.Completed); due {
		s.dispatchFinish(ctx, st, state)
		return false
	}

	// Nothing ready, nothing due, and the sequential step made no
	// progress: finish_task already ran and vetoed termination, and the
	// re-plan check didn't fire. Recur; step 1's maxLoops bound is what
	// eventually ends the run.
	return false
}

func (s *Scheduler) runParallel(ctx context.Context, ready []tools.Subtask, state *tools.SchedulerState) {
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, st := range ready {
		st := st
		wg.Add(1)
		go func() {
			defer wg.Done()
			subCtx, cancel := context.WithTimeout(ctx, s.parallelSubtaskTimeout)
			defer cancel()

			result := s.dispatchSubtask(subCtx, st, state)

			mu.Lock()
			state.Results[st.ID] = result
			state.Completed[st.ID] = true
			mu.Unlock()
		}()
	}

	wg.Wait()
}

// sequentialStep advances the cursor past any subtasks whose
// dependencies aren't yet met (bounded by MaxLoops), evaluates the
// cursor subtask's guard, and either skips or dispatches it. It returns
// true if it made progress (so the caller should recur).
func (s *Scheduler) sequentialStep(ctx context.Context, state *tools.SchedulerState) bool {
	loops := 0
	for state.CurrentIndex < len(state.Plan.Subtasks) && loops < state.MaxLoops {
		st := state.Plan.Subtasks[state.CurrentIndex]
		loops++

		if state.Completed[st.ID] || st.Tool == tools.FinishTask {
			state.CurrentIndex++
			continue
		}
		if !dependenciesSatisfied(st, state.Completed) {
			state.CurrentIndex++
			continue
		}

		if !EvaluateGuard(st, state.Results) {
			state.Results[st.ID] = tools.SubtaskResult{Skipped: true}
			state.Completed[st.ID] = true
			state.CurrentIndex++
			return true
		}

		result := s.dispatchSubtask(ctx, st, state)
		state.Results[st.ID] = result
		state.Completed[st.ID] = true
		state.CurrentIndex++
		return true
	}
	return false
}

func (s *Scheduler) dispatchSubtask(ctx context.Context, st tools.Subtask, state *tools.SchedulerState) tools.SubtaskResult {
	res := s.dispatcher.Dispatch(ctx, st, nil)

	if ctx.Err() != nil {
		return tools.SubtaskResult{Success: false, Error: ctx.Err().Error(), TimedOut: true, Retryable: true}
	}

	if !res.Success {
		return tools.SubtaskResult{Success: false, Error: res.Error, Retryable: true, Payload: res.Payload}
	}
	if text := extractMessage(st, res); text != "" {
		state.Messages = append(state.Messages, text)
	}
	return tools.SubtaskResult{Success: true, Payload: res.Payload}
}

func (s *Scheduler) dispatchFinish(ctx context.Context, st tools.Subtask, state *tools.SchedulerState) {
	failures := collectCriticalFailures(state)
	res := s.dispatcher.Dispatch(ctx, st, failures)

	state.Results[st.ID] = tools.SubtaskResult{Success: res.Success, Error: res.Error, Payload: res.Payload}
	state.Completed[st.ID] = true

	if res.Success {
		state.Finished = true
	} else if s.logger != nil {
		s.logger.Warn("scheduler: finish_task vetoed termination", map[string]interface{}{"runID": state.RunID, "error": res.Error})
	}
}

func collectCriticalFailures(state *tools.SchedulerState) []tools.CriticalFailure {
	byID := make(map[int]tools.Subtask, len(state.Plan.Subtasks))
	for _, st := range state.Plan.Subtasks {
		byID[st.ID] = st
	}

	var failures []tools.CriticalFailure
	for id, r := range state.Results {
		st, ok := byID[id]
		if !ok {
			continue
		}
		if isCritical(st, r) && !r.Success {
			failures = append(failures, tools.CriticalFailure{SubtaskID: id, Description: st.Description, Error: r.Error})
		}
	}
	return failures
}

// advanceCursor skips the cursor past any subtask ids that a parallel
// pass just completed, so the sequential path doesn't redo them.
func (s *Scheduler) advanceCursor(state *tools.SchedulerState) {
	for state.CurrentIndex < len(state.Plan.Subtasks) && state.Completed[state.Plan.Subtasks[state.CurrentIndex].ID] {
		state.CurrentIndex++
	}
}

func extractMessage(st tools.Subtask, res tools.Result) string {
	payload, ok := res.Payload["analysis"].([]string)
	if ok && len(payload) > 0 {
		return fmt.Sprintf("subtask #%d (%s): %s", st.ID, st.Tool, payload[0])
	}
	return ""
}
