package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/kilnforge/meshpilot/integration"
	"github.com/kilnforge/meshpilot/llm"
	"github.com/kilnforge/meshpilot/planner"
	"github.com/kilnforge/meshpilot/tools"
)

type failingGateway struct{}

func (failingGateway) Call(ctx context.Context, messages []llm.Message, provider string) (string, error) {
	return "", errors.New("no LLM configured in this test")
}

type queuedResponse struct {
	value interface{}
	err   error
}

type testQueuedSender struct {
	byCommand map[string][]queuedResponse
}

func newTestQueuedSender() *testQueuedSender {
	return &testQueuedSender{byCommand: map[string][]queuedResponse{}}
}

func (q *testQueuedSender) on(commandType string, value interface{}, err error) *testQueuedSender {
	q.byCommand[commandType] = append(q.byCommand[commandType], queuedResponse{value: value, err: err})
	return q
}

func (q *testQueuedSender) Send(ctx context.Context, commandType string, params map[string]interface{}) (interface{}, error) {
	queue := q.byCommand[commandType]
	if len(queue) == 0 {
		return nil, errors.New("testQueuedSender: no response queued for " + commandType)
	}
	next := queue[0]
	q.byCommand[commandType] = queue[1:]
	return next.value, next.err
}

func TestScheduler_Run_DefaultFlowFinishes(t *testing.T) {
	sender := newTestQueuedSender().
		on("search_sketchfab_models", map[string]interface{}{"results": []interface{}{
			map[string]interface{}{"uid": "u1", "name": "Cube", "isDownloadable": true},
		}}, nil).
		on("download_sketchfab_model", map[string]interface{}{}, nil)

	registry := integration.NewRegistry(sender, nil)
	dispatcher := tools.NewDispatcher(tools.DispatcherTools{
		AssetSearchAndImport: tools.NewAssetSearchAndImportTool(registry),
		FinishTask:           tools.NewFinishTaskTool(),
	})

	p := planner.NewPlanner(failingGateway{}, "anthropic", nil)
	sched := NewScheduler(p, dispatcher, nil)

	response, state := sched.Run(context.Background(), "import the official branded cube model", nil)
	if !state.Finished {
		t.Fatalf("expected run to finish, state = %+v", state)
	}
	if response == "" {
		t.Error("expected a non-empty final response")
	}
}

func TestScheduler_Run_BoundedByMaxLoops(t *testing.T) {
	// With no tools wired, every dispatch fails and finish_task is
	// unreachable; the run must still terminate via the maxLoops bound.
	dispatcher := tools.NewDispatcher(tools.DispatcherTools{})
	p := planner.NewPlanner(failingGateway{}, "anthropic", nil)
	sched := NewScheduler(p, dispatcher, nil)

	_, state := sched.Run(context.Background(), "add a cube", nil)
	if state.LoopCount > state.MaxLoops {
		t.Errorf("loopCount = %d exceeded maxLoops = %d", state.LoopCount, state.MaxLoops)
	}
}
