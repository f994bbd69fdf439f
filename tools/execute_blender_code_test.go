package tools

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedSender struct {
	errs    []error
	results []interface{}
	calls   []map[string]interface{}
}

func (s *scriptedSender) Send(ctx context.Context, commandType string, params map[string]interface{}) (interface{}, error) {
	i := len(s.calls)
	s.calls = append(s.calls, params)
	var err error
	var result interface{}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if i < len(s.results) {
		result = s.results[i]
	}
	return result, err
}

func TestExecuteBlenderCodeTool_SucceedsFirstTry(t *testing.T) {
	sender := &scriptedSender{results: []interface{}{"ok"}}
	tool := NewExecuteBlenderCodeTool(sender)

	res := tool.Run(context.Background(), "import bpy\nbpy.ops.object.select_all(action='SELECT')")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(sender.calls) != 1 {
		t.Errorf("calls = %d, want 1", len(sender.calls))
	}
}

func TestExecuteBlenderCodeTool_AutoRepairsThenSucceeds(t *testing.T) {
	restore := setAutoRepairDelay(time.Millisecond)
	defer restore()

	sender := &scriptedSender{
		errs:    []error{errors.New("RuntimeError: nothing selected"), nil},
		results: []interface{}{nil, "ok"},
	}
	tool := NewExecuteBlenderCodeTool(sender)

	res := tool.Run(context.Background(), "import bpy\nbpy.ops.object.delete()")
	if !res.Success {
		t.Fatalf("expected eventual success, got %+v", res)
	}
	if len(sender.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(sender.calls))
	}
	secondCode, _ := sender.calls[1]["code"].(string)
	if !containsSubstr(secondCode, "select_all") {
		t.Errorf("expected repair guard prepended to second attempt, got %q", secondCode)
	}
}

func TestExecuteBlenderCodeTool_GivesUpOnUnknownError(t *testing.T) {
	sender := &scriptedSender{errs: []error{errors.New("totally unknown failure")}}
	tool := NewExecuteBlenderCodeTool(sender)

	res := tool.Run(context.Background(), "import bpy")
	if res.Success {
		t.Fatal("expected failure")
	}
	if len(sender.calls) != 1 {
		t.Errorf("calls = %d, want 1 (no guard means no retry)", len(sender.calls))
	}
}

func setAutoRepairDelay(d time.Duration) func() {
	original := autoRepairBaseDelay
	autoRepairBaseDelay = d
	return func() { autoRepairBaseDelay = original }
}
