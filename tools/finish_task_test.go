package tools

import (
	"context"
	"testing"
)

func TestFinishTaskTool_SucceedsWithNoCriticalFailures(t *testing.T) {
	tool := NewFinishTaskTool()
	res := tool.Run(context.Background(), "scene built successfully", nil)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Payload["finalAnswer"] != "scene built successfully" {
		t.Errorf("payload = %+v", res.Payload)
	}
}

func TestFinishTaskTool_VetoesOnCriticalFailure(t *testing.T) {
	tool := NewFinishTaskTool()
	res := tool.Run(context.Background(), "done", []CriticalFailure{
		{SubtaskID: 2, Description: "generate dragon asset", Error: "no matching asset found"},
	})
	if res.Success {
		t.Fatal("expected veto (success=false)")
	}
	if res.Error == "" {
		t.Error("expected explanatory error")
	}
}
