package tools

import (
	"context"
	"time"
)

const maxAutoRepairAttempts = 3

var autoRepairBaseDelay = 500 * time.Millisecond

// ExecuteBlenderCodeTool implements the execute_blender_code tool
// (§4.D): sanitize the incoming script, send it to the remote host, and
// on failure attempt auto-repair up to maxAutoRepairAttempts times,
// backing off linearly (base delay * attempt) between attempts.
type ExecuteBlenderCodeTool struct {
	sender Sender
}

func NewExecuteBlenderCodeTool(sender Sender) *ExecuteBlenderCodeTool {
	return &ExecuteBlenderCodeTool{sender: sender}
}

func (t *ExecuteBlenderCodeTool) Name() Name { return ExecuteBlenderCode }

func (t *ExecuteBlenderCodeTool) Run(ctx context.Context, code string) Result {
	sanitized := SanitizeCode(code)

	var lastResult interface{}
	var lastErr error

	for attempt := 1; attempt <= maxAutoRepairAttempts; attempt++ {
		result, err := t.sender.Send(ctx, "execute_blender_code", map[string]interface{}{"code": sanitized})
		if err == nil {
			return Result{Success: true, Payload: map[string]interface{}{"result": result}}
		}
		lastResult, lastErr = result, err

		guard := repairGuardFor(err.Error())
		if guard == "" || attempt == maxAutoRepairAttempts {
			break
		}
		sanitized = guard + sanitized

		select {
		case <-ctx.Done():
			return Result{Success: false, Error: ctx.Err().Error()}
		case <-time.After(autoRepairBaseDelay * time.Duration(attempt)):
		}
	}

	return Result{
		Success: false,
		Payload: map[string]interface{}{"result": lastResult},
		Error:   lastErr.Error(),
	}
}
