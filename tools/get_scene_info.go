package tools

import (
	"context"
	"fmt"

	"github.com/kilnforge/meshpilot/core"
)

// GetSceneInfoTool implements the get_scene_info tool (§4.D): a single
// TCP round trip to the remote host asking for the current scene graph
// (objects, materials, active selection).
type GetSceneInfoTool struct {
	sender Sender
	retry  *RetryPolicy
}

func NewGetSceneInfoTool(sender Sender) *GetSceneInfoTool {
	return &GetSceneInfoTool{sender: sender, retry: DefaultRetryPolicy()}
}

// WithRetryPolicy overrides the default retry policy, e.g. to shrink
// backoff delays in tests.
func (t *GetSceneInfoTool) WithRetryPolicy(policy *RetryPolicy) *GetSceneInfoTool {
	t.retry = policy
	return t
}

func (t *GetSceneInfoTool) Name() Name { return GetSceneInfo }

func (t *GetSceneInfoTool) Run(ctx context.Context) Result {
	var info interface{}
	err := WithRetry(ctx, t.retry, func() error {
		var callErr error
		info, callErr = t.sender.Send(ctx, "get_scene_info", nil)
		return callErr
	})
	if err != nil {
		return Result{Success: false, Error: fmt.Errorf("%w: %v", core.ErrToolFailed, err).Error()}
	}

	return Result{
		Success: true,
		Payload: map[string]interface{}{"scene": info},
	}
}
