package tools

import (
	"context"
	"fmt"
)

// AnimationType enumerates the fixed keyframe template catalog for
// create_animation (§4.D).
type AnimationType string

const (
	AnimationHop    AnimationType = "hop"
	AnimationWalk   AnimationType = "walk"
	AnimationRotate AnimationType = "rotate"
	AnimationBounce AnimationType = "bounce"
)

const (
	defaultAnimationDuration = 24 // frames, at the scene's default 24fps this is a 1s loop
	defaultTargetObject      = "Cube"
)

// animationTemplates renders each keyframe script from (targetObject,
// duration). Each function computes its own intermediate frame numbers
// in Go rather than embedding arithmetic in the generated Python.
var animationTemplates = map[AnimationType]func(targetObject string, duration int) string{
	AnimationHop: func(obj string, d int) string {
		return fmt.Sprintf(`import bpy
obj = bpy.data.objects["%s"]
obj.location.z = 0
obj.keyframe_insert(data_path="location", frame=1)
obj.location.z = 1.5
obj.keyframe_insert(data_path="location", frame=%d)
obj.location.z = 0
obj.keyframe_insert(data_path="location", frame=%d)
`, obj, d/2, d)
	},
	AnimationWalk: func(obj string, d int) string {
		return fmt.Sprintf(`import bpy
obj = bpy.data.objects["%s"]
obj.location.x = 0
obj.keyframe_insert(data_path="location", frame=1)
obj.location.x = 4
obj.keyframe_insert(data_path="location", frame=%d)
`, obj, d)
	},
	AnimationRotate: func(obj string, d int) string {
		return fmt.Sprintf(`import bpy
obj = bpy.data.objects["%s"]
obj.rotation_euler[2] = 0
obj.keyframe_insert(data_path="rotation_euler", frame=1)
obj.rotation_euler[2] = 6.28318
obj.keyframe_insert(data_path="rotation_euler", frame=%d)
`, obj, d)
	},
	AnimationBounce: func(obj string, d int) string {
		return fmt.Sprintf(`import bpy
obj = bpy.data.objects["%s"]
obj.location.z = 0
obj.keyframe_insert(data_path="location", frame=1)
obj.location.z = 1.0
obj.keyframe_insert(data_path="location", frame=%d)
obj.location.z = 0
obj.keyframe_insert(data_path="location", frame=%d)
obj.location.z = 0.4
obj.keyframe_insert(data_path="location", frame=%d)
`, obj, d/3, d*2/3, d)
	},
}

// CreateAnimationTool implements the create_animation tool (§4.D): emit a
// deterministic keyframe script from a small template library and execute
// it via execute_blender_code (sanitization and auto-repair included).
type CreateAnimationTool struct {
	executor *ExecuteBlenderCodeTool
}

func NewCreateAnimationTool(executor *ExecuteBlenderCodeTool) *CreateAnimationTool {
	return &CreateAnimationTool{executor: executor}
}

func (t *CreateAnimationTool) Name() Name { return CreateAnimation }

func (t *CreateAnimationTool) Run(ctx context.Context, animationType AnimationType, duration int, targetObject string) Result {
	render, ok := animationTemplates[animationType]
	if !ok {
		return Result{Success: false, Error: fmt.Sprintf("create_animation: unknown animation type %q", animationType)}
	}
	if duration <= 0 {
		duration = defaultAnimationDuration
	}
	if targetObject == "" {
		targetObject = defaultTargetObject
	}

	code := render(targetObject, duration)

	execResult := t.executor.Run(ctx, code)
	if !execResult.Success {
		return Result{Success: false, Error: execResult.Error}
	}

	return Result{
		Success: true,
		Payload: map[string]interface{}{
			"animation": map[string]interface{}{
				"type":         animationType,
				"duration":     duration,
				"targetObject": targetObject,
			},
		},
	}
}
