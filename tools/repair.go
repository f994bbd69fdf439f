package tools

import "strings"

// repairGuards maps a substring found in a remote error message to a
// guard snippet prepended before the next execute_blender_code attempt
// (§Auto-repair).
var repairGuards = []struct {
	errSubstring string
	guard        string
}{
	{"no module named", "import bpy\n"},
	{"modulenotfounderror", "import bpy\n"},
	{"incorrect context", "bpy.context.view_layer.objects.active = bpy.context.selected_objects[0] if bpy.context.selected_objects else bpy.context.view_layer.objects.active\n"},
	{"wrong context", "bpy.context.view_layer.objects.active = bpy.context.selected_objects[0] if bpy.context.selected_objects else bpy.context.view_layer.objects.active\n"},
	{"mode is not", "bpy.ops.object.mode_set(mode='OBJECT')\n"},
	{"not in edit mode", "bpy.ops.object.mode_set(mode='EDIT')\n"},
	{"no active object", "bpy.ops.object.select_all(action='SELECT')\n"},
	{"nothing selected", "bpy.ops.object.select_all(action='SELECT')\n"},
}

// repairGuardFor inspects a lowered remote error string for a known
// substring and returns the guard snippet to prepend before retrying,
// or "" if no known repair applies.
func repairGuardFor(remoteErr string) string {
	lowered := strings.ToLower(remoteErr)
	for _, g := range repairGuards {
		if strings.Contains(lowered, g.errSubstring) {
			return g.guard
		}
	}
	return ""
}
