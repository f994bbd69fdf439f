package scheduler

import (
	"fmt"
	"strings"

	"github.com/kilnforge/meshpilot/tools"
)

// FinalResponse synthesizes the textual response returned to the user at
// the end of a run (§4.F "Output"): prefer the terminal finish_task's own
// summary, then fall back to every accumulated AI-visible message, then a
// templated scene-size report.
func FinalResponse(state *tools.SchedulerState) string {
	if state.Plan != nil {
		for _, st := range state.Plan.Subtasks {
			if st.Tool != tools.FinishTask {
				continue
			}
			r, ok := state.Results[st.ID]
			if !ok || r.Skipped || !r.Success {
				continue
			}
			if payload, ok := r.Payload.(map[string]interface{}); ok {
				if answer, ok := payload["finalAnswer"].(string); ok && answer != "" {
					return answer
				}
			}
		}
	}

	if len(state.Messages) > 0 {
		return strings.Join(state.Messages, "\n")
	}

	return templatedSceneFallback(state)
}

func templatedSceneFallback(state *tools.SchedulerState) string {
	count := sceneObjectCount(state.SceneContext)
	if count >= 0 {
		return fmt.Sprintf("Task did not produce a final summary. The scene currently contains %d object(s).", count)
	}
	return "Task did not produce a final summary, and no scene information is available."
}

func sceneObjectCount(sceneContext interface{}) int {
	m, ok := sceneContext.(map[string]interface{})
	if !ok {
		return -1
	}
	objects, ok := m["objects"].([]interface{})
	if !ok {
		return -1
	}
	return len(objects)
}
