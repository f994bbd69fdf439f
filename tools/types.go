// Package tools implements the Tool Layer (§4.D): a fixed catalog of
// callable tools, each with a typed input, a {success, ...} result shape,
// and a generic retry wrapper.
package tools

// Result is the uniform {success, ...} shape every tool returns.
type Result struct {
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"-"`
	Error   string                 `json:"error,omitempty"`
}

// Name enumerates the fixed tool catalog (§4.D).
type Name string

const (
	DecomposeTask        Name = "decompose_task"
	SearchKnowledgeBase   Name = "search_knowledge_base"
	GetSceneInfo          Name = "get_scene_info"
	ExecuteBlenderCode    Name = "execute_blender_code"
	AssetSearchAndImport  Name = "asset_search_and_import"
	AnalyzeImage          Name = "analyze_image"
	ValidateWithVision    Name = "validate_with_vision"
	CreateAnimation       Name = "create_animation"
	FinishTask            Name = "finish_task"
)

// AllNames lists the fixed catalog in a stable order, used by the planner
// to validate a subtask's tool field and by documentation/introspection
// callers.
var AllNames = []Name{
	DecomposeTask, SearchKnowledgeBase, GetSceneInfo, ExecuteBlenderCode,
	AssetSearchAndImport, AnalyzeImage, ValidateWithVision, CreateAnimation, FinishTask,
}
