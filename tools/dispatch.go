package tools

import (
	"context"
	"fmt"
)

// Dispatcher routes a Subtask to its named tool, translating the
// subtask's untyped Parameters map into that tool's typed Run signature.
// It is the single place that knows about every tool in the catalog; the
// scheduler depends only on this facade.
type Dispatcher struct {
	decomposeTask       *DecomposeTaskTool
	searchKnowledgeBase *SearchKnowledgeBaseTool
	getSceneInfo        *GetSceneInfoTool
	executeBlenderCode  *ExecuteBlenderCodeTool
	assetSearchAndImport *AssetSearchAndImportTool
	analyzeImage        *AnalyzeImageTool
	validateWithVision  *ValidateWithVisionTool
	createAnimation     *CreateAnimationTool
	finishTask          *FinishTaskTool
}

// DispatcherTools groups every concrete tool instance the Dispatcher
// routes to. All fields are required except where a deployment
// deliberately omits a capability (e.g. no vision provider configured).
type DispatcherTools struct {
	DecomposeTask        *DecomposeTaskTool
	SearchKnowledgeBase  *SearchKnowledgeBaseTool
	GetSceneInfo         *GetSceneInfoTool
	ExecuteBlenderCode   *ExecuteBlenderCodeTool
	AssetSearchAndImport *AssetSearchAndImportTool
	AnalyzeImage         *AnalyzeImageTool
	ValidateWithVision   *ValidateWithVisionTool
	CreateAnimation      *CreateAnimationTool
	FinishTask           *FinishTaskTool
}

func NewDispatcher(t DispatcherTools) *Dispatcher {
	return &Dispatcher{
		decomposeTask:        t.DecomposeTask,
		searchKnowledgeBase:  t.SearchKnowledgeBase,
		getSceneInfo:         t.GetSceneInfo,
		executeBlenderCode:   t.ExecuteBlenderCode,
		assetSearchAndImport: t.AssetSearchAndImport,
		analyzeImage:         t.AnalyzeImage,
		validateWithVision:   t.ValidateWithVision,
		createAnimation:      t.CreateAnimation,
		finishTask:           t.FinishTask,
	}
}

// Dispatch invokes the subtask's tool. criticalFailures is only consumed
// by finish_task; every other tool ignores it.
func (d *Dispatcher) Dispatch(ctx context.Context, subtask Subtask, criticalFailures []CriticalFailure) Result {
	params := subtask.Parameters
	if params == nil {
		params = map[string]interface{}{}
	}

	switch subtask.Tool {
	case DecomposeTask:
		if d.decomposeTask == nil {
			return unavailable(DecomposeTask)
		}
		userRequest, _ := params["userRequest"].(string)
		_, hasAttachments := params["attachments"]
		return d.decomposeTask.Run(ctx, userRequest, hasAttachments)

	case SearchKnowledgeBase:
		if d.searchKnowledgeBase == nil {
			return unavailable(SearchKnowledgeBase)
		}
		query, _ := params["query"].(string)
		return d.searchKnowledgeBase.Run(ctx, query)

	case GetSceneInfo:
		if d.getSceneInfo == nil {
			return unavailable(GetSceneInfo)
		}
		return d.getSceneInfo.Run(ctx)

	case ExecuteBlenderCode:
		if d.executeBlenderCode == nil {
			return unavailable(ExecuteBlenderCode)
		}
		code, _ := params["code"].(string)
		return d.executeBlenderCode.Run(ctx, code)

	case AssetSearchAndImport:
		if d.assetSearchAndImport == nil {
			return unavailable(AssetSearchAndImport)
		}
		prompt, _ := params["prompt"].(string)
		return d.assetSearchAndImport.Run(ctx, prompt)

	case AnalyzeImage:
		if d.analyzeImage == nil {
			return unavailable(AnalyzeImage)
		}
		return d.analyzeImage.Run(ctx, attachmentsFromParams(params))

	case ValidateWithVision:
		if d.validateWithVision == nil {
			return unavailable(ValidateWithVision)
		}
		expected, _ := params["expectedOutcome"].(string)
		return d.validateWithVision.Run(ctx, expected)

	case CreateAnimation:
		if d.createAnimation == nil {
			return unavailable(CreateAnimation)
		}
		animationType, _ := params["animationType"].(string)
		duration := intParam(params, "duration")
		targetObject, _ := params["targetObject"].(string)
		return d.createAnimation.Run(ctx, AnimationType(animationType), duration, targetObject)

	case FinishTask:
		if d.finishTask == nil {
			return unavailable(FinishTask)
		}
		finalAnswer, _ := params["finalAnswer"].(string)
		return d.finishTask.Run(ctx, finalAnswer, criticalFailures)

	default:
		return Result{Success: false, Error: fmt.Sprintf("dispatch: unknown tool %q", subtask.Tool)}
	}
}

func unavailable(name Name) Result {
	return Result{Success: false, Error: fmt.Sprintf("dispatch: tool %q not configured in this deployment", name)}
}

func attachmentsFromParams(params map[string]interface{}) []Attachment {
	raw, ok := params["attachments"].([]Attachment)
	if !ok {
		return nil
	}
	return raw
}

// intParam extracts an integer parameter that may have arrived either as
// a native int (constructed in-process, e.g. by FallbackPlan) or as a
// float64 (decoded from an LLM-authored JSON plan via encoding/json).
func intParam(params map[string]interface{}, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
