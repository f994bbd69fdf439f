package tools

import (
	"context"

	"github.com/kilnforge/meshpilot/integration"
)

// AssetSearchAndImportTool implements the asset_search_and_import tool
// (§4.D): classify the user's prompt into a generator/marketplace/library
// intent and dispatch to the matching Integration Registry adapter.
type AssetSearchAndImportTool struct {
	registry *integration.Registry
}

func NewAssetSearchAndImportTool(registry *integration.Registry) *AssetSearchAndImportTool {
	return &AssetSearchAndImportTool{registry: registry}
}

func (t *AssetSearchAndImportTool) Name() Name { return AssetSearchAndImport }

func (t *AssetSearchAndImportTool) Run(ctx context.Context, prompt string) Result {
	intent := integration.ClassifyIntent(prompt)

	var ref integration.AssetRef
	var err error

	switch intent {
	case integration.IntentGenerator:
		ref, err = t.registry.Generator.Generate(ctx, prompt)
	case integration.IntentMarketplace:
		ref, err = t.registry.Marketplace.SearchAndImport(ctx, prompt)
	case integration.IntentLibrary:
		assetType := integration.ClassifyAssetType(prompt)
		ref, err = t.registry.Library.SearchAndImport(ctx, prompt, assetType)
	default:
		// No strong signal in the prompt: try the library search first
		// (the broadest, cheapest catalog) before falling back to
		// generation.
		assetType := integration.ClassifyAssetType(prompt)
		ref, err = t.registry.Library.SearchAndImport(ctx, prompt, assetType)
		if err != nil {
			ref, err = t.registry.Generator.Generate(ctx, prompt)
		}
	}

	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	return Result{
		Success: true,
		Payload: map[string]interface{}{
			"assetResult": map[string]interface{}{
				"name":      ref.Name,
				"type":      ref.Type,
				"assetType": ref.AssetType,
			},
		},
	}
}
