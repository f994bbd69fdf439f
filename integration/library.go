package integration

import (
	"context"
	"fmt"
	"strings"

	"github.com/kilnforge/meshpilot/core"
)

// AssetType enumerates the library's searchable categories (§4.C).
type AssetType string

const (
	AssetTypeModel    AssetType = "model"
	AssetTypeTexture  AssetType = "texture"
	AssetTypeHDRI     AssetType = "hdri"
	AssetTypeMaterial AssetType = "material"
)

// defaultResolution and defaultHDRIFormat are applied to HDRIs, and
// defaultResolution and defaultTextureFormat to materials and textures,
// which the library (PolyHaven) serves at several resolutions/formats.
const (
	defaultResolution = "2k"
	defaultHDRIFormat = "hdr"
	defaultTextureFormat = "jpg"
)

// LibraryAdapter searches a curated asset library (PolyHaven) by category
// and imports the best match.
type LibraryAdapter struct {
	*guardedAdapter
	sender Sender
}

func NewLibraryAdapter(sender Sender, logger core.Logger) *LibraryAdapter {
	return &LibraryAdapter{
		guardedAdapter: newGuardedAdapter("library", logger),
		sender:         sender,
	}
}

// SearchAndImport searches by keyword-stripped category and imports the
// first match, applying resolution/format defaults for HDRIs, materials
// and textures.
func (l *LibraryAdapter) SearchAndImport(ctx context.Context, query string, assetType AssetType) (AssetRef, error) {
	return l.call(ctx, func() (AssetRef, error) {
		return l.searchAndImport(ctx, query, assetType)
	})
}

func (l *LibraryAdapter) searchAndImport(ctx context.Context, query string, assetType AssetType) (AssetRef, error) {
	category := stripAssetKeywords(query)

	results, err := l.sender.Send(ctx, "search_polyhaven_assets", map[string]interface{}{
		"query":      category,
		"asset_type": string(assetType),
	})
	if err != nil {
		return AssetRef{}, fmt.Errorf("library: search: %w", err)
	}

	assetID, ok := firstHit(results)
	if !ok {
		return AssetRef{}, fmt.Errorf("library: %w", core.ErrNoAssetFound)
	}

	params := map[string]interface{}{"asset_id": assetID}
	switch assetType {
	case AssetTypeHDRI:
		params["resolution"] = defaultResolution
		params["file_format"] = defaultHDRIFormat
	case AssetTypeMaterial, AssetTypeTexture:
		params["resolution"] = defaultResolution
		params["file_format"] = defaultTextureFormat
	}

	_, err = l.sender.Send(ctx, "download_polyhaven_asset", params)
	if err != nil {
		return AssetRef{}, fmt.Errorf("library: download: %w", err)
	}

	return AssetRef{Name: assetID, Type: string(assetType), AssetType: "library"}, nil
}

// stripAssetKeywords removes generic category words from a free-text
// query, leaving the subject to search by (e.g. "wooden texture" ->
// "wooden").
func stripAssetKeywords(query string) string {
	words := strings.Fields(strings.ToLower(query))
	stop := map[string]bool{
		"texture": true, "hdri": true, "material": true, "furniture": true,
		"asset": true, "model": true, "a": true, "an": true, "the": true,
	}
	var kept []string
	for _, w := range words {
		if !stop[w] {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return query
	}
	return strings.Join(kept, " ")
}

func firstHit(results interface{}) (string, bool) {
	m, ok := results.(map[string]interface{})
	if !ok {
		return "", false
	}
	hits, ok := m["results"].([]interface{})
	if !ok || len(hits) == 0 {
		return "", false
	}
	if id, ok := hits[0].(string); ok {
		return id, true
	}
	if hit, ok := hits[0].(map[string]interface{}); ok {
		if id, ok := hit["id"].(string); ok {
			return id, true
		}
	}
	return "", false
}
