package integration

import (
	"context"
	"fmt"

	"github.com/kilnforge/meshpilot/core"
)

// MarketplaceAdapter searches a downloadable-model marketplace (Sketchfab)
// and imports the top hit.
type MarketplaceAdapter struct {
	*guardedAdapter
	sender Sender
}

func NewMarketplaceAdapter(sender Sender, logger core.Logger) *MarketplaceAdapter {
	return &MarketplaceAdapter{
		guardedAdapter: newGuardedAdapter("marketplace", logger),
		sender:         sender,
	}
}

// SearchAndImport fetches the top downloadable hit for query, downloads,
// and imports it.
func (m *MarketplaceAdapter) SearchAndImport(ctx context.Context, query string) (AssetRef, error) {
	return m.call(ctx, func() (AssetRef, error) {
		return m.searchAndImport(ctx, query)
	})
}

func (m *MarketplaceAdapter) searchAndImport(ctx context.Context, query string) (AssetRef, error) {
	results, err := m.sender.Send(ctx, "search_sketchfab_models", map[string]interface{}{"query": query})
	if err != nil {
		return AssetRef{}, fmt.Errorf("marketplace: search: %w", err)
	}

	modelUID, name, ok := topDownloadableHit(results)
	if !ok {
		return AssetRef{}, fmt.Errorf("marketplace: %w", core.ErrNoAssetFound)
	}

	_, err = m.sender.Send(ctx, "download_sketchfab_model", map[string]interface{}{"uid": modelUID})
	if err != nil {
		return AssetRef{}, fmt.Errorf("marketplace: download: %w", err)
	}

	return AssetRef{Name: name, Type: "model", AssetType: "marketplace"}, nil
}

// topDownloadableHit picks the first result flagged as downloadable from
// a search_sketchfab_models response.
func topDownloadableHit(results interface{}) (uid, name string, ok bool) {
	m, isMap := results.(map[string]interface{})
	if !isMap {
		return "", "", false
	}
	hits, isList := m["results"].([]interface{})
	if !isList {
		return "", "", false
	}
	for _, h := range hits {
		hit, isMap := h.(map[string]interface{})
		if !isMap {
			continue
		}
		downloadable, _ := hit["isDownloadable"].(bool)
		if !downloadable {
			continue
		}
		uid, _ := hit["uid"].(string)
		name, _ := hit["name"].(string)
		if uid == "" {
			continue
		}
		return uid, name, true
	}
	return "", "", false
}
