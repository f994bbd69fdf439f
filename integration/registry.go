package integration

import (
	"context"
	"strings"

	"github.com/kilnforge/meshpilot/core"
)

// Status reports which integrations are currently usable, keyed by
// adapter name ("generator", "marketplace", "library"). This is the
// integrationStatus map carried in SchedulerState and consumed by the
// Planner and intent router.
type Status map[string]bool

// Registry exposes the three asset-acquisition adapters behind one
// surface, each independently circuit-broken.
type Registry struct {
	Generator   *GeneratorAdapter
	Marketplace *MarketplaceAdapter
	Library     *LibraryAdapter
	logger      core.Logger
}

// NewRegistry wires all three adapters against one Sender (the TCP
// multiplexer).
func NewRegistry(sender Sender, logger core.Logger) *Registry {
	return &Registry{
		Generator:   NewGeneratorAdapter(sender, logger),
		Marketplace: NewMarketplaceAdapter(sender, logger),
		Library:     NewLibraryAdapter(sender, logger),
		logger:      logger,
	}
}

// Status reports each adapter's current availability (closed or
// half-open circuit breaker).
func (r *Registry) Status(ctx context.Context) Status {
	return Status{
		"generator":   r.Generator.Available(),
		"marketplace": r.Marketplace.Available(),
		"library":     r.Library.Available(),
	}
}

// Intent is the result of classifying a user prompt against the
// integration registry (§4.C "Intent routing").
type Intent string

const (
	IntentGenerator   Intent = "generator"
	IntentMarketplace Intent = "marketplace"
	IntentLibrary     Intent = "library"
	IntentNone        Intent = "none"
)

var generatorKeywords = []string{"unique", "realistic", "creature", "sculpture", "organic", "custom", "generate"}
var marketplaceKeywords = []string{"brand", "model of", "specific model", "official", "licensed", "branded"}
var libraryKeywords = []string{"texture", "hdri", "material", "furniture", "wood", "fabric", "metal", "chair", "table"}

// ClassifyIntent maps free-text prompt to one of the three adapters, or
// IntentNone if nothing matches. Library matches further resolve to an
// AssetType via ClassifyAssetType.
func ClassifyIntent(prompt string) Intent {
	lower := strings.ToLower(prompt)
	if containsAny(lower, generatorKeywords) {
		return IntentGenerator
	}
	if containsAny(lower, marketplaceKeywords) {
		return IntentMarketplace
	}
	if containsAny(lower, libraryKeywords) {
		return IntentLibrary
	}
	return IntentNone
}

// ClassifyAssetType further subdivides a library-intent prompt into the
// asset category to search for.
func ClassifyAssetType(prompt string) AssetType {
	lower := strings.ToLower(prompt)
	switch {
	case containsAny(lower, []string{"hdri", "sky", "environment map"}):
		return AssetTypeHDRI
	case containsAny(lower, []string{"texture"}):
		return AssetTypeTexture
	case containsAny(lower, []string{"material", "wood", "metal", "fabric"}):
		return AssetTypeMaterial
	default:
		return AssetTypeModel
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
