// Package vectorstore implements the Embedding & Vector Index (§4.B): fixed-
// dimensional embeddings over a cosine-similarity knowledge index, with
// dimension-mismatch migration and near-duplicate suppression on search.
package vectorstore

import (
	"context"
	"encoding/json"
	"math"
	"time"
)

// Embedder converts text into a fixed-dimension vector. The only
// implementation wired into this deployment is llm.Gateway's Bedrock Titan
// Embed path; this interface exists so the store can be exercised with a
// fake embedder in tests without touching AWS.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// GatewayEmbedder adapts a func(text) -> vector embed call (the gateway's
// Embed method) to the Embedder contract, fixing the table's expected
// dimension after the first real embed call.
type GatewayEmbedder struct {
	embedFunc func(ctx context.Context, text string) ([]float32, error)
	dimension int
}

// NewGatewayEmbedder wraps a gateway's Embed function. declaredDim is the
// dimension this deployment expects (typically 384 for Titan Embed); it is
// used before the first real embed call resolves an observed dimension.
func NewGatewayEmbedder(embedFunc func(ctx context.Context, text string) ([]float32, error), declaredDim int) *GatewayEmbedder {
	return &GatewayEmbedder{embedFunc: embedFunc, dimension: declaredDim}
}

func (g *GatewayEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := g.embedFunc(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) > 0 {
		g.dimension = len(vec)
	}
	return normalize(vec), nil
}

func (g *GatewayEmbedder) Dimension() int {
	return g.dimension
}

// embedCache is the subset of core.RedisClient an embedding cache needs.
// Keeping it as a local interface lets CachingEmbedder be exercised with
// a fake in tests without a live Redis connection.
type embedCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// embedCacheTTL bounds how long a cached embedding is trusted before a
// repeat query re-embeds, in case the backing provider's model changes.
const embedCacheTTL = 24 * time.Hour

// CachingEmbedder wraps an Embedder with a Redis-backed cache keyed on the
// exact query text, so repeated knowledge-base searches for the same
// phrase (a common pattern in iterative agent runs) don't re-call the LLM
// provider's embedding endpoint.
type CachingEmbedder struct {
	inner Embedder
	cache embedCache
}

// NewCachingEmbedder wraps inner with a cache. cache is typically a
// *core.RedisClient; passing nil disables caching and Embed simply
// delegates to inner.
func NewCachingEmbedder(inner Embedder, cache embedCache) *CachingEmbedder {
	return &CachingEmbedder{inner: inner, cache: cache}
}

func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.cache == nil {
		return c.inner.Embed(ctx, text)
	}

	key := "meshpilot:embed:" + text
	if cached, err := c.cache.Get(ctx, key); err == nil && cached != "" {
		var vec []float32
		if jsonErr := json.Unmarshal([]byte(cached), &vec); jsonErr == nil {
			return vec, nil
		}
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(vec); err == nil {
		_ = c.cache.Set(ctx, key, string(encoded), embedCacheTTL)
	}
	return vec, nil
}

func (c *CachingEmbedder) Dimension() int {
	return c.inner.Dimension()
}

// normalize scales a vector to unit length, matching the "unit-norm
// vectors" requirement on embed(text).
func normalize(vec []float32) []float32 {
	if len(vec) == 0 {
		return vec
	}
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return vec
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
