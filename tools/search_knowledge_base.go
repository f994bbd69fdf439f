package tools

import (
	"context"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/vectorstore"
)

// KnowledgeSearcher is the subset of vectorstore.Store the tool depends on.
type KnowledgeSearcher interface {
	Search(ctx context.Context, queryVec []float32, limit int) []vectorstore.SearchResult
}

// QueryEmbedder embeds a query string into the same space the knowledge
// base was ingested into.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

const defaultSearchLimit = 5

// SearchKnowledgeBaseTool implements the search_knowledge_base tool
// (§4.D): embed the query, run a cosine-similarity search against the
// vector index, and return both the plain document list and the
// similarity-scored detail.
type SearchKnowledgeBaseTool struct {
	embedder QueryEmbedder
	store    KnowledgeSearcher
	logger   core.Logger
}

func NewSearchKnowledgeBaseTool(embedder QueryEmbedder, store KnowledgeSearcher, logger core.Logger) *SearchKnowledgeBaseTool {
	return &SearchKnowledgeBaseTool{embedder: embedder, store: store, logger: logger}
}

func (t *SearchKnowledgeBaseTool) Name() Name { return SearchKnowledgeBase }

// Run executes the query with the default result limit, embedding the
// query text and delegating to the vector store.
func (t *SearchKnowledgeBaseTool) Run(ctx context.Context, query string) Result {
	return t.RunWithLimit(ctx, query, defaultSearchLimit)
}

func (t *SearchKnowledgeBaseTool) RunWithLimit(ctx context.Context, query string, limit int) Result {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	vec, err := t.embedder.Embed(ctx, query)
	if err != nil {
		if t.logger != nil {
			t.logger.Error("search_knowledge_base: embed failed", map[string]interface{}{"query": query, "error": err.Error()})
		}
		return Result{Success: false, Error: err.Error()}
	}

	results := t.store.Search(ctx, vec, limit)

	documents := make([]string, 0, len(results))
	for _, r := range results {
		documents = append(documents, r.Content)
	}

	return Result{
		Success: true,
		Payload: map[string]interface{}{
			"documents":       documents,
			"detailedResults": results,
			"count":           len(results),
		},
	}
}
