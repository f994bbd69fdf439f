package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/kilnforge/meshpilot/core"
)

// KnowledgeChunk is one entry in the index: a content string and its
// embedding vector.
type KnowledgeChunk struct {
	ID        int64
	Content   string
	Embedding []float32
}

// SearchResult is one surviving hit from Search.
type SearchResult struct {
	Content    string
	Similarity float64
}

// table holds one generation of chunks at a fixed dimensionality.
type table struct {
	dimension int
	chunks    []KnowledgeChunk
	nextID    int64
}

// Store is the in-memory knowledge index (§4.B). It mirrors the
// `knowledge` / `knowledge_new` table pair described for a persistent
// deployment: an "old" table that may carry stale-dimension data and an
// optional "new" table created on migration, preferred on reads once it
// has results.
//
// Grounded on core/redis_client.go's concurrency and logging shape: a
// single RWMutex-guarded struct with structured logging.
type Store struct {
	mu       sync.RWMutex
	old      *table
	newTable *table
	logger   core.Logger
}

const (
	similarityFloor    = 0.3
	nearDuplicateCeil  = 0.95
)

// NewStore creates an empty index at the given dimension.
func NewStore(dimension int) *Store {
	return &Store{
		old:    &table{dimension: dimension},
		logger: &core.NoOpLogger{},
	}
}

// SetLogger configures the logger used for index operations, tagging logs
// with the "core/vectorstore" component when the logger supports it.
func (s *Store) SetLogger(logger core.Logger) {
	if logger == nil {
		s.logger = &core.NoOpLogger{}
		return
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		s.logger = cal.WithComponent("core/vectorstore")
		return
	}
	s.logger = logger
}

// activeTable returns the table reads should prefer: the new table once it
// exists and holds results, the old table otherwise.
func (s *Store) activeTable() *table {
	if s.newTable != nil && len(s.newTable.chunks) > 0 {
		return s.newTable
	}
	return s.old
}

// ReconcileDimension applies the dimension-mismatch migration policy at
// startup or whenever the embedder's dimension changes: in place if the
// active table is empty, otherwise via a parallel "new" table that
// preserves the old table's historical data untouched.
func (s *Store) ReconcileDimension(embedderDim int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.activeTableLocked()
	if active.dimension == embedderDim {
		return
	}

	if len(active.chunks) == 0 {
		s.logger.Debug("vectorstore dimension changed in place", map[string]interface{}{
			"old_dimension": active.dimension,
			"new_dimension": embedderDim,
		})
		active.dimension = embedderDim
		return
	}

	s.logger.Info("vectorstore dimension mismatch, migrating to parallel table", map[string]interface{}{
		"old_dimension": active.dimension,
		"new_dimension": embedderDim,
		"old_chunk_count": len(active.chunks),
	})
	s.newTable = &table{dimension: embedderDim}
}

func (s *Store) activeTableLocked() *table {
	if s.newTable != nil && len(s.newTable.chunks) > 0 {
		return s.newTable
	}
	return s.old
}

// writeTarget is the table ingest appends to: the new table once a
// migration has been started, the old table otherwise.
func (s *Store) writeTarget() *table {
	if s.newTable != nil {
		return s.newTable
	}
	return s.old
}

// Ingest inserts a batch of (content, vector) chunks. Every vector in the
// batch must match the write target's dimension or the whole batch fails.
func (s *Store) Ingest(ctx context.Context, contents []string, embeddings [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.writeTarget()
	for _, vec := range embeddings {
		if target.dimension != 0 && len(vec) != target.dimension {
			return core.NewFrameworkError("ingest", "vectorstore", core.ErrSchemaError)
		}
	}

	for i, content := range contents {
		target.nextID++
		target.chunks = append(target.chunks, KnowledgeChunk{
			ID:        target.nextID,
			Content:   content,
			Embedding: embeddings[i],
		})
	}

	s.logger.Debug("vectorstore ingest", map[string]interface{}{
		"batch_size": len(contents),
		"dimension":  target.dimension,
	})
	return nil
}

// Search returns the top-limit chunks most similar to queryVec, excluding
// results at or below the similarity floor and suppressing near-duplicate
// hits. A nil/zero query vector or an empty index returns an empty result
// rather than an error — callers treat "no context" as a valid outcome.
func (s *Store) Search(ctx context.Context, queryVec []float32, limit int) []SearchResult {
	s.mu.RLock()
	active := s.activeTable()
	chunks := make([]KnowledgeChunk, len(active.chunks))
	copy(chunks, active.chunks)
	s.mu.RUnlock()

	type scored struct {
		content    string
		similarity float64
	}
	candidates := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		sim := cosineSimilarity(queryVec, c.Embedding)
		if sim <= similarityFloor {
			continue
		}
		candidates = append(candidates, scored{content: c.Content, similarity: sim})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})

	results := make([]SearchResult, 0, limit)
	for _, cand := range candidates {
		if len(results) >= limit {
			break
		}
		if isNearDuplicate(cand.content, results) {
			continue
		}
		results = append(results, SearchResult{Content: cand.content, Similarity: cand.similarity})
	}

	s.logger.Debug("vectorstore search", map[string]interface{}{
		"candidates": len(candidates),
		"returned":   len(results),
		"limit":      limit,
	})
	return results
}

// isNearDuplicate reports whether content's Levenshtein-normalized
// similarity to any already-kept result exceeds the near-duplicate
// ceiling. Results are scanned in descending-similarity order, so the
// earlier (higher-similarity) occurrence always survives.
func isNearDuplicate(content string, kept []SearchResult) bool {
	for _, k := range kept {
		if levenshteinSimilarity(content, k.Content) > nearDuplicateCeil {
			return true
		}
	}
	return false
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
