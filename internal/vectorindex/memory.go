// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/pdiddy/scholar-engine/pkg/types"
)

// MemoryIndex is an exact brute-force index over the full embedding set.
// The corpus is small enough (thousands of chunks) that a linear scan per
// query outperforms maintaining an approximate structure.
type MemoryIndex struct {
	metric types.SimilarityMetric

	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewMemoryIndex creates an empty index using the given similarity metric.
func NewMemoryIndex(metric types.SimilarityMetric) *MemoryIndex {
	if metric == "" {
		metric = types.MetricCosine
	}
	return &MemoryIndex{
		metric:  metric,
		vectors: make(map[string][]float32),
	}
}

// BuildMemoryIndex creates an index pre-loaded with the corpus embedding map.
func BuildMemoryIndex(metric types.SimilarityMetric, embeddings map[string][]float32) *MemoryIndex {
	idx := NewMemoryIndex(metric)
	for id, vec := range embeddings {
		idx.vectors[id] = vec
	}
	return idx
}

// Upsert inserts or replaces points.
func (m *MemoryIndex) Upsert(_ context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		if p.ChunkID == "" {
			return fmt.Errorf("point with empty chunk id")
		}
		m.vectors[p.ChunkID] = p.Vector
	}
	return nil
}

// Len returns the number of indexed points.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// Query scans all points and returns the k most similar entries, sorted by
// descending score with ties broken by ascending chunk id.
func (m *MemoryIndex) Query(_ context.Context, vector []float32, k int) ([]Entry, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, 0, len(m.vectors))
	for id, vec := range m.vectors {
		if len(vec) != len(vector) {
			return nil, fmt.Errorf("dimension mismatch: query %d, chunk %s %d",
				len(vector), id, len(vec))
		}
		entries = append(entries, Entry{ChunkID: id, Score: m.similarity(vector, vec)})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ChunkID < entries[j].ChunkID
	})

	if len(entries) > k {
		entries = entries[:k]
	}
	return entries, nil
}

func (m *MemoryIndex) similarity(a, b []float32) float64 {
	dot := dotProduct(a, b)
	if m.metric == types.MetricInnerProduct {
		return dot
	}
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dotProduct(v, v))
}
