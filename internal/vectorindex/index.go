// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vectorindex provides nearest-neighbour search over chunk
// embeddings. Two implementations exist: an exact in-memory index built from
// the corpus at startup, and a Qdrant-backed index for deployments with an
// external vector database.
package vectorindex

import "context"

// Point is a vector with its owning chunk id, as supplied to Upsert.
type Point struct {
	ChunkID string
	Vector  []float32
}

// Entry is one ranked result from a Query: the chunk id and its similarity
// score under the index's configured metric.
type Entry struct {
	ChunkID string
	Score   float64
}

// Index is the vector index contract consumed by the retrieval engine.
// Query results are sorted by descending score; implementations must break
// score ties by ascending chunk id so rankings are reproducible.
type Index interface {
	// Upsert inserts or replaces points.
	Upsert(ctx context.Context, points []Point) error

	// Query returns the k nearest entries to the given vector.
	Query(ctx context.Context, vector []float32, k int) ([]Entry, error)
}
