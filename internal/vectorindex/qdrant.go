// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vectorindex

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/pdiddy/scholar-engine/pkg/types"
)

// QdrantIndex implements Index against a Qdrant collection. Chunk ids are not
// valid Qdrant point ids, so each point uses a deterministic UUID derived from
// the chunk id and carries the chunk id in its payload.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantIndex connects to Qdrant at urlStr ("http://host:port"; the gRPC
// port is derived as HTTP port + 1) and ensures the collection exists with
// the configured vector size and metric.
func NewQdrantIndex(ctx context.Context, cfg types.IndexConfig, metric types.SimilarityMetric) (*QdrantIndex, error) {
	parsedURL, err := url.Parse(cfg.QdrantURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := 6334
	if parsedURL.Port() != "" {
		if httpPort, err := strconv.Atoi(parsedURL.Port()); err == nil {
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("creating Qdrant client: %w", err)
	}

	idx := &QdrantIndex{client: client, collection: cfg.Collection}
	if idx.collection == "" {
		idx.collection = "scholar_chunks"
	}

	if err := idx.ensureCollection(ctx, cfg.VectorSize, metric); err != nil {
		return nil, err
	}
	return idx, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context, vectorSize int, metric types.SimilarityMetric) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", q.collection, err)
	}
	if exists {
		return nil
	}

	distance := qdrant.Distance_Cosine
	if metric == types.MetricInnerProduct {
		distance = qdrant.Distance_Dot
	}
	if vectorSize <= 0 {
		vectorSize = 768
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: distance,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", q.collection, err)
	}
	return nil
}

// pointID derives the deterministic Qdrant point id for a chunk.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

// Upsert inserts or replaces points.
func (q *QdrantIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(p.ChunkID)),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{"chunk_id": p.ChunkID}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         qdrantPoints,
	})
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

// Query returns the k nearest entries. Qdrant orders by score already; ties
// are re-broken by ascending chunk id for reproducible rankings.
func (q *QdrantIndex) Query(ctx context.Context, vector []float32, k int) ([]Entry, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	limit := uint64(k)
	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", q.collection, err)
	}

	entries := make([]Entry, 0, len(scored))
	for _, point := range scored {
		chunkID := ""
		if payload := point.GetPayload(); payload != nil {
			if v, ok := payload["chunk_id"]; ok {
				chunkID = v.GetStringValue()
			}
		}
		if chunkID == "" {
			continue
		}
		entries = append(entries, Entry{ChunkID: chunkID, Score: float64(point.GetScore())})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ChunkID < entries[j].ChunkID
	})
	return entries, nil
}
