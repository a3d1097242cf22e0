// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pdiddy/scholar-engine/internal/cache"
	"github.com/pdiddy/scholar-engine/internal/corpus"
	"github.com/pdiddy/scholar-engine/internal/llm"
	"github.com/pdiddy/scholar-engine/internal/pipeline"
	"github.com/pdiddy/scholar-engine/internal/retrieval"
	"github.com/pdiddy/scholar-engine/internal/vectorindex"
	"github.com/pdiddy/scholar-engine/pkg/types"
)

// components holds the wired pipeline and the stores behind it.
type components struct {
	store  *corpus.Store
	cache  *cache.Store
	engine *retrieval.Engine
	pipe   *pipeline.Pipeline
}

func (c *components) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// buildIndex constructs the configured vector index. The memory backend loads
// every stored embedding at startup; qdrant connects to a running instance.
func buildIndex(ctx context.Context, store *corpus.Store, cfg types.PipelineConfig) (vectorindex.Index, error) {
	switch cfg.Index.Backend {
	case types.IndexQdrant:
		return vectorindex.NewQdrantIndex(ctx, cfg.Index, cfg.Retrieval.Metric)
	case types.IndexMemory, "":
		embeddings, err := store.AllEmbeddings(ctx)
		if err != nil {
			return nil, err
		}
		if len(embeddings) == 0 {
			fmt.Fprintln(os.Stderr, "warning: no embeddings in corpus; run 'scholar-engine corpus embed' first")
		}
		return vectorindex.BuildMemoryIndex(cfg.Retrieval.Metric, embeddings), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

// buildComponents wires the corpus store, vector index, AI client, response
// cache, retrieval engine, and pipeline from configuration.
func buildComponents(ctx context.Context, cfg types.PipelineConfig) (*components, error) {
	store, err := corpus.NewStore(cfg.Corpus)
	if err != nil {
		return nil, err
	}

	index, err := buildIndex(ctx, store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	responseCache, err := cache.Open(cfg.Cache)
	if err != nil {
		store.Close()
		return nil, err
	}

	client := llm.NewClient(cfg.AI)
	engine := retrieval.NewEngine(client, index, store, cfg.Retrieval)
	pipe := pipeline.New(engine, responseCache, client)

	return &components{store: store, cache: responseCache, engine: engine, pipe: pipe}, nil
}
