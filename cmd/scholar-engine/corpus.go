// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scholar-engine/internal/corpus"
	"github.com/pdiddy/scholar-engine/internal/llm"
	"github.com/pdiddy/scholar-engine/internal/vectorindex"
	"github.com/pdiddy/scholar-engine/pkg/types"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Build and inspect the paper corpus",
	Long: `Corpus manages the chunk store behind retrieval. Ingest loads a processed
chunk dump into SQLite, embed backfills dense vectors for chunks that have
none, and stats summarizes the store.`,
}

var corpusIngestCmd = &cobra.Command{
	Use:   "ingest <chunks.json>",
	Short: "Load a processed chunk dump into the corpus store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := corpus.NewStore(pipelineConfig().Corpus)
		if err != nil {
			return err
		}
		defer store.Close()

		_, err = store.Ingest(cmd.Context(), args[0], os.Stdout)
		return err
	},
}

var corpusEmbedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Backfill embeddings for chunks without vectors",
	Long: `Embed encodes every chunk that has no stored vector and persists the
results. With the qdrant backend the new vectors are also upserted into the
collection; the memory backend picks them up at the next startup.`,
	RunE: runCorpusEmbed,
}

func runCorpusEmbed(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	ctx := cmd.Context()

	store, err := corpus.NewStore(cfg.Corpus)
	if err != nil {
		return err
	}
	defer store.Close()

	chunks, err := store.MissingEmbeddings(ctx)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		fmt.Println("all chunks already embedded")
		return nil
	}
	fmt.Fprintf(os.Stderr, "embedding %d chunks\n", len(chunks))

	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}

	client := llm.NewClient(cfg.AI)
	vectors, err := client.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	byID := make(map[string][]float32, len(chunks))
	for i, c := range chunks {
		byID[c.ID] = vectors[i]
	}
	if err := store.StoreEmbeddings(ctx, byID); err != nil {
		return err
	}
	fmt.Printf("embedded %d chunks\n", len(chunks))

	if cfg.Index.Backend == types.IndexQdrant {
		return upsertToQdrant(ctx, cfg, byID)
	}
	return nil
}

func upsertToQdrant(ctx context.Context, cfg types.PipelineConfig, vectors map[string][]float32) error {
	index, err := vectorindex.NewQdrantIndex(ctx, cfg.Index, cfg.Retrieval.Metric)
	if err != nil {
		return err
	}

	points := make([]vectorindex.Point, 0, len(vectors))
	for id, vec := range vectors {
		points = append(points, vectorindex.Point{ChunkID: id, Vector: vec})
	}
	if err := index.Upsert(ctx, points); err != nil {
		return err
	}
	fmt.Printf("upserted %d points to qdrant\n", len(points))
	return nil
}

var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the corpus store",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := corpus.NewStore(pipelineConfig().Corpus)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.CorpusStats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("papers:   %d\n", stats.Papers)
		fmt.Printf("chunks:   %d\n", stats.Chunks)
		fmt.Printf("embedded: %d\n", stats.Embedded)
		return nil
	},
}

func init() {
	corpusCmd.AddCommand(corpusIngestCmd)
	corpusCmd.AddCommand(corpusEmbedCmd)
	corpusCmd.AddCommand(corpusStatsCmd)
	rootCmd.AddCommand(corpusCmd)
}
