// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval turns a question into an ordered, bounded context: it
// encodes the question, queries the vector index, fuses scores, and
// assembles the numbered context window passed to generation.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/scholar-engine/internal/corpus"
	"github.com/pdiddy/scholar-engine/internal/vectorindex"
	"github.com/pdiddy/scholar-engine/pkg/types"
)

const (
	defaultTopK            = 5
	defaultOversample      = 4
	defaultMaxContextChars = 4000
)

// Embedder encodes text into a dense vector. llm.Client implements it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkSource resolves candidate ids to chunk and paper records. The corpus
// store implements it.
type ChunkSource interface {
	GetChunk(ctx context.Context, id string) (types.Chunk, error)
	GetPaper(ctx context.Context, id string) (types.Paper, error)
}

// Candidate is one ranked retrieval result with its resolved metadata.
type Candidate struct {
	Chunk types.Chunk
	Paper types.Paper
	Score float64
}

// Engine ranks corpus chunks against questions.
type Engine struct {
	embedder Embedder
	index    vectorindex.Index
	source   ChunkSource
	cfg      types.RetrievalConfig
}

// NewEngine creates a retrieval engine. Zero-valued config fields take the
// documented defaults (k=5, dense weight 1.0, context budget 4000 chars).
func NewEngine(embedder Embedder, index vectorindex.Index, source ChunkSource, cfg types.RetrievalConfig) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.Oversample <= 0 {
		cfg.Oversample = defaultOversample
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = defaultMaxContextChars
	}
	if cfg.DenseWeight == 0 && cfg.LexicalWeight == 0 {
		cfg.DenseWeight = 1.0
	}
	return &Engine{embedder: embedder, index: index, source: source, cfg: cfg}
}

// TopK returns the configured default retrieval depth.
func (e *Engine) TopK() int { return e.cfg.TopK }

// Retrieve returns up to k candidates for the question, sorted by descending
// fused score with ties broken by ascending chunk id. At most one chunk per
// paper-section pair is returned unless k exceeds the distinct-pair count, in
// which case remaining slots fill from next-best chunks regardless of section.
//
// Embedding and index failures abort the call with a typed error; no context
// is fabricated on failure.
func (e *Engine) Retrieve(ctx context.Context, question string, k int) ([]Candidate, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("empty question")
	}
	if k <= 0 {
		k = e.cfg.TopK
	}

	vector, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}

	entries, err := e.index.Query(ctx, vector, k*e.cfg.Oversample)
	if err != nil {
		return nil, &IndexQueryError{Err: err}
	}

	candidates, err := e.resolve(ctx, question, entries)
	if err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	candidates = dedupeBySection(candidates, k)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// resolve looks up chunk and paper records for index entries and applies
// score fusion. Entries whose chunk has vanished from the corpus are skipped;
// the index may lag an ingestion run.
func (e *Engine) resolve(ctx context.Context, question string, entries []vectorindex.Entry) ([]Candidate, error) {
	papers := make(map[string]types.Paper)
	candidates := make([]Candidate, 0, len(entries))

	for _, entry := range entries {
		chunk, err := e.source.GetChunk(ctx, entry.ChunkID)
		if err != nil {
			if errors.Is(err, corpus.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolving candidate %s: %w", entry.ChunkID, err)
		}

		paper, ok := papers[chunk.PaperID]
		if !ok {
			paper, err = e.source.GetPaper(ctx, chunk.PaperID)
			if err != nil {
				return nil, fmt.Errorf("resolving paper %s: %w", chunk.PaperID, err)
			}
			papers[chunk.PaperID] = paper
		}

		score := e.cfg.DenseWeight * entry.Score
		if e.cfg.LexicalWeight > 0 {
			score += e.cfg.LexicalWeight * lexicalScore(question, chunk.Text, chunk.Section)
		}

		candidates = append(candidates, Candidate{Chunk: chunk, Paper: paper, Score: score})
	}
	return candidates, nil
}

func sortCandidates(cands []Candidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Chunk.ID < cands[j].Chunk.ID
	})
}

// dedupeBySection keeps the best chunk per paper-section pair, then fills any
// remaining slots up to k from the skipped chunks in rank order. Input and
// output are rank-sorted.
func dedupeBySection(cands []Candidate, k int) []Candidate {
	type pair struct{ paper, section string }

	seen := make(map[pair]bool)
	kept := make([]Candidate, 0, len(cands))
	var overflow []Candidate

	for _, c := range cands {
		key := pair{c.Chunk.PaperID, c.Chunk.Section}
		if seen[key] {
			overflow = append(overflow, c)
			continue
		}
		seen[key] = true
		kept = append(kept, c)
	}

	for _, c := range overflow {
		if len(kept) >= k {
			break
		}
		kept = append(kept, c)
	}

	sortCandidates(kept)
	return kept
}

// Projection returns the scoring records for a ranked candidate list.
func Projection(cands []Candidate) []types.RetrievalCandidate {
	out := make([]types.RetrievalCandidate, 0, len(cands))
	for _, c := range cands {
		out = append(out, types.RetrievalCandidate{ChunkID: c.Chunk.ID, Score: c.Score})
	}
	return out
}

// AssembleContext formats candidates as numbered "[i]" passages, bounded by
// the configured character budget. When the budget is exceeded whole
// candidates are dropped from the tail of the ranked list; a single oversized
// first passage is hard-truncated rather than dropped.
func (e *Engine) AssembleContext(cands []Candidate) string {
	var b strings.Builder

	for i, c := range cands {
		block := fmt.Sprintf("[%d] %s", i+1, c.Chunk.Text)
		if i == 0 && len(block) > e.cfg.MaxContextChars {
			b.WriteString(block[:e.cfg.MaxContextChars])
			break
		}
		// +2 for the separating blank line.
		if b.Len()+len(block)+2 > e.cfg.MaxContextChars && b.Len() > 0 {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block)
	}
	return b.String()
}
