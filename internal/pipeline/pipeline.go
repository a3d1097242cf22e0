// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates one question-answering run: cache lookup,
// retrieval, context assembly, generation, and citation extraction. Within a
// run retrieval always completes (or fails) before generation is invoked.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/scholar-engine/internal/cache"
	"github.com/pdiddy/scholar-engine/internal/citation"
	"github.com/pdiddy/scholar-engine/internal/retrieval"
	"github.com/pdiddy/scholar-engine/pkg/types"
)

// noResultsAnswer is returned (and cached) when retrieval finds nothing.
const noResultsAnswer = "No relevant papers found for this query."

// Generator produces an answer grounded on an assembled context. llm.Client
// implements it.
type Generator interface {
	Generate(ctx context.Context, question, contextText string) (string, error)
}

// Answer is the result of one ask operation.
type Answer struct {
	Text     string         `json:"answer"`
	Sources  []types.Source `json:"sources"`
	CacheHit bool           `json:"cache_hit,omitempty"`
}

// Pipeline wires the retrieval engine, response cache, and generator.
type Pipeline struct {
	engine    *retrieval.Engine
	store     *cache.Store
	generator Generator
}

// New creates a pipeline.
func New(engine *retrieval.Engine, store *cache.Store, generator Generator) *Pipeline {
	return &Pipeline{engine: engine, store: store, generator: generator}
}

// Ask answers a question, consulting the cache first. Failures carry a
// stage-typed error (RetrievalError or GenerationError) so callers can
// render an appropriate message.
func (p *Pipeline) Ask(ctx context.Context, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, fmt.Errorf("empty question")
	}

	text, sources, hit, err := p.store.GetOrCompute(ctx, question, func(ctx context.Context) (string, []types.Source, error) {
		return p.compute(ctx, question)
	})
	if err != nil {
		return Answer{}, err
	}
	return Answer{Text: text, Sources: sources, CacheHit: hit}, nil
}

func (p *Pipeline) compute(ctx context.Context, question string) (string, []types.Source, error) {
	cands, err := p.engine.Retrieve(ctx, question, 0)
	if err != nil {
		return "", nil, &RetrievalError{Err: err}
	}
	if len(cands) == 0 {
		return noResultsAnswer, []types.Source{}, nil
	}

	contextText := p.engine.AssembleContext(cands)

	text, err := p.generator.Generate(ctx, question, contextText)
	if err != nil {
		return "", nil, &GenerationError{Sources: citation.FromCandidates(cands), Err: err}
	}

	sources := citation.Extract(text, cands)
	if len(sources) == 0 {
		// No resolvable markers in the answer; fall back to everything the
		// answer was grounded on.
		sources = citation.FromCandidates(cands)
	}
	return text, sources, nil
}
