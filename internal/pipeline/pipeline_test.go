// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scholar-engine/internal/cache"
	"github.com/pdiddy/scholar-engine/internal/corpus"
	"github.com/pdiddy/scholar-engine/internal/retrieval"
	"github.com/pdiddy/scholar-engine/internal/vectorindex"
	"github.com/pdiddy/scholar-engine/pkg/types"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

type fakeSource struct {
	chunks map[string]types.Chunk
	papers map[string]types.Paper
}

func (f *fakeSource) GetChunk(_ context.Context, id string) (types.Chunk, error) {
	c, ok := f.chunks[id]
	if !ok {
		return types.Chunk{}, fmt.Errorf("chunk %s: %w", id, corpus.ErrNotFound)
	}
	return c, nil
}

func (f *fakeSource) GetPaper(_ context.Context, id string) (types.Paper, error) {
	p, ok := f.papers[id]
	if !ok {
		return types.Paper{}, fmt.Errorf("paper %s: %w", id, corpus.ErrNotFound)
	}
	return p, nil
}

// scriptedGenerator returns a canned answer per question, counting calls.
type scriptedGenerator struct {
	answers map[string]string
	err     error
	calls   int32
}

func (g *scriptedGenerator) Generate(_ context.Context, question, _ string) (string, error) {
	atomic.AddInt32(&g.calls, 1)
	if g.err != nil {
		return "", g.err
	}
	if a, ok := g.answers[question]; ok {
		return a, nil
	}
	return "generic answer [1]", nil
}

// newTestPipeline wires a two-paper corpus behind a real engine and cache.
func newTestPipeline(t *testing.T, gen Generator) *Pipeline {
	t.Helper()

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"what is ridge regression?": {1, 0, 0},
		"what is the LASSO?":        {0, 1, 0},
	}}
	source := &fakeSource{
		chunks: map[string]types.Chunk{
			"ridge-0000": {ID: "ridge-0000", PaperID: "ridge", Section: "Introduction",
				Text: "Ridge regression adds an L2 penalty."},
			"lasso-0000": {ID: "lasso-0000", PaperID: "lasso", Section: "Introduction",
				Text: "The LASSO uses an L1 penalty."},
		},
		papers: map[string]types.Paper{
			"ridge": {ID: "ridge", Title: "Lecture notes on ridge regression"},
			"lasso": {ID: "lasso", Title: "A survey of LASSO methods"},
		},
	}
	index := vectorindex.BuildMemoryIndex(types.MetricCosine, map[string][]float32{
		"ridge-0000": {1, 0, 0},
		"lasso-0000": {0, 1, 0},
	})
	engine := retrieval.NewEngine(embedder, index, source, types.RetrievalConfig{TopK: 2})

	store, err := cache.Open(types.CacheConfig{Path: filepath.Join(t.TempDir(), "cache.json")})
	require.NoError(t, err)

	return New(engine, store, gen)
}

func TestAskAnswersWithSources(t *testing.T) {
	gen := &scriptedGenerator{answers: map[string]string{
		"what is ridge regression?": "Ridge regression adds an L2 penalty [1].",
		"what is the LASSO?":        "The LASSO uses an L1 penalty and is sparse [1].",
	}}
	p := newTestPipeline(t, gen)
	ctx := context.Background()

	ridge, err := p.Ask(ctx, "what is ridge regression?")
	require.NoError(t, err)
	assert.False(t, ridge.CacheHit)
	assert.Contains(t, ridge.Text, "L2")
	require.NotEmpty(t, ridge.Sources)
	assert.Equal(t, "ridge", ridge.Sources[0].PaperID)

	lasso, err := p.Ask(ctx, "what is the LASSO?")
	require.NoError(t, err)
	assert.Contains(t, lasso.Text, "L1")
	require.NotEmpty(t, lasso.Sources)
	assert.Equal(t, "lasso", lasso.Sources[0].PaperID)

	// The two questions resolve to different papers end to end.
	assert.NotEqual(t, ridge.Sources[0].PaperID, lasso.Sources[0].PaperID)
}

func TestAskCachesAnswer(t *testing.T) {
	gen := &scriptedGenerator{}
	p := newTestPipeline(t, gen)
	ctx := context.Background()

	first, err := p.Ask(ctx, "what is ridge regression?")
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := p.Ask(ctx, "  What is RIDGE regression?  ")
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.Sources, second.Sources)
	assert.Equal(t, int32(1), atomic.LoadInt32(&gen.calls))
}

func TestAskEmptyQuestion(t *testing.T) {
	p := newTestPipeline(t, &scriptedGenerator{})
	_, err := p.Ask(context.Background(), "   ")
	assert.Error(t, err)
}

func TestAskRetrievalFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("quota exceeded")}
	index := vectorindex.NewMemoryIndex(types.MetricCosine)
	engine := retrieval.NewEngine(embedder, index, &fakeSource{}, types.RetrievalConfig{})
	store, err := cache.Open(types.CacheConfig{Path: filepath.Join(t.TempDir(), "cache.json")})
	require.NoError(t, err)

	gen := &scriptedGenerator{}
	p := New(engine, store, gen)

	_, err = p.Ask(context.Background(), "q")
	var retErr *RetrievalError
	require.ErrorAs(t, err, &retErr)
	// Generation never runs when retrieval fails.
	assert.Equal(t, int32(0), atomic.LoadInt32(&gen.calls))
	assert.Equal(t, 0, store.Len())
}

func TestAskGenerationFailureCarriesSources(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("model overloaded")}
	p := newTestPipeline(t, gen)

	_, err := p.Ask(context.Background(), "what is ridge regression?")
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	require.NotEmpty(t, genErr.Sources)
	assert.Equal(t, "ridge", genErr.Sources[0].PaperID)

	// Failures are not cached; a recovered generator answers the retry.
	gen.err = nil
	answer, err := p.Ask(context.Background(), "what is ridge regression?")
	require.NoError(t, err)
	assert.False(t, answer.CacheHit)
	assert.NotEmpty(t, answer.Text)
}

func TestAskNoResults(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	index := vectorindex.NewMemoryIndex(types.MetricCosine)
	engine := retrieval.NewEngine(embedder, index, &fakeSource{}, types.RetrievalConfig{})
	store, err := cache.Open(types.CacheConfig{Path: filepath.Join(t.TempDir(), "cache.json")})
	require.NoError(t, err)

	gen := &scriptedGenerator{}
	p := New(engine, store, gen)

	answer, err := p.Ask(context.Background(), "anything at all")
	require.NoError(t, err)
	assert.Equal(t, noResultsAnswer, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, int32(0), atomic.LoadInt32(&gen.calls))

	// The empty result is itself cached.
	again, err := p.Ask(context.Background(), "anything at all")
	require.NoError(t, err)
	assert.True(t, again.CacheHit)
}

func TestAskFallbackSourcesWithoutMarkers(t *testing.T) {
	gen := &scriptedGenerator{answers: map[string]string{
		"what is ridge regression?": "An answer with no citation markers.",
	}}
	p := newTestPipeline(t, gen)

	answer, err := p.Ask(context.Background(), "what is ridge regression?")
	require.NoError(t, err)
	require.NotEmpty(t, answer.Sources)
	assert.Equal(t, "ridge", answer.Sources[0].PaperID)
}
