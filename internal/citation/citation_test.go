// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scholar-engine/internal/retrieval"
	"github.com/pdiddy/scholar-engine/pkg/types"
)

func testCandidates() []retrieval.Candidate {
	return []retrieval.Candidate{
		{
			Chunk: types.Chunk{ID: "ridge-0000", PaperID: "ridge", Section: "Introduction"},
			Paper: types.Paper{ID: "ridge", Title: "Lecture notes on ridge regression",
				Authors: []string{"W. van Wieringen"}, ArxivURL: "https://arxiv.org/abs/1509.09169"},
		},
		{
			Chunk: types.Chunk{ID: "lasso-0000", PaperID: "lasso", Section: "Methods"},
			Paper: types.Paper{ID: "lasso", Title: "A survey of LASSO methods"},
		},
		{
			Chunk: types.Chunk{ID: "ridge-0002", PaperID: "ridge", Section: "Shrinkage"},
			Paper: types.Paper{ID: "ridge", Title: "Lecture notes on ridge regression"},
		},
	}
}

func TestExtractSingleMarker(t *testing.T) {
	sources := Extract("Ridge regression adds an L2 penalty [1].", testCandidates())
	require.Len(t, sources, 1)
	assert.Equal(t, "ridge", sources[0].PaperID)
	assert.Equal(t, "Introduction", sources[0].Section)
	assert.Equal(t, "https://arxiv.org/abs/1509.09169", sources[0].ArxivURL)
}

func TestExtractPreservesFirstReferenceOrder(t *testing.T) {
	sources := Extract("The LASSO [2] differs from ridge [1].", testCandidates())
	require.Len(t, sources, 2)
	assert.Equal(t, "lasso", sources[0].PaperID)
	assert.Equal(t, "ridge", sources[1].PaperID)
}

func TestExtractDeduplicatesByPaper(t *testing.T) {
	// [1] and [3] point at different chunks of the same paper.
	sources := Extract("Shrinkage [3] follows from the penalty [1].", testCandidates())
	require.Len(t, sources, 1)
	assert.Equal(t, "ridge", sources[0].PaperID)
	assert.Equal(t, "Shrinkage", sources[0].Section)
}

func TestExtractDropsOutOfRangeMarkers(t *testing.T) {
	sources := Extract("See [5] and [0] for details, also [2].", testCandidates())
	require.Len(t, sources, 1)
	assert.Equal(t, "lasso", sources[0].PaperID)

	assert.Empty(t, Extract("Only bad markers here [9].", testCandidates()))
}

func TestExtractNoMarkers(t *testing.T) {
	assert.Empty(t, Extract("An answer without any markers.", testCandidates()))
	assert.Empty(t, Extract("", testCandidates()))
}

func TestHasCitation(t *testing.T) {
	assert.True(t, HasCitation("grounded claim [1]"))
	assert.True(t, HasCitation("even out of range counts [42]"))
	assert.False(t, HasCitation("no markers"))
	assert.False(t, HasCitation("brackets without digits [a]"))
}

func TestFromCandidates(t *testing.T) {
	sources := FromCandidates(testCandidates())
	require.Len(t, sources, 2)
	assert.Equal(t, "ridge", sources[0].PaperID)
	assert.Equal(t, "lasso", sources[1].PaperID)

	assert.Empty(t, FromCandidates(nil))
}
