// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation maps generated answer text back to the candidate list it
// was grounded on, producing the externally visible source list.
package citation

import (
	"regexp"
	"strconv"

	"github.com/pdiddy/scholar-engine/internal/retrieval"
	"github.com/pdiddy/scholar-engine/pkg/types"
)

// numericMarkerRe matches numeric citation markers like [1], [2], [12]. The
// marker index is 1-based into the ordered candidate list, matching the
// numbering AssembleContext puts in front of each passage.
var numericMarkerRe = regexp.MustCompile(`\[(\d+)\]`)

// Extract resolves citation markers in the answer against the candidate list
// and returns one Source per referenced paper, in first-reference order.
// Markers outside the candidate range are dropped, not fatal.
func Extract(answer string, cands []retrieval.Candidate) []types.Source {
	seenPapers := make(map[string]bool)
	var sources []types.Source

	for _, match := range numericMarkerRe.FindAllStringSubmatch(answer, -1) {
		idx, err := strconv.Atoi(match[1])
		if err != nil || idx < 1 || idx > len(cands) {
			continue
		}
		c := cands[idx-1]
		if seenPapers[c.Paper.ID] {
			continue
		}
		seenPapers[c.Paper.ID] = true
		sources = append(sources, sourceFor(c))
	}
	return sources
}

// HasCitation reports whether the answer contains at least one recognized
// citation marker. The evaluation harness aggregates this into the citation
// rate.
func HasCitation(answer string) bool {
	return numericMarkerRe.MatchString(answer)
}

// FromCandidates returns the full candidate list projected to sources,
// deduplicated by paper in rank order. Used as the fallback when an answer
// carries no resolvable markers, so callers can still show what the answer
// was grounded on.
func FromCandidates(cands []retrieval.Candidate) []types.Source {
	seenPapers := make(map[string]bool)
	sources := make([]types.Source, 0, len(cands))

	for _, c := range cands {
		if seenPapers[c.Paper.ID] {
			continue
		}
		seenPapers[c.Paper.ID] = true
		sources = append(sources, sourceFor(c))
	}
	return sources
}

func sourceFor(c retrieval.Candidate) types.Source {
	return types.Source{
		PaperID:  c.Paper.ID,
		Title:    c.Paper.Title,
		Authors:  c.Paper.Authors,
		Section:  c.Chunk.Section,
		ArxivURL: c.Paper.ArxivURL,
	}
}
