// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the scholar-engine pipeline:
// the corpus records (Paper, Chunk), the retrieval and citation projections
// (RetrievalCandidate, Source), the cache entry format, and the evaluation
// records. See docs/ARCHITECTURE § Data Structures.
package types

// Paper holds metadata for one paper in the corpus. Papers are immutable
// once ingested; the corpus store owns the id → Paper mapping.
type Paper struct {
	// ID is the arXiv identifier including version (e.g. "1509.09169v8").
	ID string `json:"id" yaml:"id" db:"id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title" db:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// ArxivURL is the abstract page URL, derived once at ingestion from the
	// versionless paper id.
	ArxivURL string `json:"arxiv_url" yaml:"arxiv_url" db:"arxiv_url"`
}

// Chunk is one processed passage of a paper. A chunk belongs to exactly one
// paper; chunk ids are unique within the corpus and stable across runs.
type Chunk struct {
	// ID is the stable chunk identifier (e.g. "1509.09169v8-0003").
	ID string `json:"id" yaml:"id" db:"id"`

	// PaperID references the owning Paper.
	PaperID string `json:"paper_id" yaml:"paper_id" db:"paper_id"`

	// Section is the heading under which the passage was found.
	Section string `json:"section" yaml:"section" db:"section"`

	// Index is the zero-based position of the chunk within its paper.
	Index int `json:"chunk_index" yaml:"chunk_index" db:"chunk_index"`

	// Text is the passage text.
	Text string `json:"text" yaml:"text" db:"text"`

	// Embedding is the fixed-length dense vector for the passage. Empty until
	// the embedding backfill has run.
	Embedding []float32 `json:"embedding,omitempty" yaml:"embedding,omitempty"`

	// TokenCount is the approximate token length of Text.
	TokenCount int `json:"token_count" yaml:"token_count" db:"token_count"`
}

// RetrievalCandidate is the transient per-query scoring record. Score is a
// similarity in the range fixed by the configured metric; candidate lists are
// always sorted by descending score with ties broken by ascending chunk id.
type RetrievalCandidate struct {
	ChunkID string  `json:"chunk_id" yaml:"chunk_id"`
	Score   float64 `json:"score" yaml:"score"`
}

// Source is the externally visible citation target: the per-paper projection
// of one or more retrieval candidates. A source list returned from a single
// retrieval never contains two entries for the same paper.
type Source struct {
	// PaperID identifies the cited paper; used for deduplication.
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// Title is the cited paper's title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the cited paper's authors.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Section is the section of the first cited passage.
	Section string `json:"section,omitempty" yaml:"section,omitempty"`

	// ArxivURL links to the paper's abstract page.
	ArxivURL string `json:"arxiv_url,omitempty" yaml:"arxiv_url,omitempty"`
}
