// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "github.com/pdiddy/scholar-engine/pkg/types"

// RetrievalError reports that retrieval failed before generation was
// attempted (embedding or index failure). No answer is fabricated.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string { return "retrieval failed: " + e.Err.Error() }
func (e *RetrievalError) Unwrap() error { return e.Err }

// GenerationError reports that the language-model call failed after
// retrieval succeeded. Sources carries the retrieval-derived source list so
// callers can still show the partial context.
type GenerationError struct {
	Sources []types.Source
	Err     error
}

func (e *GenerationError) Error() string { return "generation failed: " + e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }
