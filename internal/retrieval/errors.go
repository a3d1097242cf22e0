// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

// EmbeddingError reports that the question could not be encoded. Retrieval
// aborts; no context is fabricated.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return "embedding question: " + e.Err.Error() }
func (e *EmbeddingError) Unwrap() error { return e.Err }

// IndexQueryError reports that the vector index could not be queried.
type IndexQueryError struct {
	Err error
}

func (e *IndexQueryError) Error() string { return "querying vector index: " + e.Err.Error() }
func (e *IndexQueryError) Unwrap() error { return e.Err }
