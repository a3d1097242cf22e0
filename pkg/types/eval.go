// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// TestQuestion is one labeled evaluation question. The ground-truth mapping is
// loaded from an external file and immutable during a run.
type TestQuestion struct {
	// ID numbers the question within the set.
	ID int `json:"id" yaml:"id"`

	// Question is the natural-language question text.
	Question string `json:"question" yaml:"question"`

	// Category classifies the question (e.g. "definition", "comparison").
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// ExpectedConcepts lists keywords an adequate answer should mention,
	// matched case-insensitively for concept coverage.
	ExpectedConcepts []string `json:"expected_concepts,omitempty" yaml:"expected_concepts,omitempty"`

	// RelevantPapers lists the paper ids considered relevant ground truth.
	RelevantPapers []string `json:"relevant_papers" yaml:"relevant_papers"`
}

// EvaluationMetrics aggregates retrieval quality for one value of k over a
// question set. All values are in [0, 1].
type EvaluationMetrics struct {
	// K is the retrieval depth the metrics were computed at.
	K int `json:"k" yaml:"k"`

	// RecallAtK is the mean fraction of relevant papers retrieved.
	RecallAtK float64 `json:"recall_at_k" yaml:"recall_at_k"`

	// PrecisionAtK is the mean fraction of retrieved papers that are relevant.
	PrecisionAtK float64 `json:"precision_at_k" yaml:"precision_at_k"`

	// MRR is the mean reciprocal rank of the first relevant hit.
	MRR float64 `json:"mrr" yaml:"mrr"`

	// Questions is the number of questions the averages cover.
	Questions int `json:"questions" yaml:"questions"`
}

// GenerationMetrics aggregates answer quality over a question set.
type GenerationMetrics struct {
	// ConceptCoverage is the mean fraction of expected concepts present in
	// the generated answers.
	ConceptCoverage float64 `json:"concept_coverage" yaml:"concept_coverage"`

	// CitationRate is the fraction of answers containing at least one
	// resolvable citation marker.
	CitationRate float64 `json:"citation_rate" yaml:"citation_rate"`

	// MeanAnswerLength is the mean answer length in words.
	MeanAnswerLength float64 `json:"mean_answer_length" yaml:"mean_answer_length"`

	// Questions is the number of questions the averages cover.
	Questions int `json:"questions" yaml:"questions"`
}
