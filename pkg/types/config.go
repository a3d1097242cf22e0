// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SimilarityMetric selects the vector similarity measure. It must be declared
// and held fixed per deployment so scores stay comparable across runs.
type SimilarityMetric string

const (
	MetricCosine       SimilarityMetric = "cosine"
	MetricInnerProduct SimilarityMetric = "inner_product"
)

// AIConfig holds shared settings for stages that call the Generative AI API.
type AIConfig struct {
	// Model is the generation model identifier (default "gemini-2.5-flash").
	Model string `json:"model" yaml:"model"`

	// EmbedModel is the embedding model identifier (default "text-embedding-004").
	EmbedModel string `json:"embed_model" yaml:"embed_model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for transient API failures
	// (default 3). Semantic failures are never retried.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Timeout bounds each individual API call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// CorpusConfig holds settings for the corpus store.
type CorpusConfig struct {
	// DBPath is the SQLite database path (default "corpus/scholar.db").
	DBPath string `json:"db_path" yaml:"db_path"`
}

// IndexBackend identifies the vector index implementation.
type IndexBackend string

const (
	IndexMemory IndexBackend = "memory"
	IndexQdrant IndexBackend = "qdrant"
)

// IndexConfig holds settings for the vector index.
type IndexConfig struct {
	// Backend selects the index: memory (exact, built from the corpus at
	// startup) or qdrant.
	Backend IndexBackend `json:"backend" yaml:"backend"`

	// QdrantURL is the Qdrant endpoint (e.g. "http://localhost:6333").
	QdrantURL string `json:"qdrant_url,omitempty" yaml:"qdrant_url,omitempty"`

	// Collection is the Qdrant collection name (default "scholar_chunks").
	Collection string `json:"collection" yaml:"collection"`

	// VectorSize is the embedding dimensionality, used to create the
	// collection and validate vectors (default 768).
	VectorSize int `json:"vector_size" yaml:"vector_size"`
}

// RetrievalConfig holds settings for the retrieval engine.
type RetrievalConfig struct {
	// TopK is the number of candidates retrieved per question (default 5).
	TopK int `json:"top_k" yaml:"top_k"`

	// Metric is the similarity measure: cosine or inner_product.
	Metric SimilarityMetric `json:"metric" yaml:"metric"`

	// DenseWeight and LexicalWeight are the fixed fusion weights for hybrid
	// retrieval. Defaults 1.0 and 0.0 (pure dense). They must be held
	// constant for a given evaluation run.
	DenseWeight   float64 `json:"dense_weight" yaml:"dense_weight"`
	LexicalWeight float64 `json:"lexical_weight" yaml:"lexical_weight"`

	// MaxContextChars bounds the assembled context (default 4000). Candidates
	// are dropped from the tail of the ranked list when the budget is exceeded.
	MaxContextChars int `json:"max_context_chars" yaml:"max_context_chars"`

	// Oversample is the multiple of k fetched from the index to leave room
	// for per-section deduplication (default 4).
	Oversample int `json:"oversample" yaml:"oversample"`
}

// CacheConfig holds settings for the response cache.
type CacheConfig struct {
	// Path is the persisted cache file (default "cache/scholar_cache.json").
	Path string `json:"path" yaml:"path"`

	// TTL is the maximum entry age before recomputation. Zero disables expiry.
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`
}

// EvalConfig holds settings for the evaluation harness.
type EvalConfig struct {
	// QuestionsPath is the labeled question file (YAML or JSON).
	QuestionsPath string `json:"questions_path" yaml:"questions_path"`

	// KValues lists the retrieval depths to evaluate (default 3, 5, 10).
	KValues []int `json:"k_values" yaml:"k_values"`

	// Workers bounds concurrent question processing (default 4) to respect
	// external API rate limits.
	Workers int `json:"workers" yaml:"workers"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	AI        AIConfig        `json:"ai" yaml:"ai"`
	Corpus    CorpusConfig    `json:"corpus" yaml:"corpus"`
	Index     IndexConfig     `json:"index" yaml:"index"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Eval      EvalConfig      `json:"eval" yaml:"eval"`
}
