// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/viper"

	"github.com/pdiddy/scholar-engine/pkg/types"
)

// pipelineConfig assembles the full configuration from viper. Unset keys fall
// through to zero values; each component applies its own documented defaults.
func pipelineConfig() types.PipelineConfig {
	return types.PipelineConfig{
		AI: types.AIConfig{
			Model:      viper.GetString("ai.model"),
			EmbedModel: viper.GetString("ai.embed_model"),
			APIKey:     secretDefault("gemini-api-key", viper.GetString("ai.api_key")),
			MaxRetries: viper.GetInt("ai.max_retries"),
			Timeout:    viper.GetDuration("ai.timeout"),
		},
		Corpus: types.CorpusConfig{
			DBPath: viper.GetString("corpus.db_path"),
		},
		Index: types.IndexConfig{
			Backend:    types.IndexBackend(viper.GetString("index.backend")),
			QdrantURL:  viper.GetString("index.qdrant_url"),
			Collection: viper.GetString("index.collection"),
			VectorSize: viper.GetInt("index.vector_size"),
		},
		Retrieval: types.RetrievalConfig{
			TopK:            viper.GetInt("retrieval.top_k"),
			Metric:          types.SimilarityMetric(viper.GetString("retrieval.metric")),
			DenseWeight:     viper.GetFloat64("retrieval.dense_weight"),
			LexicalWeight:   viper.GetFloat64("retrieval.lexical_weight"),
			MaxContextChars: viper.GetInt("retrieval.max_context_chars"),
			Oversample:      viper.GetInt("retrieval.oversample"),
		},
		Cache: types.CacheConfig{
			Path: viper.GetString("cache.path"),
			TTL:  viper.GetDuration("cache.ttl"),
		},
		Server: types.ServerConfig{
			Addr: viper.GetString("server.addr"),
		},
		Eval: types.EvalConfig{
			QuestionsPath: viper.GetString("eval.questions_path"),
			KValues:       viper.GetIntSlice("eval.k_values"),
			Workers:       viper.GetInt("eval.workers"),
		},
	}
}
