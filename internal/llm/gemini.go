// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm implements the Embedder and Generator collaborator contracts
// against the Gemini API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/scholar-engine/internal/httputil"
	"github.com/pdiddy/scholar-engine/pkg/types"
)

// geminiAPIBase is the Gemini API root. Package-level var for test substitution.
var geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta"

const (
	defaultModel      = "gemini-2.5-flash"
	defaultEmbedModel = "text-embedding-004"
	defaultTimeout    = 60 * time.Second

	// maxEmbedBatch is the Gemini batchEmbedContents request limit.
	maxEmbedBatch = 100
)

// Client calls the Gemini API for embeddings and grounded generation.
type Client struct {
	cfg    types.AIConfig
	client *http.Client
}

// NewClient creates a Gemini API client from cfg, applying defaults for
// unset fields.
func NewClient(cfg types.AIConfig) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = defaultEmbedModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Gemini API JSON structures.
type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type embedRequest struct {
	Model   string        `json:"model,omitempty"`
	Content geminiContent `json:"content"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

type batchEmbedRequest struct {
	Requests []embedRequest `json:"requests"`
}

type batchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

type generateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// post sends a JSON request to the given model method and decodes the
// response into out. Transient failures are retried with backoff.
func (c *Client) post(ctx context.Context, model, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:%s", geminiAPIBase, model, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := httputil.DoWithRetry(ctx, c.client, req, c.cfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("Gemini API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("Gemini API returned HTTP %d: %s", resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing Gemini response: %w", err)
	}
	return nil
}

// Embed encodes one text into a dense vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}

	var out embedResponse
	payload := embedRequest{Content: geminiContent{Parts: []geminiPart{{Text: text}}}}
	if err := c.post(ctx, c.cfg.EmbedModel, "embedContent", payload, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	return out.Embedding.Values, nil
}

// EmbedBatch encodes texts in API-sized batches and returns one vector per
// input, in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))

		reqs := make([]embedRequest, 0, end-start)
		for _, text := range texts[start:end] {
			reqs = append(reqs, embedRequest{
				Model:   "models/" + c.cfg.EmbedModel,
				Content: geminiContent{Parts: []geminiPart{{Text: text}}},
			})
		}

		var out batchEmbedResponse
		if err := c.post(ctx, c.cfg.EmbedModel, "batchEmbedContents", batchEmbedRequest{Requests: reqs}, &out); err != nil {
			return nil, err
		}
		if len(out.Embeddings) != end-start {
			return nil, fmt.Errorf("expected %d embeddings, got %d", end-start, len(out.Embeddings))
		}
		for _, e := range out.Embeddings {
			vectors = append(vectors, e.Values)
		}
	}
	return vectors, nil
}

// Generate produces an answer for the question grounded on the assembled
// context. The context must already be retrieval-ranked and numbered;
// Generate never fabricates one.
func (c *Client) Generate(ctx context.Context, question, contextText string) (string, error) {
	prompt, err := BuildPrompt(question, contextText)
	if err != nil {
		return "", err
	}

	var out generateResponse
	payload := generateRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}}
	if err := c.post(ctx, c.cfg.Model, "generateContent", payload, &out); err != nil {
		return "", err
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty generation response")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
