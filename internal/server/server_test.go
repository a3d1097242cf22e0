// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scholar-engine/internal/pipeline"
	"github.com/pdiddy/scholar-engine/pkg/types"
)

// stubAsker returns a canned answer or error.
type stubAsker struct {
	answer pipeline.Answer
	err    error
}

func (s *stubAsker) Ask(_ context.Context, question string) (pipeline.Answer, error) {
	if s.err != nil {
		return pipeline.Answer{}, s.err
	}
	return s.answer, nil
}

func postAsk(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAskSuccess(t *testing.T) {
	asker := &stubAsker{answer: pipeline.Answer{
		Text: "Ridge regression adds an L2 penalty [1].",
		Sources: []types.Source{
			{PaperID: "ridge", Title: "Ridge notes", ArxivURL: "https://arxiv.org/abs/1509.09169"},
		},
		CacheHit: true,
	}}
	rec := postAsk(t, NewRouter(asker), `{"question": "what is ridge regression?"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Answer, "L2")
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "ridge", resp.Sources[0].PaperID)
}

func TestAskEmptySourcesSerializeAsArray(t *testing.T) {
	asker := &stubAsker{answer: pipeline.Answer{Text: "No relevant papers found for this query."}}
	rec := postAsk(t, NewRouter(asker), `{"question": "unknown topic"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sources":[]`)
}

func TestAskMalformedBody(t *testing.T) {
	rec := postAsk(t, NewRouter(&stubAsker{}), `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "request", resp.Error.Stage)
}

func TestAskMissingQuestion(t *testing.T) {
	for _, body := range []string{`{}`, `{"question": "   "}`} {
		rec := postAsk(t, NewRouter(&stubAsker{}), body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestAskRetrievalError(t *testing.T) {
	asker := &stubAsker{err: &pipeline.RetrievalError{Err: errors.New("index unavailable")}}
	rec := postAsk(t, NewRouter(asker), `{"question": "q"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "retrieval", resp.Error.Stage)
	assert.Contains(t, resp.Error.Message, "index unavailable")
	assert.Empty(t, resp.Sources)
}

func TestAskGenerationErrorCarriesSources(t *testing.T) {
	asker := &stubAsker{err: &pipeline.GenerationError{
		Sources: []types.Source{{PaperID: "ridge", Title: "Ridge notes"}},
		Err:     errors.New("model overloaded"),
	}}
	rec := postAsk(t, NewRouter(asker), `{"question": "q"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "generation", resp.Error.Stage)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "ridge", resp.Sources[0].PaperID)
}

func TestAskInternalError(t *testing.T) {
	asker := &stubAsker{err: errors.New("unexpected")}
	rec := postAsk(t, NewRouter(asker), `{"question": "q"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal", resp.Error.Stage)
}

func TestHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	NewRouter(&stubAsker{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestAskMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ask", nil)
	rec := httptest.NewRecorder()
	NewRouter(&stubAsker{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
