// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the ask operation over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/scholar-engine/internal/pipeline"
	"github.com/pdiddy/scholar-engine/pkg/types"
)

// Asker is the question-answering operation the server fronts. The pipeline
// implements it.
type Asker interface {
	Ask(ctx context.Context, question string) (pipeline.Answer, error)
}

// askRequest is the JSON body for POST /ask.
type askRequest struct {
	Question string `json:"question"`
}

// askResponse is the JSON body returned on success.
type askResponse struct {
	Answer  string         `json:"answer"`
	Sources []types.Source `json:"sources"`
}

// errorResponse distinguishes the failing stage so a front end can render an
// appropriate message. Sources is populated for generation failures, where
// the retrieval-derived context is still available.
type errorResponse struct {
	Error   stageError     `json:"error"`
	Sources []types.Source `json:"sources,omitempty"`
}

type stageError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// NewRouter builds the HTTP routes around an Asker.
func NewRouter(asker Asker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealth)
	r.Post("/ask", handleAsk(asker))

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleAsk(asker Asker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: stageError{Stage: "request", Message: "malformed JSON body"},
			})
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: stageError{Stage: "request", Message: "question is required"},
			})
			return
		}

		answer, err := asker.Ask(r.Context(), req.Question)
		if err != nil {
			writeAskError(w, err)
			return
		}

		sources := answer.Sources
		if sources == nil {
			sources = []types.Source{}
		}
		writeJSON(w, http.StatusOK, askResponse{Answer: answer.Text, Sources: sources})
	}
}

func writeAskError(w http.ResponseWriter, err error) {
	var genErr *pipeline.GenerationError
	if errors.As(err, &genErr) {
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:   stageError{Stage: "generation", Message: genErr.Error()},
			Sources: genErr.Sources,
		})
		return
	}

	var retErr *pipeline.RetrievalError
	if errors.As(err, &retErr) {
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error: stageError{Stage: "retrieval", Message: retErr.Error()},
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: stageError{Stage: "internal", Message: err.Error()},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
