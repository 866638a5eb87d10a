package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/deepfetch/internal/pipeline"
)

const (
	msgNotConfigured = "AI service is not properly configured or initialized."
	msgNoQuery       = "No query provided"
	msgTooLarge      = "Request body too large"

	// maxQueryBodyBytes caps the /api/query request body.
	maxQueryBodyBytes = 1 << 20
)

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.querier == nil || !s.querier.Ready() {
		respondWithError(w, http.StatusServiceUnavailable, msgNotConfigured)
		return
	}
	var req queryRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBodyBytes)).Decode(&req)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondWithError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	}
	if err != nil || strings.TrimSpace(req.Query) == "" {
		respondWithError(w, http.StatusBadRequest, msgNoQuery)
		return
	}

	res, err := s.querier.Handle(r.Context(), req.Query)
	switch {
	case errors.Is(err, pipeline.ErrUnavailable):
		respondWithError(w, http.StatusServiceUnavailable, msgNotConfigured)
		return
	case errors.Is(err, pipeline.ErrEmptyQuery):
		respondWithError(w, http.StatusBadRequest, msgNoQuery)
		return
	case err != nil:
		log.Error().Err(err).Msg("query failed")
		respondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if res.Sources == nil {
		res.Sources = []string{}
	}
	respondWithJSON(w, http.StatusOK, res)
}

type healthResponse struct {
	State string `json:"status"`
	Status
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	code := http.StatusOK
	if !s.status.Healthy() {
		code = http.StatusServiceUnavailable
	}
	respondWithJSON(w, code, healthResponse{State: "ok", Status: s.status})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("encode response")
		code = http.StatusInternalServerError
		response = []byte(`{"error":"Internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
