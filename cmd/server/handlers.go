package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mahavihara/tutor/internal/platform/cache"
	"github.com/mahavihara/tutor/internal/platform/database"
	"github.com/mahavihara/tutor/internal/quiz"
	"github.com/mahavihara/tutor/internal/tutor"
)

type server struct {
	orc   *tutor.Orchestrator
	db    *database.DB
	cache *cache.Cache
}

// newMux creates the HTTP router.
func newMux(s *server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("POST /v1/sessions", s.handleStartSession)
	mux.HandleFunc("POST /v1/sessions/{id}/chat", s.handleChat)
	mux.HandleFunc("POST /v1/sessions/{id}/evidence", s.handleEvidence)
	mux.HandleFunc("GET /v1/sessions/{id}/graph", s.handleGraph)
	mux.HandleFunc("GET /v1/sessions/{id}/graph/ws", s.handleGraphFeed)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.cache != nil {
		if err := s.cache.HealthCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (s *server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	snap, err := s.orc.StartSession(r.Context(), req.SessionID)
	if err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := s.orc.Advance(r.Context(), r.PathValue("id"), req.Message)
	if err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleEvidence(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConceptID string `json:"concept_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	mastery, err := s.orc.ApplyEvidence(r.Context(), r.PathValue("id"), req.ConceptID)
	if err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"concept_id": req.ConceptID,
		"mastery":    mastery,
	})
}

func (s *server) handleGraph(w http.ResponseWriter, r *http.Request) {
	state, err := s.orc.GraphState(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.orc.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeOrchestratorError maps engine errors to HTTP statuses.
func (s *server) writeOrchestratorError(w http.ResponseWriter, err error) {
	var validation *tutor.ValidationError
	var insufficient *quiz.InsufficientBankError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.Is(err, tutor.ErrUnknownSession):
		writeError(w, http.StatusNotFound, "unknown session")
	case errors.As(err, &insufficient):
		writeError(w, http.StatusConflict, insufficient.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
