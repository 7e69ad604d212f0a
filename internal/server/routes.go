package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	apperrors "voice-agent/internal/common/errors"
	"voice-agent/internal/common/validation"
	"voice-agent/internal/models"
)

const maxBodyBytes = 64 << 10

type commandRequest struct {
	Transcript string      `json:"transcript"`
	SessionID  string      `json:"sessionId"`
	EmployeeID string      `json:"employeeId"`
	Role       models.Role `json:"role"`
}

type searchRequest struct {
	Query  string   `json:"query"`
	Agents []string `json:"agents"`
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/voice/command", s.handleCommand)
	mux.HandleFunc("POST /api/voice/search", s.handleSearch)
	mux.HandleFunc("GET /ws/speech", s.handleSpeech)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics)
	}
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readValidated(w, r, validation.ValidateCommandRequest)
	if !ok {
		return
	}

	var req commandRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, apperrors.NewInvalidRequestError(err.Error()))
		return
	}

	ctx := r.Context()
	if req.SessionID != "" || req.EmployeeID != "" {
		ctx = models.WithSession(ctx, &models.Session{
			ID:           req.SessionID,
			EmployeeID:   req.EmployeeID,
			Role:         req.Role,
			LastActivity: time.Now(),
		})
	}

	writeJSON(w, http.StatusOK, s.deps.Commands.ProcessCommand(ctx, req.Transcript))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readValidated(w, r, validation.ValidateSearchRequest)
	if !ok {
		return
	}

	var req searchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, apperrors.NewInvalidRequestError(err.Error()))
		return
	}

	res := s.deps.Search.Run(r.Context(), req.Query, req.Agents)
	if !res.Success {
		writeJSON(w, http.StatusBadRequest, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failures := make(map[string]string)
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		s.logger.Warn("readiness check failed", map[string]interface{}{
			"checks": failures,
		})
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not ready",
			"checks": failures,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// readValidated reads the request body and checks it against a schema,
// answering 400 itself when the body is unusable.
func (s *Server) readValidated(w http.ResponseWriter, r *http.Request, validate func([]byte) (*validation.ValidationResult, error)) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, apperrors.NewInvalidRequestError(err.Error()))
		return nil, false
	}

	result, err := validate(body)
	if err != nil {
		writeError(w, apperrors.NewInvalidRequestError(err.Error()))
		return nil, false
	}
	if !result.Valid {
		s.logger.Warn("rejected request", map[string]interface{}{
			"path":   r.URL.Path,
			"errors": result.Error(),
		})
		writeError(w, apperrors.NewInvalidRequestError(result.Error()))
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err *apperrors.StandardError) {
	writeJSON(w, apperrors.HTTPStatus(err.Code), map[string]interface{}{
		"success": false,
		"error":   err,
	})
}
