package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/quiz-console/internal/console"
	"github.com/terra-clan/quiz-console/internal/models"
	"github.com/terra-clan/quiz-console/internal/opstate"
	"github.com/terra-clan/quiz-console/internal/question"
	"github.com/terra-clan/quiz-console/pkg/client"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondOpError maps a console error to a status code. Remote failures keep
// the server's message since that is what the operator sees.
func respondOpError(w http.ResponseWriter, r *http.Request, action string, err error) {
	var apiErr *client.APIError
	var formErr *question.ValidationError

	switch {
	case errors.As(err, &formErr):
		respondError(w, http.StatusBadRequest, "validation_error", formErr.Error())
	case errors.Is(err, question.ErrInvalidForm), errors.Is(err, console.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, console.ErrUnknownEntity), errors.Is(err, console.ErrUnknownKind):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, opstate.ErrBusy):
		respondError(w, http.StatusConflict, "busy", err.Error())
	case errors.Is(err, console.ErrCancelled):
		respondError(w, http.StatusConflict, "cancelled", err.Error())
	case errors.Is(err, console.ErrLevelsNotLoaded), errors.Is(err, console.ErrScopeNotLoaded):
		respondError(w, http.StatusPreconditionFailed, "precondition_failed", err.Error())
	case errors.Is(err, console.ErrRefreshFailed):
		respondError(w, http.StatusBadGateway, "refresh_failed", err.Error())
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusNotFound {
			respondError(w, http.StatusNotFound, "not_found", apiErr.Message)
			return
		}
		respondError(w, http.StatusBadGateway, "remote_error", apiErr.Message)
	default:
		slog.Error("failed to "+action, "error", err, "operator", OperatorFromContext(r.Context()))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

// decodeJSON reads the request body into v, answering 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// rearm dismisses a finished operation before a new attempt. Each request is
// a fresh operator action, so the previous outcome has been seen.
func (s *Server) rearm(entity console.Entity, kind opstate.Kind) {
	statuses, err := s.console.Statuses(entity)
	if err != nil {
		return
	}
	if statuses[kind].Status.IsTerminal() {
		if err := s.console.Dismiss(entity, kind); err != nil {
			slog.Debug("failed to dismiss operation", "entity", entity, "op", kind, "error", err)
		}
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			respondError(w, http.StatusServiceUnavailable, "not_ready", name+" is not ready")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// State handlers

type stateView struct {
	Entity     console.Entity                 `json:"entity"`
	Items      any                            `json:"items"`
	Projection any                            `json:"projection"`
	Predicate  string                         `json:"predicate"`
	Statuses   map[opstate.Kind]opstate.State `json:"statuses"`
}

func viewOf[T models.Entity](entity console.Entity, res *console.Resource[T]) stateView {
	return stateView{
		Entity:     entity,
		Items:      res.Items(),
		Projection: res.Projection(),
		Predicate:  res.Predicate(),
		Statuses:   res.Statuses(),
	}
}

func (s *Server) view(entity console.Entity) (stateView, bool) {
	switch entity {
	case console.Levels:
		return viewOf(entity, s.console.Levels), true
	case console.Topics:
		return viewOf(entity, s.console.Topics), true
	case console.Pools:
		return viewOf(entity, s.console.Pools), true
	case console.Questions:
		return viewOf(entity, s.console.Questions), true
	case console.Learners:
		return viewOf(entity, s.console.Learners), true
	}
	return stateView{}, false
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	entity := console.Entity(chi.URLParam(r, "entity"))
	v, ok := s.view(entity)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "unknown entity")
		return
	}
	respondJSON(w, http.StatusOK, v)
}

type searchRequest struct {
	Predicate string `json:"predicate"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	entity := console.Entity(chi.URLParam(r, "entity"))

	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.console.Search(entity, req.Predicate); err != nil {
		respondOpError(w, r, "search", err)
		return
	}

	v, _ := s.view(entity)
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	entity := console.Entity(chi.URLParam(r, "entity"))
	kind, ok := opstate.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "unknown operation")
		return
	}

	if err := s.console.Dismiss(entity, kind); err != nil {
		respondOpError(w, r, "dismiss operation", err)
		return
	}

	statuses, _ := s.console.Statuses(entity)
	respondJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	entity := console.Entity(chi.URLParam(r, "entity"))
	kind, ok := opstate.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "unknown operation")
		return
	}

	cancelled, err := s.console.Cancel(entity, kind)
	if err != nil {
		respondOpError(w, r, "cancel operation", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{
		"cancelled": cancelled,
	})
}
