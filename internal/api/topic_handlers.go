package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/quiz-console/internal/console"
	"github.com/terra-clan/quiz-console/internal/models"
	"github.com/terra-clan/quiz-console/internal/opstate"
)

// Topic handlers

func (s *Server) handleFetchTopics(w http.ResponseWriter, r *http.Request) {
	s.rearm(console.Topics, opstate.KindFetch)
	if err := s.console.FetchTopics(operationContext(r)); err != nil {
		respondOpError(w, r, "fetch topics", err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(console.Topics, s.console.Topics))
}

func (s *Server) handlePrepareTopicForm(w http.ResponseWriter, r *http.Request) {
	level, err := s.console.PrepareTopicForm(operationContext(r))
	if err != nil {
		respondOpError(w, r, "prepare topic form", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"defaultLevel": level,
		"levels":       s.console.Levels.Items(),
	})
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := s.console.GetTopic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondOpError(w, r, "get topic", err)
		return
	}
	respondJSON(w, http.StatusOK, topic)
}

type createTopicRequest struct {
	Topic     console.TopicInput         `json:"topic"`
	Questions []console.LessonAssignment `json:"questions"`
}

type createTopicResponse struct {
	Topic      models.Topic `json:"topic"`
	Partial    bool         `json:"partial"`
	WorkflowID string       `json:"workflowId,omitempty"`
	Error      string       `json:"error,omitempty"`
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s.rearm(console.Topics, opstate.KindAdd)
	topic, err := s.console.CreateTopic(operationContext(r), req.Topic, req.Questions)

	var partial *console.PartialFailureError
	if errors.As(err, &partial) {
		// The topic exists; the caller must learn that its questions do not
		respondJSON(w, http.StatusMultiStatus, createTopicResponse{
			Topic:      partial.Topic,
			Partial:    true,
			WorkflowID: partial.WorkflowID,
			Error:      partial.Error(),
		})
		return
	}
	if err != nil {
		respondOpError(w, r, "create topic", err)
		return
	}

	respondJSON(w, http.StatusCreated, createTopicResponse{Topic: topic})
}

func (s *Server) handleUpdateTopic(w http.ResponseWriter, r *http.Request) {
	var in console.TopicInput
	if !decodeJSON(w, r, &in) {
		return
	}

	s.rearm(console.Topics, opstate.KindUpdate)
	topic, err := s.console.UpdateTopic(operationContext(r), chi.URLParam(r, "id"), in)
	if err != nil {
		respondOpError(w, r, "update topic", err)
		return
	}
	respondJSON(w, http.StatusOK, topic)
}

func (s *Server) handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	s.rearm(console.Topics, opstate.KindDelete)
	if err := s.console.DeleteTopic(operationContext(r), chi.URLParam(r, "id")); err != nil {
		respondOpError(w, r, "delete topic", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "topic deleted",
	})
}

func (s *Server) handleGetLessons(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.console.Scope().TopicID != id {
		respondOpError(w, r, "get lessons", console.ErrScopeNotLoaded)
		return
	}

	lessons := s.console.Lessons()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"topic":   id,
		"lessons": lessons,
	})
}

type attachRequest struct {
	Questions []string `json:"questions"`
}

func (s *Server) handleAttachToLesson(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lesson, err := strconv.Atoi(chi.URLParam(r, "lesson"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "lesson must be a number")
		return
	}

	var req attachRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s.rearm(console.Topics, opstate.KindAttach)
	submitted, err := s.console.AttachToLesson(operationContext(r), id, lesson, req.Questions)
	if err != nil {
		respondOpError(w, r, "attach questions", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"submitted": submitted,
		"total":     len(submitted),
	})
}

// Workflow handlers

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows := s.console.Workflows()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"workflows": workflows,
		"total":     len(workflows),
	})
}

func (s *Server) handleListOrphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := s.console.PendingOrphans(r.Context())
	if err != nil {
		respondOpError(w, r, "list orphaned topics", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"orphans": orphans,
		"total":   len(orphans),
	})
}
