package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/quiz-console/internal/console"
	"github.com/terra-clan/quiz-console/internal/opstate"
	"github.com/terra-clan/quiz-console/internal/question"
)

// Question handlers

func (s *Server) handleFetchQuestions(w http.ResponseWriter, r *http.Request) {
	var scope console.QuestionScope
	if !decodeJSON(w, r, &scope) {
		return
	}

	s.rearm(console.Questions, opstate.KindFetch)
	if err := s.console.FetchQuestions(operationContext(r), scope); err != nil {
		respondOpError(w, r, "fetch questions", err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(console.Questions, s.console.Questions))
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	form, err := s.console.GetQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondOpError(w, r, "get question", err)
		return
	}
	respondJSON(w, http.StatusOK, form)
}

func (s *Server) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var form question.Form
	if !decodeJSON(w, r, &form) {
		return
	}

	s.rearm(console.Questions, opstate.KindAdd)
	q, err := s.console.AddQuestion(operationContext(r), &form)
	if err != nil {
		respondOpError(w, r, "add question", err)
		return
	}
	respondJSON(w, http.StatusCreated, q)
}

func (s *Server) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var form question.Form
	if !decodeJSON(w, r, &form) {
		return
	}

	s.rearm(console.Questions, opstate.KindUpdate)
	q, err := s.console.UpdateQuestion(operationContext(r), chi.URLParam(r, "id"), &form)
	if err != nil {
		respondOpError(w, r, "update question", err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	s.rearm(console.Questions, opstate.KindDelete)
	if err := s.console.DeleteQuestion(operationContext(r), chi.URLParam(r, "id")); err != nil {
		respondOpError(w, r, "delete question", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "question deleted",
	})
}
