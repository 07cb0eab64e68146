package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/quiz-console/internal/console"
	"github.com/terra-clan/quiz-console/internal/models"
	"github.com/terra-clan/quiz-console/internal/opstate"
)

// Catalog handlers: levels, pools and learners

func (s *Server) handleFetchLevels(w http.ResponseWriter, r *http.Request) {
	s.rearm(console.Levels, opstate.KindFetch)
	if err := s.console.FetchLevels(operationContext(r)); err != nil {
		respondOpError(w, r, "fetch levels", err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(console.Levels, s.console.Levels))
}

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	level, err := s.console.GetLevel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondOpError(w, r, "get level", err)
		return
	}
	respondJSON(w, http.StatusOK, level)
}

func (s *Server) handleAddLevel(w http.ResponseWriter, r *http.Request) {
	var in models.LevelInput
	if !decodeJSON(w, r, &in) {
		return
	}

	s.rearm(console.Levels, opstate.KindAdd)
	level, err := s.console.AddLevel(operationContext(r), in)
	if err != nil {
		respondOpError(w, r, "add level", err)
		return
	}
	respondJSON(w, http.StatusCreated, level)
}

func (s *Server) handleUpdateLevel(w http.ResponseWriter, r *http.Request) {
	var in models.LevelInput
	if !decodeJSON(w, r, &in) {
		return
	}

	s.rearm(console.Levels, opstate.KindUpdate)
	level, err := s.console.UpdateLevel(operationContext(r), chi.URLParam(r, "id"), in)
	if err != nil {
		respondOpError(w, r, "update level", err)
		return
	}
	respondJSON(w, http.StatusOK, level)
}

func (s *Server) handleDeleteLevel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.rearm(console.Levels, opstate.KindDelete)
	if err := s.console.DeleteLevel(operationContext(r), id); err != nil {
		respondOpError(w, r, "delete level", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "level deleted",
	})
}

func (s *Server) handleFetchPools(w http.ResponseWriter, r *http.Request) {
	s.rearm(console.Pools, opstate.KindFetch)
	if err := s.console.FetchPools(operationContext(r)); err != nil {
		respondOpError(w, r, "fetch pools", err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(console.Pools, s.console.Pools))
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	pool, err := s.console.GetPool(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondOpError(w, r, "get pool", err)
		return
	}
	respondJSON(w, http.StatusOK, pool)
}

func (s *Server) handleAddPool(w http.ResponseWriter, r *http.Request) {
	var in models.PoolInput
	if !decodeJSON(w, r, &in) {
		return
	}

	s.rearm(console.Pools, opstate.KindAdd)
	pool, err := s.console.AddPool(operationContext(r), in)
	if err != nil {
		respondOpError(w, r, "add pool", err)
		return
	}
	respondJSON(w, http.StatusCreated, pool)
}

func (s *Server) handleUpdatePool(w http.ResponseWriter, r *http.Request) {
	var in models.PoolInput
	if !decodeJSON(w, r, &in) {
		return
	}

	s.rearm(console.Pools, opstate.KindUpdate)
	pool, err := s.console.UpdatePool(operationContext(r), chi.URLParam(r, "id"), in)
	if err != nil {
		respondOpError(w, r, "update pool", err)
		return
	}
	respondJSON(w, http.StatusOK, pool)
}

func (s *Server) handleDeletePool(w http.ResponseWriter, r *http.Request) {
	s.rearm(console.Pools, opstate.KindDelete)
	if err := s.console.DeletePool(operationContext(r), chi.URLParam(r, "id")); err != nil {
		respondOpError(w, r, "delete pool", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "pool deleted",
	})
}

func (s *Server) handleFetchLearners(w http.ResponseWriter, r *http.Request) {
	s.rearm(console.Learners, opstate.KindFetch)
	if err := s.console.FetchLearners(operationContext(r)); err != nil {
		respondOpError(w, r, "fetch learners", err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(console.Learners, s.console.Learners))
}

func (s *Server) handleEnableLearner(w http.ResponseWriter, r *http.Request) {
	s.rearm(console.Learners, opstate.KindEnable)
	if err := s.console.EnableLearner(operationContext(r), chi.URLParam(r, "id")); err != nil {
		respondOpError(w, r, "enable learner", err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(console.Learners, s.console.Learners))
}

func (s *Server) handleDisableLearner(w http.ResponseWriter, r *http.Request) {
	s.rearm(console.Learners, opstate.KindDisable)
	if err := s.console.DisableLearner(operationContext(r), chi.URLParam(r, "id")); err != nil {
		respondOpError(w, r, "disable learner", err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(console.Learners, s.console.Learners))
}
