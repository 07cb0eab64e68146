package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/quiz-console/internal/config"
	"github.com/terra-clan/quiz-console/internal/console"
	"github.com/terra-clan/quiz-console/internal/events"
)

// ReadinessCheck reports whether a backing service is usable
type ReadinessCheck func(ctx context.Context) error

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	console        *console.Console
	hub            *events.Hub
	checks         map[string]ReadinessCheck
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	con *console.Console,
	hub *events.Hub,
	checks map[string]ReadinessCheck,
) *Server {
	s := &Server{
		config:         cfg,
		console:        con,
		hub:            hub,
		checks:         checks,
		authMiddleware: NewAuthMiddleware(cfg.APIKey),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// Live state change stream; no request timeout
		r.Get("/events", s.handleEventsWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			// Store views and machine control for any entity
			r.Route("/state/{entity}", func(r chi.Router) {
				r.Get("/", s.handleGetState)
				r.Post("/search", s.handleSearch)
				r.Post("/ops/{kind}/dismiss", s.handleDismiss)
				r.Post("/ops/{kind}/cancel", s.handleCancel)
			})

			r.Route("/levels", func(r chi.Router) {
				r.Post("/fetch", s.handleFetchLevels)
				r.Post("/", s.handleAddLevel)
				r.Get("/{id}", s.handleGetLevel)
				r.Put("/{id}", s.handleUpdateLevel)
				r.Delete("/{id}", s.handleDeleteLevel)
			})

			r.Route("/pools", func(r chi.Router) {
				r.Post("/fetch", s.handleFetchPools)
				r.Post("/", s.handleAddPool)
				r.Get("/{id}", s.handleGetPool)
				r.Put("/{id}", s.handleUpdatePool)
				r.Delete("/{id}", s.handleDeletePool)
			})

			r.Route("/topics", func(r chi.Router) {
				r.Post("/fetch", s.handleFetchTopics)
				r.Get("/form", s.handlePrepareTopicForm)
				r.Post("/", s.handleCreateTopic)
				r.Get("/{id}", s.handleGetTopic)
				r.Put("/{id}", s.handleUpdateTopic)
				r.Delete("/{id}", s.handleDeleteTopic)
				r.Get("/{id}/lessons", s.handleGetLessons)
				r.Post("/{id}/lessons/{lesson}", s.handleAttachToLesson)
			})

			r.Route("/questions", func(r chi.Router) {
				r.Post("/fetch", s.handleFetchQuestions)
				r.Post("/", s.handleAddQuestion)
				r.Get("/{id}", s.handleGetQuestion)
				r.Put("/{id}", s.handleUpdateQuestion)
				r.Delete("/{id}", s.handleDeleteQuestion)
			})

			r.Route("/learners", func(r chi.Router) {
				r.Post("/fetch", s.handleFetchLearners)
				r.Post("/{id}/enable", s.handleEnableLearner)
				r.Post("/{id}/disable", s.handleDisableLearner)
			})

			r.Route("/workflows", func(r chi.Router) {
				r.Get("/", s.handleListWorkflows)
				r.Get("/orphans", s.handleListOrphans)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
