// Package api exposes the setup engine over HTTP: step listing and
// actions, session state, the global error slot, and SSE streams for
// step updates and debug logs.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/errmgr"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/events"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/logging"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/runner"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/session"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/state"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/steps"
)

// Config holds the server configuration.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	EnableCORS      bool
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            8787,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    0, // SSE connections are long-lived
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CORSOrigins:     []string{"http://localhost:3000"},
		EnableCORS:      true,
	}
}

// Server is the HTTP front of the setup engine.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	config     Config
	logger     *logging.Logger

	registry  *steps.Registry
	store     *state.Store
	run       *runner.Runner
	checker   *runner.AutoChecker
	validator *session.Validator
	errs      *errmgr.Manager
	bus       *events.Bus
}

// New creates a server over the engine components.
func New(cfg Config, logger *logging.Logger,
	registry *steps.Registry, store *state.Store, run *runner.Runner,
	checker *runner.AutoChecker, validator *session.Validator,
	errs *errmgr.Manager, bus *events.Bus,
) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		config:    cfg,
		logger:    logger,
		registry:  registry,
		store:     store,
		run:       run,
		checker:   checker,
		validator: validator,
		errs:      errs,
		bus:       bus,
	}

	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Router returns the configured router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	if s.config.EnableCORS {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   s.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}).Handler)
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/session", s.handleSession)
		r.Get("/steps", s.handleListSteps)
		r.Route("/steps/{id}", func(r chi.Router) {
			r.Post("/check", s.handleCheckStep)
			r.Post("/execute", s.handleExecuteStep)
			r.Post("/complete", s.handleMarkComplete)
			r.Post("/incomplete", s.handleMarkIncomplete)
		})
		r.Post("/run", s.handleRunAll)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/outputs", s.handleOutputs)
		r.Get("/error", s.handleCurrentError)
		r.Delete("/error", s.handleDismissError)
		r.Get("/events", s.handleEvents)
	})

	r.Get("/api/debug/logs/stream", s.handleLogStream)

	return r
}

// Start begins serving. Blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
