// Package server provides the HTTP server and routing for finboard.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/clarelia/finboard/internal/database"
	"github.com/clarelia/finboard/internal/store"
	"github.com/clarelia/finboard/internal/syncer"
)

// Config holds server configuration
type Config struct {
	Log          zerolog.Logger
	ReportsDB    *database.DB
	PeriodRepo   *store.PeriodRepository
	PayrollRepo  *store.PayrollRepository
	RunRepo      *store.RunRepository
	Orchestrator *syncer.Orchestrator
	Port         int
	DevMode      bool
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	handlers *Handlers
	port     int
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		handlers: NewHandlers(
			cfg.PeriodRepo,
			cfg.PayrollRepo,
			cfg.RunRepo,
			cfg.Orchestrator,
			cfg.ReportsDB,
			cfg.Log,
		),
		port: cfg.Port,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(120 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/periods/{periodID}", s.handlers.HandleGetPeriod)
		r.Get("/years/{year}", s.handlers.HandleGetYear)

		r.Route("/payroll", func(r chi.Router) {
			r.Get("/periods/{periodID}/employees", s.handlers.HandleGetPayrollPeriod)
			r.Get("/years/{year}/employees", s.handlers.HandleGetPayrollYear)
		})

		r.Route("/sync", func(r chi.Router) {
			r.Get("/runs", s.handlers.HandleListRuns)
			r.Post("/", s.handlers.HandleTriggerSync)
		})

		r.Get("/system/health", s.handlers.HandleSystemHealth)
	})
}

// loggingMiddleware logs each request with method, path, status and latency.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// Router exposes the chi router, used by handler tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
