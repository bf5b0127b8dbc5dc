// Package web provides the HTTP API for submitting supplier catalogues.
package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mwerther/catimport/internal/catalogue"
	"github.com/mwerther/catimport/internal/config"
	"github.com/mwerther/catimport/internal/queue"
	"github.com/mwerther/catimport/internal/web/middleware"
)

// Server is the HTTP server for the catalogue import service.
type Server struct {
	importer *catalogue.Importer
	queue    *queue.Queue
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new Server instance.
func NewServer(importer *catalogue.Importer, q *queue.Queue, cfg *config.Config) *Server {
	s := &Server{
		importer: importer,
		queue:    q,
		cfg:      cfg,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	if s.cfg.Rate.Enabled {
		limiter := middleware.NewRateLimiter(s.cfg.Rate.RequestsPerSecond, s.cfg.Rate.Burst)
		s.router.Use(limiter.Handler)
	}
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Detection-only check, mirrors the pre-import file validation
		r.Post("/catalogues/detect", s.handleDetect)

		// Full import: parse, resolve, schedule chunks
		r.Post("/catalogues", s.handleImport)

		// Per-import chunk progress
		r.Get("/imports/{importID}", s.handleImportStatus)

		// Registered catalogue formats
		r.Get("/formats", s.handleFormats)
	})
}

// Start begins listening for HTTP requests. Blocks until shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
