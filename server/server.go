// Package server provides the HTTP API for ratatoskr.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/poiesic/ratatoskr"
	"github.com/poiesic/ratatoskr/config"
)

// Server is the HTTP server for the ratatoskr API.
type Server struct {
	service *ratatoskr.Service
	config  *config.ServerConfig
	logger  *slog.Logger
	server  *http.Server
}

// NewServer creates a server over the given service.
func NewServer(service *ratatoskr.Service, cfg *config.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		service: service,
		config:  cfg,
		logger:  logger.With("component", "server"),
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Use(s.requireAPIKey)
		api.Post("/query", s.handleQuery)
		api.Get("/query_status", s.handleQueryStatus)
		api.Post("/query_rag", s.handleQueryRAG)
		api.Post("/metadata_summary", s.handleMetadataSummary)
		api.Post("/process_url", s.handleProcessURL)
		api.Post("/upload_file", s.handleUploadFile)
		api.Post("/upload_documents", s.handleUploadDocuments)
	})

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// requireAPIKey rejects API requests without the configured key. With no
// key configured the API is open.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.APIKey != "" && r.Header.Get("X-API-Key") != s.config.APIKey {
			s.respondError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
