// Package server provides the HTTP API for revalida.
package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/revalida/internal/config"
	"github.com/hyperjump/revalida/internal/keyword"
	"github.com/hyperjump/revalida/internal/metrics"
	"github.com/hyperjump/revalida/internal/pipeline"
	"github.com/hyperjump/revalida/internal/search"
	"github.com/hyperjump/revalida/internal/storage"
	"github.com/hyperjump/revalida/pkg/utils"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// WatchService manages the inbox directories watched for new exams.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the revalida API.
type Server struct {
	pipeline *pipeline.Pipeline
	store    storage.Store
	catalog  storage.Catalog
	index    keyword.QuestionIndex
	engine   *search.Engine
	config   *config.Config
	metrics  *metrics.Metrics
	logger   *zap.Logger
	version  string

	watch      WatchService
	configPath string
	configMu   sync.Mutex

	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a logger for request handling.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics counts requests in m and serves m at /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithWatch enables the watch directory endpoints. When configPath is set, changes
// to the directory list are saved to that config file.
func WithWatch(w WatchService, configPath string) Option {
	return func(s *Server) {
		s.watch = w
		s.configPath = configPath
	}
}

// WithVersion sets the version reported by GET /.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	pl *pipeline.Pipeline,
	store storage.Store,
	catalog storage.Catalog,
	index keyword.QuestionIndex,
	engine *search.Engine,
	cfg *config.Config,
	opts ...Option,
) *Server {
	s := &Server{
		pipeline: pl,
		store:    store,
		catalog:  catalog,
		index:    index,
		engine:   engine,
		config:   cfg,
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.NopIfNil(s.logger)
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.config.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	}
	r.Use(middleware.Compress(5))
	r.Use(s.metrics.Middleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.config.Server.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/extractions", s.handleCreateExtraction)
		r.Get("/extractions", s.handleListExtractions)
		r.Get("/extractions/{id}", s.handleGetExtraction)
		r.Delete("/extractions/{id}", s.handleDeleteExtraction)
		r.Get("/extractions/{id}/images", s.handleListImages)
		r.Get("/extractions/{id}/images/{filename}", s.handleGetImage)
		r.Get("/extractions/{id}/export.xlsx", s.handleExport)

		r.Post("/search", s.handleSearch)
		r.Get("/status", s.handleStatus)
		r.Post("/sync", s.handleSync)

		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
