package api

import (
	"log/slog"
	"net/http"

	"github.com/beucismis/backupill/internal/codec"
	"github.com/beucismis/backupill/internal/config"
	"github.com/beucismis/backupill/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for backupill.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	restorer     *pipeline.Restorer
	stats        *codec.Stats
	usage        []byte
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, restorer *pipeline.Restorer, stats *codec.Stats, log *slog.Logger, cfg config.Config) (*Server, error) {
	usage, err := renderUsage()
	if err != nil {
		return nil, err
	}
	s := &Server{
		orchestrator: orch,
		restorer:     restorer,
		stats:        stats,
		usage:        usage,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/", s.handleUsage)
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/backup", s.handleBackup)
		r.Get("/api/backup/{jobID}/status", s.handleBackupStatus)
		r.Get("/api/backup/{jobID}/document", s.handleBackupDocument)

		r.Post("/api/restore", s.handleRestore)
		r.Post("/api/restore/scan", s.handleRestoreScan)

		r.Get("/api/stats/render", s.handleRenderStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
