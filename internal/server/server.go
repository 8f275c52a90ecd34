package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"FilingsMonitor/internal/ports"
	"FilingsMonitor/internal/snapshot"
	"FilingsMonitor/internal/usecase"
)

// Server exposes the monitoring and download workflows over HTTP. It is a
// thin layer: all decision logic lives in the pipeline and below.
type Server struct {
	log       *slog.Logger
	pipeline  *usecase.Pipeline
	store     *snapshot.Store
	archive   ports.Archive
	root      string
	attach    string
	startedAt time.Time

	http *http.Server
}

// Options carries the server wiring.
type Options struct {
	BindAddr          string
	Pipeline          *usecase.Pipeline
	Store             *snapshot.Store
	Archive           ports.Archive
	DownloadsRoot     string
	AttachmentBaseURL string
	Logger            *slog.Logger
}

// New builds the router and the underlying http.Server.
func New(opts Options) *Server {
	s := &Server{
		log:       opts.Logger,
		pipeline:  opts.Pipeline,
		store:     opts.Store,
		archive:   opts.Archive,
		root:      opts.DownloadsRoot,
		attach:    opts.AttachmentBaseURL,
		startedAt: time.Now().UTC(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/status", s.handleStatus)
	r.Get("/companies", s.handleCompanies)
	r.Get("/companies/preview", s.handleCompaniesPreview)
	r.Post("/run-download", s.handleRunDownload)
	r.Post("/run-download/{code}", s.handleRunDownloadSingle)
	r.Post("/run-monitor", s.handleRunMonitor)
	r.Post("/run-monitor/{code}", s.handleRunMonitorSingle)
	r.Get("/filings/all", s.handleAllFilings)
	r.Get("/filings/{code}", s.handleFilings)
	r.Get("/documents", s.handleDocuments)
	r.Get("/documents/{entity}", s.handleEntityDocuments)
	r.Get("/changes", s.handleChanges)
	r.Post("/custom/run-download", s.handleCustomDownload)
	r.Post("/custom/run-monitor", s.handleCustomMonitor)

	s.http = &http.Server{
		Addr:              opts.BindAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
	}

	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server starting", slog.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
