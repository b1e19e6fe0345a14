// Package server exposes the processing pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/KCD1111/DMVREAL/internal/export"
	"github.com/KCD1111/DMVREAL/internal/pipeline"
	"github.com/KCD1111/DMVREAL/internal/store"
)

// Server holds the HTTP surface and its collaborators.
type Server struct {
	processor *pipeline.Processor
	store     store.Store
	exporter  *export.Service
	maxUpload int64
	log       *slog.Logger
	httpSrv   *http.Server
}

type Config struct {
	Addr        string
	MaxUploadMB int64
}

func New(cfg Config, proc *pipeline.Processor, st store.Store, exp *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 16
	}
	s := &Server{
		processor: proc,
		store:     st,
		exporter:  exp,
		maxUpload: cfg.MaxUploadMB << 20,
		log:       logger,
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/process-document", s.handleProcessDocument)
	r.Post("/process-pdf", s.handleProcessPDF)
	r.Get("/session/{id}", s.handleGetSession)
	r.Get("/search/{licenseNumber}", s.handleSearch)
	r.Get("/recent-sessions", s.handleRecentSessions)
	r.Get("/export.xlsx", s.handleExport)
	return r
}

// ListenAndServe blocks until the context is canceled, then drains.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server.listen", "addr", s.httpSrv.Addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.log.Info("server.shutdown")
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }
