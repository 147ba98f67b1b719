// Package server exposes the pipeline over HTTP for reviewers and operators.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/usecase/pipeline"
)

type Server struct {
	svc    *pipeline.Service
	runner *pipeline.Runner
	http   *http.Server
}

func New(addr string, svc *pipeline.Service, runner *pipeline.Runner) *Server {
	s := &Server{svc: svc, runner: runner}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(requestLogger)

	router.Get("/healthz", s.handleHealth)
	router.Route("/jobs", func(r chi.Router) {
		r.Get("/", s.handleListJobs)
		r.Get("/stats", s.handleStats)
		r.Post("/sweep", s.handleSweep)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetJob)
			r.Post("/process", s.handleProcess)
			r.Post("/retry", s.handleRetry)
			r.Post("/cancel", s.handleCancel)
			r.Post("/edit", s.handleEdit)
			r.Post("/export", s.handleExport)
			r.Get("/versions", s.handleListVersions)
			r.Get("/versions/{vid}", s.handleVersionDetail)
			r.Post("/versions/{vid}/rollback", s.handleRollback)
			r.Get("/diff", s.handleDiff)
		})
	})
	router.Get("/exports/{id}/download", s.handleDownload)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	logging.Info(ctx, "http server listening", slog.String("addr", s.http.Addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
