// Package server serves generated reports over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/panbanda/quarterly/internal/report"
	quarterlymiddleware "github.com/panbanda/quarterly/internal/server/middleware"
)

const defaultShutdownTimeout = 10 * time.Second

// Reporter builds a report for one client and quarter.
type Reporter interface {
	Generate(ctx context.Context, req report.Request) (*report.Report, error)
}

type Dependencies struct {
	Reporter   Reporter
	ClientsDir string
	Now        func() time.Time
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

type WebAPI struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server

	shutdownTimeout time.Duration
}

// ConfigureRouter builds the route tree. Exposed for httptest.
func ConfigureRouter(logger zerolog.Logger, config Config) *chi.Mux {
	h := newHandler(config.Dependencies)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(quarterlymiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Get("/", h.ReportHTML)
	router.Get("/healthz", h.Health)
	router.Route("/api", func(r chi.Router) {
		r.Get("/clients", h.ListClients)
		r.Get("/clients/{client}", h.GetClient)
		r.Get("/report", h.ReportJSON)
		r.Get("/insights", h.Insights)
	})
	return router
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	router := ConfigureRouter(logger, config)

	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: timeout,
	}
}

// Handler returns the router.
func (w *WebAPI) Handler() http.Handler { return w.router }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (w *WebAPI) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(shutdownCtx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}
		return err
	}
}
