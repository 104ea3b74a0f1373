package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vsrlabs/positions-indexer/internal/config"
	"github.com/vsrlabs/positions-indexer/internal/query"
	"github.com/vsrlabs/positions-indexer/internal/services"
)

const (
	RequestTimeout     = 30 * time.Second
	RequestIdleTimeout = 60 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// StateReporter exposes the refresher state for the health check.
type StateReporter interface {
	RefresherState() services.RefresherState
}

type Server struct {
	query   *query.Service
	indexer StateReporter
	router  *chi.Mux
	addr    string
}

func New(cfg *config.ServerConfig, q *query.Service, indexer StateReporter) *Server {
	s := &Server{
		query:   q,
		indexer: indexer,
		addr:    cfg.Addr(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves the API until ctx is cancelled, then shuts the server down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  RequestTimeout,
		WriteTimeout: RequestTimeout,
		IdleTimeout:  RequestIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting query API server on %s", s.addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
