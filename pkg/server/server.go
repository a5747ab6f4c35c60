package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/supporttools/blockwatch/pkg/logger"
	"github.com/supporttools/blockwatch/pkg/metrics"
)

// Server wraps the HTTP listener hosting the dashboard.
type Server struct {
	httpServer *http.Server
}

// New assembles the router and listener. metricsPath is ignored when m is
// nil or empty.
func New(addr string, handler *Handler, m *metrics.Metrics, metricsPath string) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	handler.RegisterRoutes(r)
	if m != nil && metricsPath != "" {
		r.Method(http.MethodGet, metricsPath, m.Handler())
	}

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: r,
			// No write timeout: the log tail blocks as long as the runtime
			// takes, and cutting the response off mid-fetch helps nobody.
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Dashboard server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Infof("Shutting down dashboard server")
	return s.httpServer.Shutdown(shutdownCtx)
}
