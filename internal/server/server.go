// Package server owns the HTTP server lifecycle.
package server

import (
	"context"
	"net/http"
	"time"

	"coin-wallet-engine/internal/config"
)

// Server wraps the http.Server with the shutdown behavior the engine
// needs: stop accepting requests, drain in-flight handlers, then let the
// caller close the pool and the notifier.
type Server struct {
	httpServer *http.Server
}

// New creates a Server serving the given handler on the configured address.
func New(cfg *config.ServerConfig, h http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      h,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
	}
}

// ListenAndServe blocks serving requests until Shutdown or a listener
// error.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
