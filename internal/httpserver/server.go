package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vidtweet/backend/internal/config"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	// Uploads stream through the handler, so the write deadline is generous.
	defaultWriteTimeout = 2 * time.Minute
)

// Server wraps the http.Server with timeouts taken from configuration.
type Server struct {
	inner *http.Server
}

// New constructs a server listening on cfg.Port. Zero timeouts fall back to defaults.
func New(cfg config.ServerConfig, handler http.Handler) *Server {
	readHeader := cfg.ReadHeaderTimeout
	if readHeader <= 0 {
		readHeader = defaultReadHeaderTimeout
	}
	write := cfg.WriteTimeout
	if write <= 0 {
		write = defaultWriteTimeout
	}

	return &Server{
		inner: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: readHeader,
			WriteTimeout:      write,
		},
	}
}

// Addr reports the listen address.
func (s *Server) Addr() string {
	return s.inner.Addr
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully terminates the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
