// Package handlers provides the HTTP server for the CV tracker, bridging the
// JSON transport and the business logic in the controller package.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultShutdownTimeout = 5 * time.Second

// Server wraps the HTTP server and its lifecycle.
type Server struct {
	httpServer      *http.Server
	logger          *zap.Logger
	endpoint        string
	shutdownTimeout time.Duration
}

// NewServer constructs a Server listening on port and serving handler.
func NewServer(port int, handler http.Handler, logger *zap.Logger, shutdownTimeout time.Duration) *Server {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	endpoint := fmt.Sprintf(":%d", port)
	return &Server{
		httpServer: &http.Server{
			Addr:              endpoint,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:          logger.Named("http_server"),
		endpoint:        endpoint,
		shutdownTimeout: shutdownTimeout,
	}
}

// Start runs the HTTP server and blocks until it stops. A graceful Stop is
// not reported as an error.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("endpoint", s.endpoint))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP serve error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.logger.Info("Server stopped")
}
