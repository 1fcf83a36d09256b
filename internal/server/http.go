package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/skillupng/lms-server/internal/logger"
	"github.com/skillupng/lms-server/internal/model"
)

// HTTPServer serves the API over a listener produced by a
// SecurityLayer. It implements model.Server.
type HTTPServer struct {
	addr    string
	httpSrv *http.Server
	logger  *logger.Logger

	mu       sync.Mutex
	listener net.Listener
}

var _ model.Server = (*HTTPServer)(nil)

// NewHTTPServer creates an HTTPServer for the given handler and
// address.
func NewHTTPServer(addr string, handler http.Handler, logger *logger.Logger) *HTTPServer {
	return &HTTPServer{
		addr:    addr,
		httpSrv: &http.Server{Handler: handler},
		logger:  logger,
	}
}

// Start opens the listener through the security layer and serves until
// Stop is called. It blocks; a closed server returns nil.
func (s *HTTPServer) Start(securityLayer model.SecurityLayer) error {
	listener, err := securityLayer.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("HTTP server: listening", "address", listener.Addr().String())

	if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}

	return nil
}

// Stop shuts the server down gracefully, waiting for in-flight
// requests up to the context deadline.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server: shutting down")

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}

// Address returns the bound listener address, or the configured
// address if the server has not started.
func (s *HTTPServer) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
