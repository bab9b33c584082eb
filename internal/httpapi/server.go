package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"
)

// Server wraps the HTTP listener serving the control surface.
type Server struct {
	http   *http.Server
	ln     net.Listener
	logger *zap.Logger
}

// NewServer builds a Server for the given listen address.
func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		http:   &http.Server{Addr: addr, Handler: handler},
		logger: logger,
	}
}

// Start binds the listener and serves in the background. The bind happens
// synchronously so address errors surface to the caller.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("http api listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http api serve failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound listen address. Valid after Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.http.Addr
	}
	return s.ln.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
