package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server wraps http.Server with TLS selection and logging.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithTLS serves HTTPS. The config must provide certificates, either
// directly or through GetCertificate.
func WithTLS(cfg *tls.Config) Option {
	return func(s *Server) { s.httpServer.TLSConfig = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a new HTTP server.
func New(addr string, handler http.Handler, opts ...Option) *Server {
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.httpServer.ErrorLog = slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn)
	return s
}

// ListenAndServe binds the configured address and serves until Shutdown.
// It returns nil after a graceful shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln, over TLS when configured.
func (s *Server) Serve(ln net.Listener) error {
	useTLS := s.httpServer.TLSConfig != nil
	s.logger.Info("http server listening", "addr", ln.Addr().String(), "tls", useTLS)

	var err error
	if useTLS {
		err = s.httpServer.ServeTLS(ln, "", "")
	} else {
		err = s.httpServer.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
