package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/teemow/bizgateway/internal/instrumentation"
)

const (
	// DefaultHTTPAddr is the default listen address of the MCP HTTP server.
	DefaultHTTPAddr = ":3000"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// HTTPConfig configures an HTTPServer.
type HTTPConfig struct {
	Addr      string
	Transport *SSETransport
	Health    *HealthChecker
	Metrics   *instrumentation.Metrics
	Logger    *slog.Logger
}

// HTTPServer serves the session transport and the status endpoints.
type HTTPServer struct {
	mu         sync.Mutex
	addr       string
	handler    http.Handler
	httpServer *http.Server
	transport  *SSETransport
	health     *HealthChecker
	logger     *slog.Logger
}

// NewHTTPServer builds the routes.
func NewHTTPServer(cfg HTTPConfig) (*HTTPServer, error) {
	if cfg.Transport == nil {
		return nil, errors.New("transport is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultHTTPAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+SSEPath, cfg.Transport.ServeSSE)
	mux.HandleFunc("POST "+MessagesPath, cfg.Transport.ServeMessages)
	if cfg.Health != nil {
		cfg.Health.RegisterHealthEndpoints(mux)
	}

	return &HTTPServer{
		addr:      cfg.Addr,
		handler:   withCORS(withRequestMetrics(mux, cfg.Metrics)),
		transport: cfg.Transport,
		health:    cfg.Health,
		logger:    cfg.Logger,
	}, nil
}

// Handler returns the root handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown.
func (s *HTTPServer) Start() error {
	return s.StartWithReadySignal(nil)
}

// StartWithReadySignal is Start that closes ready once the listener is bound.
func (s *HTTPServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	if ready != nil {
		close(ready)
	}

	s.logger.Info("starting MCP server", "addr", ln.Addr().String(), "sse", SSEPath)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown marks the server not ready, ends the live session and waits
// for in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.health != nil {
		s.health.SetReady(false)
	}
	s.transport.Close()

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down MCP server")
	return srv.Shutdown(ctx)
}

// Addr returns the listen address; once started, the bound one.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
