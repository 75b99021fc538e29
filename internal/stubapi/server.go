package stubapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/richmansdream/crmdesk/internal/log"
)

// ServerConfig holds listener and timeout settings
type ServerConfig struct {
	// Address is the listen address, e.g. "127.0.0.1:8000"
	Address string

	// ShutdownTimeout bounds connection draining. Defaults to 10 seconds.
	ShutdownTimeout time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server hosts a Backend together with liveness and readiness endpoints
type Server struct {
	httpServer      *http.Server
	logger          *log.Logger
	ready           atomic.Bool
	inShutdown      atomic.Bool
	shutdownTimeout time.Duration
}

// NewServer wraps handler in an HTTP server
func NewServer(handler http.Handler, cfg ServerConfig, logger *log.Logger) *Server {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = log.Discard()
	}

	s := &Server{
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", s.handleLiveness)
	mux.HandleFunc("/health/ready", s.handleReadiness)
	mux.HandleFunc("/healthz", s.handleReadiness)
	mux.Handle("/", handler)

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Serve accepts connections on l until Shutdown. It returns
// http.ErrServerClosed after a graceful shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.ready.Store(true)
	s.logger.Info("stub API listening", "address", l.Addr().String())
	return s.httpServer.Serve(l)
}

// Start listens on the configured address and serves
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(l)
}

// Shutdown stops accepting requests and drains open connections,
// waiting at most the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)
	s.ready.Store(false)
	s.httpServer.SetKeepAlivesEnabled(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// IsShuttingDown returns whether Shutdown has been called
func (s *Server) IsShuttingDown() bool {
	return s.inShutdown.Load()
}

// Run serves on l until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, l net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.Serve(l); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("stub API shutting down")
		return s.Shutdown(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() || s.inShutdown.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
