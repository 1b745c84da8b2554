package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/eligibility"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/reconciliation"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules/store"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/health"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/metrics"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/tracing"
)

// Evaluator evaluates an eligibility context.
type Evaluator interface {
	Evaluate(ctx context.Context, rc rules.Context) *eligibility.Result
}

// RuleCache is the process-wide rule snapshot holder.
type RuleCache interface {
	Snapshot() (*store.Snapshot, error)
	Invalidate()
}

// Deps are the components the API serves. Metrics and Tracer may be nil.
type Deps struct {
	Eligibility Evaluator
	Reconciler  reconciliation.Runner
	Rules       RuleCache
	Health      *health.Checker
	Metrics     *metrics.Collector
	MetricsPath string
	Tracer      *tracing.Tracer
	Version     health.VersionInfo
	Logger      *slog.Logger
}

// Server is the hubflow HTTP API server.
type Server struct {
	config       config.ServerConfig
	deps         Deps
	logger       *slog.Logger
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server. Nothing listens until Start.
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Health == nil {
		deps.Health = health.New(0)
	}
	return &Server{
		config:       cfg,
		deps:         deps,
		logger:       logger.With("component", "server"),
		shutdownChan: make(chan struct{}),
	}
}

// Start listens on the configured address and blocks until ctx is
// cancelled, Shutdown is called or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		ln.Close()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	srv := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.shutdownChan:
		return nil
	}
}

// Shutdown gracefully stops the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		defer close(s.shutdownChan)

		s.mu.Lock()
		srv := s.httpServer
		running := s.isRunning
		s.mu.Unlock()
		if !running || srv == nil {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx := ctx
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("API server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/eligibility/evaluate", s.handleEvaluate)
	mux.HandleFunc("POST /v1/reconciliation/runs", s.handleRun)
	mux.HandleFunc("GET /v1/rules", s.handleRules)
	mux.HandleFunc("POST /v1/rules/invalidate", s.handleInvalidate)

	mux.Handle("/health", s.deps.Health.LivenessHandler())
	mux.Handle("/ready", s.deps.Health.ReadinessHandler())
	mux.Handle("/version", health.VersionHandler(s.deps.Version))
	if s.deps.Metrics != nil && s.deps.MetricsPath != "" {
		mux.Handle("GET "+s.deps.MetricsPath, s.deps.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = maxBodyMiddleware(s.config.MaxBodyBytes)(handler)
	handler = tracing.HTTPMiddleware(s.deps.Tracer, handler)
	handler = requestIDMiddleware(handler)
	handler = loggingMiddleware(s.logger)(handler)
	handler = recoveryMiddleware(s.logger)(handler)
	return handler
}
