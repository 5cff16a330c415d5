// Package server assembles the gateway's HTTP surface and owns its lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"yiyi-hq/gateway/pkg/config"
	"yiyi-hq/gateway/pkg/maintenance"
	"yiyi-hq/gateway/pkg/providers"
	"yiyi-hq/gateway/pkg/proxy/handlers"
	"yiyi-hq/gateway/pkg/proxy/middleware"
	"yiyi-hq/gateway/pkg/routing"
	"yiyi-hq/gateway/pkg/telemetry/health"
	"yiyi-hq/gateway/pkg/telemetry/metrics"
	"yiyi-hq/gateway/pkg/telemetry/tracing"
	"yiyi-hq/gateway/pkg/usage"
)

// ErrAlreadyRunning is returned by Start on a server that is serving.
var ErrAlreadyRunning = errors.New("server is already running")

// BuildInfo is reported by /version.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Options are the collaborators the server routes to. Chat is required;
// everything else may be nil.
type Options struct {
	Config    func() *config.Config
	Chat      handlers.Chatter
	Health    *providers.HealthTracker
	Usage     usage.Ledger
	Metrics   *metrics.Collector
	Tracer    *tracing.Tracer
	Scheduler *maintenance.Scheduler
	Build     BuildInfo
	Logger    *slog.Logger
}

// Server is the gateway HTTP server.
type Server struct {
	opts    Options
	relay   *handlers.WebSocketHandler
	checker *health.Checker
	logger  *slog.Logger

	mu         sync.RWMutex
	httpServer *http.Server
	listener   net.Listener
	isRunning  bool

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a server. Nothing listens until Start.
func New(opts Options) *Server {
	if opts.Config == nil {
		opts.Config = config.GetConfig
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		opts:   opts,
		logger: opts.Logger.With("component", "server"),
	}
	s.relay = handlers.NewWebSocketHandler(opts.Chat, handlers.WebSocketOptions{
		Config:  opts.Config,
		Metrics: opts.Metrics,
		Logger:  opts.Logger,
	})
	s.checker = s.newChecker()
	return s
}

// Address returns host:port from the gateway config. Port 0 picks a free
// port.
func Address(cfg *config.Config) string {
	host, port := config.DefaultHost, config.DefaultPort
	if cfg != nil {
		if cfg.Gateway.Host != "" {
			host = cfg.Gateway.Host
		}
		port = cfg.Gateway.Port
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Start listens on the configured address and serves until ctx is done or
// the listener fails. It shuts down gracefully before returning.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}

	cfg := s.opts.Config()
	if cfg == nil {
		s.mu.Unlock()
		return errors.New("server: configuration not loaded")
	}
	addr := Address(cfg)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.Gateway.ReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.isRunning = true
	s.mu.Unlock()

	if s.opts.Scheduler != nil {
		s.opts.Scheduler.Start(ctx)
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting connections, closes relay connections with a
// going-away frame, then releases the tracer, scheduler and usage ledger.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		timeout := config.DefaultShutdownTimeout
		if cfg := s.opts.Config(); cfg != nil && cfg.Gateway.ShutdownTimeout > 0 {
			timeout = cfg.Gateway.ShutdownTimeout
		}
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var errs []error

		s.mu.RLock()
		httpServer := s.httpServer
		s.mu.RUnlock()

		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("http shutdown: %w", err))
			}
		}
		// hijacked connections are not tracked by http.Server
		if err := s.relay.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("relay shutdown: %w", err))
		}

		if s.opts.Scheduler != nil {
			s.opts.Scheduler.Stop()
		}
		if err := s.opts.Tracer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
		if s.opts.Usage != nil {
			if err := s.opts.Usage.Close(); err != nil {
				errs = append(errs, fmt.Errorf("usage ledger close: %w", err))
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.shutdownErr = errors.Join(errs...)
		if s.shutdownErr != nil {
			s.logger.Error("error during shutdown", "error", s.shutdownErr)
		}
		s.logger.Info("gateway stopped")
	})

	return s.shutdownErr
}

// IsRunning reports whether Start is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Relay returns the WebSocket relay handler.
func (s *Server) Relay() *handlers.WebSocketHandler {
	return s.relay
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	healthHandler := handlers.NewHealthHandler(s.opts.Config)

	mux.Handle("/ws", s.relay)
	mux.Handle("/health", healthHandler)
	mux.Handle("/health/live", s.checker.LivenessHandler())
	mux.Handle("/health/ready", s.checker.ReadinessHandler())
	mux.Handle("/version", health.VersionHandler(s.opts.Build.Version, s.opts.Build.Commit, s.opts.Build.BuildTime))

	cfg := s.opts.Config()
	if s.opts.Metrics != nil && cfg != nil && cfg.Telemetry.Metrics.IsEnabled() {
		path := cfg.Telemetry.Metrics.Path
		if path == "" {
			path = config.DefaultMetricsPath
		}
		mux.Handle(path, s.opts.Metrics.Handler())
	}

	// "/" serves the relay to upgrade requests and the health body otherwise
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			s.relay.ServeHTTP(w, r)
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		healthHandler.ServeHTTP(w, r)
	})

	var handler http.Handler = mux
	handler = tracing.HTTPMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)
	return handler
}

// newChecker registers the readiness checks.
func (s *Server) newChecker() *health.Checker {
	name := config.DefaultServiceName
	if cfg := s.opts.Config(); cfg != nil && cfg.Gateway.ServiceName != "" {
		name = cfg.Gateway.ServiceName
	}
	checker := health.New(name, 2*time.Second)

	checker.RegisterCheck("model_chain", func(context.Context) error {
		chain, err := routing.BuildChain(s.opts.Config())
		if err != nil {
			return err
		}
		cfg := s.opts.Config()
		for _, ref := range chain {
			if _, err := routing.ResolveModelRef(ref, cfg); err != nil {
				return err
			}
		}
		return nil
	})

	if s.opts.Health != nil {
		checker.RegisterCheck("providers", func(context.Context) error {
			return allProvidersFailing(s.opts.Health.Snapshot())
		})
	}

	if s.opts.Usage != nil {
		checker.RegisterCheck("usage", s.opts.Usage.Ping)
	}
	return checker
}

// allProvidersFailing fails only when every attempted provider is
// unhealthy; one working provider keeps the fallback chain usable.
func allProvidersFailing(snapshot []providers.ProviderHealth) error {
	if len(snapshot) == 0 {
		return nil
	}
	for _, h := range snapshot {
		if h.Healthy {
			return nil
		}
	}
	return fmt.Errorf("all %d attempted providers are failing", len(snapshot))
}
