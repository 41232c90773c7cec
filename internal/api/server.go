package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/venuewatch-core/internal/alerts"
	"github.com/nerrad567/venuewatch-core/internal/audit"
	"github.com/nerrad567/venuewatch-core/internal/device"
	"github.com/nerrad567/venuewatch-core/internal/infrastructure/config"
	"github.com/nerrad567/venuewatch-core/internal/infrastructure/logging"
	"github.com/nerrad567/venuewatch-core/internal/location"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by every component reported on /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// SessionCounter reports the number of open ingestion sessions.
type SessionCounter interface {
	Count() int
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Security config.SecurityConfig
	Logger   *logging.Logger

	Registry  *device.Registry
	History   device.HistoryRepository
	Locations location.Repository
	Alerts    *alerts.Aggregator

	// Audit records device registration changes. Optional.
	Audit audit.Repository

	// Ingest is mounted at IngestPath when both are set.
	Ingest     http.Handler
	IngestPath string
	Sessions   SessionCounter

	// HealthChecks are reported by name on /health. Nil entries are skipped.
	HealthChecks map[string]HealthChecker

	Version string
}

// Server is the HTTP API server.
//
// It owns the HTTP listener, routes and middleware. The ingestion
// websocket handler is mounted on the same listener.
type Server struct {
	cfg       config.APIConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	registry  *device.Registry
	history   device.HistoryRepository
	locations location.Repository
	alerts    *alerts.Aggregator
	audit     audit.Repository
	ingest    http.Handler
	ingestAt  string
	sessions  SessionCounter
	checks    map[string]HealthChecker
	version   string
	limiter   *rateLimiter
	server    *http.Server
	cancel    context.CancelFunc // stops the rate limiter cleanup on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Locations == nil {
		return nil, fmt.Errorf("location repository is required")
	}
	if deps.Alerts == nil {
		return nil, fmt.Errorf("alert aggregator is required")
	}
	if deps.Security.Auth.Enabled && deps.Security.Auth.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required when auth is enabled")
	}

	s := &Server{
		cfg:       deps.Config,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		registry:  deps.Registry,
		history:   deps.History,
		locations: deps.Locations,
		alerts:    deps.Alerts,
		audit:     deps.Audit,
		ingest:    deps.Ingest,
		ingestAt:  deps.IngestPath,
		sessions:  deps.Sessions,
		checks:    deps.HealthChecks,
		version:   deps.Version,
	}

	if rl := deps.Security.RateLimit; rl.Enabled {
		s.limiter = newRateLimiter(rl.RequestsPerMinute, rl.Burst)
	}

	return s, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.limiter != nil {
		go s.limiter.cleanupLoop(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}
	// ReadTimeout and WriteTimeout would cut long-lived device websockets,
	// so they apply to API routes through http.TimeoutHandler instead.

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete. Hijacked
// websocket connections are not tracked by the server; the ingestion hub
// closes them.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
