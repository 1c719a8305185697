package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/campus-portal/internal/audit"
	"github.com/nerrad567/campus-portal/internal/auth"
	"github.com/nerrad567/campus-portal/internal/event"
	"github.com/nerrad567/campus-portal/internal/forum"
	"github.com/nerrad567/campus-portal/internal/infrastructure/config"
	"github.com/nerrad567/campus-portal/internal/infrastructure/database"
	"github.com/nerrad567/campus-portal/internal/infrastructure/influxdb"
	"github.com/nerrad567/campus-portal/internal/infrastructure/logging"
	"github.com/nerrad567/campus-portal/internal/infrastructure/ratelimit"
	"github.com/nerrad567/campus-portal/internal/material"
	"github.com/nerrad567/campus-portal/internal/notice"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Announcer publishes new content to an external bus. Satisfied by *mqtt.Client.
type Announcer interface {
	Announce(kind string, v any) error
	IsConnected() bool
}

// AuthRecorder receives auth outcomes for telemetry. Satisfied by *influxdb.Client.
type AuthRecorder interface {
	WriteAuthEvent(e influxdb.AuthEvent)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	RateLimit config.RateLimitConfig
	Logger    *logging.Logger
	DB        *database.DB // optional: pool stats in /metrics and /health

	Auth      *auth.Service
	Users     auth.UserRepository
	Materials material.Repository
	Events    event.Repository
	Notices   notice.Repository
	Forum     forum.Repository

	AuditRepo audit.Repository  // optional
	Limiter   ratelimit.Limiter // optional: nil disables rate limiting
	Announcer Announcer         // optional
	Telemetry AuthRecorder      // optional
	Version   string
}

// Server is the HTTP API server for the campus portal.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	rateCfg   config.RateLimitConfig
	logger    *logging.Logger
	db        *database.DB
	auth      *auth.Service
	users     auth.UserRepository
	materials material.Repository
	events    event.Repository
	notices   notice.Repository
	forum     forum.Repository
	auditRepo audit.Repository
	auditCh   chan *audit.Entry
	limiter   ratelimit.Limiter
	announcer Announcer
	telemetry AuthRecorder
	metrics   *authMetrics
	tickets   *ticketStore
	hub       *Hub
	version   string
	startTime time.Time
	server    *http.Server
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Auth == nil || deps.Users == nil {
		return nil, fmt.Errorf("auth service and user repository are required")
	}
	if deps.Materials == nil || deps.Events == nil || deps.Notices == nil || deps.Forum == nil {
		return nil, fmt.Errorf("content repositories are required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		rateCfg:   deps.RateLimit,
		logger:    deps.Logger.With("component", "api"),
		db:        deps.DB,
		auth:      deps.Auth,
		users:     deps.Users,
		materials: deps.Materials,
		events:    deps.Events,
		notices:   deps.Notices,
		forum:     deps.Forum,
		auditRepo: deps.AuditRepo,
		limiter:   deps.Limiter,
		announcer: deps.Announcer,
		telemetry: deps.Telemetry,
		metrics:   newAuthMetrics(),
		tickets:   newTicketStore(),
		version:   deps.Version,
		startTime: time.Now(),
	}
	s.hub = NewHub(s.wsCfg, s.logger)
	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}

	return s, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// Background workers (WebSocket hub, ticket cleanup, audit writer) stop on Close.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.tickets.cleanLoop(srvCtx)

	s.done = make(chan struct{})
	if s.auditCh != nil {
		go func() {
			defer close(s.done)
			s.drainAuditLog(srvCtx)
		}()
	} else {
		close(s.done)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.server.Addr, "cert", s.cfg.TLS.CertFile)
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

// Close gracefully shuts down the API server, waiting up to 10 seconds for
// in-flight requests, then flushes queued audit entries.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)

	if s.cancel != nil {
		s.cancel()
	}
	<-s.done

	if err != nil {
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
