package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/AgentOS/ptyd/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/domain/terminal"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/tracing"
	sysprovider "github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/system"
	termprovider "github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/terminal"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	sessions *terminal.Registry
	registry *service.Registry
	hub      *ws.Hub
	tracer   *tracing.Tracer
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// Option customizes a Server.
type Option func(*options)

type options struct {
	logger     *logging.Logger
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithPrometheus registers metrics on reg instead of the default registry.
func WithPrometheus(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registerer = reg
		o.gatherer = reg
	}
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := options{
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	logger.Info("Initializing ptyd",
		zap.String("addr", cfg.Server.Address()),
		zap.String("default_shell", cfg.Terminal.Shell),
		zap.Int("max_sessions", cfg.Terminal.MaxSessions),
	)

	metrics := monitoring.NewMetrics(o.registerer)

	// The hub is the registry's sink; it must exist first.
	hub := ws.NewHub(logger.Logger, metrics)
	sink := terminal.MultiSink{hub, terminal.LogSink{Logger: logger.Named("terminal")}}
	sessions := terminal.NewRegistry(TerminalConfig(cfg.Terminal), sink).
		WithLogger(logger.Logger).
		WithMetrics(metrics)

	tracer := tracing.New(logger.Logger)
	serviceRegistry := service.NewRegistry().WithTracer(tracer)
	for _, p := range []service.Provider{
		termprovider.NewProvider(sessions),
		sysprovider.NewProvider(sessions, apihttp.Version),
	} {
		if err := serviceRegistry.Register(p); err != nil {
			sessions.Close()
			tracer.Close()
			return nil, fmt.Errorf("failed to register provider: %w", err)
		}
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(middleware.RequestLogger(logger.Logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(cfg.Stream.AllowedOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(sessions, serviceRegistry)
	handlers.Register(router)

	wsHandler := ws.NewHandler(hub, serviceRegistry, ws.Config{
		SendBuffer:     cfg.Stream.SendBuffer,
		AllowedOrigins: cfg.Stream.AllowedOrigins,
	})
	router.GET("/stream", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(monitoring.Handler(o.gatherer)))
	router.GET("/log/level", gin.WrapH(logger.LevelHandler()))
	router.PUT("/log/level", gin.WrapH(logger.LevelHandler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Server.Address(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		sessions: sessions,
		registry: serviceRegistry,
		hub:      hub,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// TerminalConfig converts the environment settings into registry settings.
func TerminalConfig(c config.TerminalConfig) terminal.Config {
	return terminal.Config{
		DefaultShell:    c.Shell,
		Term:            c.Term,
		DefaultCols:     c.Cols,
		DefaultRows:     c.Rows,
		ReadBufferSize:  c.ReadBufferSize,
		EventBufferSize: c.EventBufferSize,
		MaxSessions:     c.MaxSessions,
	}
}

// Router returns the HTTP handler, for tests.
func (s *Server) Router() http.Handler { return s.router }

// Sessions returns the session registry.
func (s *Server) Sessions() *terminal.Registry { return s.sessions }

// Run starts the HTTP server and blocks until it stops. It returns nil after
// a Shutdown.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Serve runs the server on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", l.Addr().String()))
	if err := s.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, kills every session, disconnects
// websocket clients and flushes the logger.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by http.Server.
	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}

	// Exit events still reach connected clients before the hub closes.
	s.sessions.Close()
	s.logger.Info("Closed all sessions")
	s.hub.Close()
	s.tracer.Close()

	_ = s.logger.Sync()

	if err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
