// Package server wires the Attachment Coordinator to the HTTP and
// WebSocket transports and the ambient infrastructure (logging, metrics,
// tracing, rate limiting, CORS) that make it operable as a standalone
// process.
package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/AgentOS/backend/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/backend/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/backend/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/coordinator"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router *gin.Engine
	coord  *coordinator.Coordinator
	logger *logging.Logger
	config *config.Config
}

// New constructs a Server: the Coordinator, its HTTP/WS surface, and the
// ambient middleware stack.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("initializing terminal multiplexer broker",
		zap.String("port", cfg.Server.Port),
		zap.Bool("tmux_enabled", cfg.Terminal.TmuxEnabled),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("broker", logger.Logger)

	coord := coordinator.New(coordinator.Config{
		ScrollbackCap: cfg.Terminal.ScrollbackCapBytes,
		QueueCap:      cfg.Terminal.QueueCap,
		EvictThresh:   cfg.Terminal.EvictThreshBytes,
		OpTimeout:     time.Duration(cfg.Terminal.OpTimeoutMillis) * time.Millisecond,
		TmuxEnabled:   cfg.Terminal.TmuxEnabled,
		TmuxBinary:    cfg.Terminal.TmuxBinary,
	}, logger.Logger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(coord, metrics, logger.Logger)
	wsHandler := ws.NewHandler(coord, metrics, logger.Logger)

	router.GET("/healthz", handlers.Health)
	router.GET("/metrics", apihttp.MetricsHandler())

	router.POST("/windows", handlers.Create)
	router.GET("/windows", handlers.List)
	router.GET("/windows/:id", handlers.Get)
	router.DELETE("/windows/:id", handlers.Kill)
	router.POST("/windows/:id/resize", handlers.Resize)
	router.GET("/windows/:id/scrollback", handlers.Scrollback)
	router.GET("/windows/:id/stream", wsHandler.HandleStream)

	logger.Info("broker initialized")

	return &Server{router: router, coord: coord, logger: logger, config: cfg}, nil
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close logs the shutdown and syncs the logger. It does not stop the
// HTTP listener and does not kill live Windows.
func (s *Server) Close() error {
	s.logger.Info("shutting down server")
	s.logger.Sync()
	return nil
}
