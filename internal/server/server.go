// Package server sets up the HTTP server with all routes.
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/kmadera/payfriend/internal/auth"
	"github.com/kmadera/payfriend/internal/config"
	"github.com/kmadera/payfriend/internal/health"
	"github.com/kmadera/payfriend/internal/ledger"
	"github.com/kmadera/payfriend/internal/logging"
	"github.com/kmadera/payfriend/internal/metrics"
	"github.com/kmadera/payfriend/internal/realtime"
	"github.com/kmadera/payfriend/internal/risk"
	"github.com/kmadera/payfriend/internal/traces"
	"github.com/kmadera/payfriend/internal/validation"
)

// Server wraps the HTTP server and dependencies.
type Server struct {
	cfg          *config.Config
	svc          *ledger.Service
	hub          *realtime.Hub
	verifier     auth.Verifier
	healthReg    *health.Registry
	db           *sql.DB // nil when using in-memory storage
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	tracesDown   func(context.Context) error
	cancelRunCtx context.CancelFunc

	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithVerifier sets a custom token verifier (for testing).
func WithVerifier(v auth.Verifier) Option {
	return func(s *Server) { s.verifier = v }
}

// New creates a new server instance.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		logger:    logging.New(cfg.LogLevel, cfg.LogFormat),
		healthReg: health.NewRegistry(),
	}

	for _, opt := range opts {
		opt(s)
	}

	// Storage: Postgres when DATABASE_URL is set, otherwise in-memory.
	var store ledger.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		store = ledger.NewPostgresStore(db)
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		s.healthReg.Register("database", func(ctx context.Context) health.Status {
			if err := db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
	} else {
		store = ledger.NewMemoryStore()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	// Risk scoring: LLM client when a key is configured, keyword stubs
	// otherwise. Stubs are a development convenience only; production
	// config requires RISK_API_KEY.
	var scorer risk.Scorer
	var explainer risk.Explainer
	if cfg.RiskAPIKey != "" {
		client := risk.NewClient(risk.ClientConfig{
			APIURL:  cfg.RiskAPIURL,
			APIKey:  cfg.RiskAPIKey,
			Model:   cfg.RiskModel,
			Timeout: cfg.RiskTimeout,
		}, s.logger)
		scorer, explainer = client, client
		s.logger.Info("risk scoring via LLM", "model", cfg.RiskModel)
	} else {
		scorer, explainer = risk.StubScorer{}, risk.StubExplainer{}
		s.logger.Warn("RISK_API_KEY not set, using stub risk scorer")
	}

	s.hub = realtime.NewHub(s.logger)
	s.svc = ledger.NewService(store, ledger.DefaultGate(), scorer, explainer, s.logger).
		WithPublisher(s.hub)

	// Auth: static dev verifier from DEV_USERS unless one was injected.
	if s.verifier == nil && cfg.DevUsers != "" {
		v, err := auth.ParseDevUsers(cfg.DevUsers)
		if err != nil {
			return nil, fmt.Errorf("invalid DEV_USERS: %w", err)
		}
		s.verifier = v
		s.logger.Info("static dev credentials loaded")
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides the password in a connection string for logging.
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	s.router.Use(validation.RequestSizeMiddleware(s.cfg.RequestSizeLimit))
	s.router.Use(metrics.Middleware())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	if s.verifier != nil {
		provision := auth.ProvisionFunc(func(ctx context.Context, p auth.Profile) error {
			_, err := s.svc.UpsertUser(ctx, ledger.Profile{
				UID:       p.UID,
				Email:     p.Email,
				Name:      p.Name,
				AvatarURL: p.AvatarURL,
			})
			return err
		})
		s.router.Use(auth.Middleware(s.verifier, provision, s.logger))
	}
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	s.router.GET("/api", s.infoHandler)

	// WebSocket transfer feed
	s.router.GET("/ws", func(c *gin.Context) {
		s.hub.HandleWebSocket(c.Writer, c.Request)
	})

	v1 := s.router.Group("/api/v1")
	ledgerHandler := ledger.NewHandler(s.svc, s.logger)
	ledgerHandler.RegisterRoutes(v1)
}

// HealthResponse for the aggregate health endpoint.
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, checks := s.healthReg.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "PayFriend",
		"description": "Peer-to-peer money transfers with fraud screening",
		"version":     "0.1.0",
	})
}

// Run starts the HTTP server with graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	shutdown, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("tracing init failed", "error", err)
	} else {
		s.tracesDown = shutdown
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go s.hub.Run(runCtx)

	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	if s.tracesDown != nil {
		if err := s.tracesDown(ctx); err != nil {
			s.logger.Error("trace exporter shutdown error", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
