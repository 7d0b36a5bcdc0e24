// Package daemon runs the stockwised HTTP server: the dashboard pages, the
// JSON status API and the wiring between them.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/stockwise/internal/auth"
	"github.com/felixgeelhaar/stockwise/internal/config"
	"github.com/felixgeelhaar/stockwise/internal/events"
	"github.com/felixgeelhaar/stockwise/internal/inventory"
	"github.com/felixgeelhaar/stockwise/internal/predict"
	"github.com/felixgeelhaar/stockwise/internal/session"
	"github.com/felixgeelhaar/stockwise/internal/web"
)

// Server represents the Stockwise daemon HTTP server
type Server struct {
	cfg     *config.LocalConfig
	server  *http.Server
	router  *http.ServeMux
	handler http.Handler
	logger  *slog.Logger
	version string
	started time.Time

	// Services
	storage   *Storage
	machine   *auth.Machine
	catalog   *inventory.Catalog
	predict   *predict.Service
	publisher events.Publisher
	eventsTo  string
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config  *config.LocalConfig
	DataDir string // Root for file backed storage, ~/.stockwise when empty
	Version string
	Logger  *slog.Logger
}

// NewServer creates a new daemon server. The auth state is rehydrated from
// the configured store before the server accepts requests.
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		return nil, errors.New("server config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		cfg:     cfg.Config,
		router:  http.NewServeMux(),
		logger:  logger,
		version: version,
		started: time.Now(),
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dir, err := config.StockwiseDir()
		if err != nil {
			return nil, fmt.Errorf("get stockwise dir: %w", err)
		}
		dataDir = dir
	}

	store, err := OpenStorage(ctx, cfg.Config.Storage, dataDir)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	s.storage = store

	s.machine = auth.NewMachine(session.NewStore(store, logger), logger)
	state := s.machine.Start(ctx)
	logger.Info("session rehydrated", "state", state.String(), "storage", store.Backend)

	s.publisher, s.eventsTo = OpenPublisher(cfg.Config.Events, logger)
	s.catalog = inventory.NewCatalog(inventory.DefaultProducts(), inventory.NewFeed(), s.publisher, logger)
	s.predict = predict.NewService(PredictConfig(cfg.Config.Services, logger))

	pages, err := web.New(web.Config{
		Machine:   s.machine,
		Catalog:   s.catalog,
		Predict:   s.predict,
		Publisher: s.publisher,
		Logger:    logger,
	})
	if err != nil {
		s.closeServices()
		return nil, fmt.Errorf("create web handler: %w", err)
	}

	s.setupRoutes(pages)

	s.handler = correlationIDMiddleware(recoveryMiddleware(logger, loggingMiddleware(logger, s.router)))
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Config.Daemon.Bind, cfg.Config.Daemon.Port),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// PredictConfig maps the services section of the config onto the prediction
// clients
func PredictConfig(svc config.ServicesConfig, logger *slog.Logger) predict.Config {
	cfg := predict.DefaultConfig()
	cfg.FraudURL = svc.FraudURL
	cfg.SupplierURL = svc.SupplierURL
	cfg.ForecastURL = svc.ForecastURL
	cfg.ProcurementURL = svc.ProcurementURL
	if t := svc.Timeout(); t > 0 {
		cfg.Timeout = t
	}
	cfg.DemoFallback = svc.DemoFallback
	cfg.Logger = logger
	cfg.Resilience.Logger = logger
	return cfg
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(pages *web.Handler) {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)
	s.router.HandleFunc("GET /v1/session", s.handleSession)

	// Inventory
	s.router.HandleFunc("GET /v1/products", s.requireSession(s.handleListProducts))
	s.router.HandleFunc("POST /v1/products/{id}/deduct", s.requireSession(s.handleDeductProduct))
	s.router.HandleFunc("GET /v1/activity", s.requireSession(s.handleActivity))

	// Dashboard pages
	pages.Register(s.router)
}

// Handler returns the full middleware-wrapped handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting stockwise daemon",
		"addr", s.server.Addr,
		"version", s.version,
		"storage", s.storage.Backend,
		"demo_fallback", s.predict.DemoFallback(),
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server, then closes the event publisher,
// the prediction clients and the storage backend.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down daemon...")

	err := s.server.Shutdown(ctx)
	return errors.Join(err, s.closeServices())
}

func (s *Server) closeServices() error {
	var errs []error
	if err := s.publisher.Close(); err != nil {
		s.logger.Warn("failed to close event publisher", "error", err)
		errs = append(errs, err)
	}
	if err := s.predict.Close(); err != nil {
		s.logger.Warn("failed to close prediction clients", "error", err)
		errs = append(errs, err)
	}
	if err := s.storage.Close(); err != nil {
		s.logger.Warn("failed to close storage", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
