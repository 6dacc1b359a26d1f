// Package http exposes the notifier over HTTP: build systems POST finished
// builds, operators read health and save the gateway configuration.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kart-io/buildnotify/pkg/logger"
	"github.com/kart-io/buildnotify/transport/http/handlers"
	"github.com/kart-io/buildnotify/transport/http/middleware"
)

// Config holds HTTP server configuration
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxHeaderBytes int
	// APIKeys protect /builds and enable /config. Empty leaves /builds
	// open and /config unregistered.
	APIKeys []string
	Version string
}

// Server serves the build intake
type Server struct {
	notifier handlers.Performer
	store    handlers.GatewayStore
	config   Config
	logger   logger.Logger
	stats    *handlers.Stats
	server   *http.Server
}

// NewServer creates a server. store may be nil.
func NewServer(n handlers.Performer, store handlers.GatewayStore, config *Config, log logger.Logger) *Server {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// One event may wait on several gateway round trips.
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.MaxHeaderBytes == 0 {
		cfg.MaxHeaderBytes = 1 << 20
	}

	s := &Server{
		notifier: n,
		store:    store,
		config:   cfg,
		logger:   logger.OrDiscard(log),
		stats:    &handlers.Stats{},
	}
	s.server = &http.Server{
		Addr:           cfg.Addr,
		Handler:        s.Handler(),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}
	return s
}

// Handler builds the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	logging := middleware.NewLoggingMiddleware(s.logger)
	auth := middleware.NewAuthMiddleware(s.config.APIKeys...)

	builds := handlers.NewBuildsHandler(s.notifier, s.stats).Handle
	if auth.Enabled() {
		builds = auth.Middleware(builds)
	}
	mux.HandleFunc("/builds", logging.Middleware(builds))
	mux.HandleFunc("/health", handlers.NewHealthHandler(s.stats, s.config.Version).Handle)

	if s.store != nil && auth.Enabled() {
		cfgHandler := handlers.NewConfigHandler(s.store)
		mux.HandleFunc("/config", logging.Middleware(auth.Middleware(cfgHandler.Handle)))
	}
	return mux
}

// Start listens until Stop is called
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.config.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
