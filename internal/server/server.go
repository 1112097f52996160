// Package server wires the gateway's HTTP surface.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ragulnathMB/tenant-api-gateway/internal/config"
	"github.com/ragulnathMB/tenant-api-gateway/internal/handlers"
	"github.com/ragulnathMB/tenant-api-gateway/internal/metrics"
	"github.com/ragulnathMB/tenant-api-gateway/internal/middleware"
)

const healthTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the components the routes are served by.
type Deps struct {
	Store     Pinger
	Catalog   handlers.CatalogService
	Forwarder handlers.Forwarder
	Prober    handlers.Prober
	// Admin guards /api; nil leaves it open.
	Admin    func(http.Handler) http.Handler
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	deps       Deps
	logger     *zap.Logger
	cfg        *config.Config
}

func NewServer(cfg *config.Config, deps Deps, logger *zap.Logger) *Server {
	router := chi.NewRouter()
	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		deps:   deps,
		logger: logger,
		cfg:    cfg,
	}
}

// SetupRoutes configures middleware and all HTTP routes.
func (s *Server) SetupRoutes() {
	r := s.router
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(s.logger, s.deps.Metrics))
	r.Use(chimw.Recoverer)
	if s.cfg.CORS.Enabled {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: s.cfg.CORS.AllowedOrigins,
			AllowedMethods: s.cfg.CORS.AllowedMethods,
			AllowedHeaders: s.cfg.CORS.AllowedHeaders,
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         s.cfg.CORS.MaxAge,
		}).Handler)
	}

	r.Get("/health", s.health)
	if s.cfg.Metrics.Enabled && s.deps.Gatherer != nil {
		r.Method(http.MethodGet, s.cfg.Metrics.Path, metrics.Handler(s.deps.Gatherer))
	}

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimiter.Enabled {
			rl := middleware.NewRateLimiter(s.cfg.RateLimiter.RequestsPerSecond, s.cfg.RateLimiter.BurstSize, s.logger)
			r.Use(rl.Limit)
		}
		forward := handlers.ForwardHandler(s.deps.Forwarder, s.cfg.Gateway.MaxRequestBytes, s.logger)
		r.HandleFunc("/gateway/{tenantID}/{section}/{apiName}", forward)
		r.HandleFunc("/gateway/{tenantID}/{section}/{apiName}/*", forward)
		r.HandleFunc("/proxy/{section}/{apiName}", forward)
		r.HandleFunc("/proxy/{section}/{apiName}/*", forward)
	})

	r.Route("/api", func(r chi.Router) {
		if s.deps.Admin != nil {
			r.Use(s.deps.Admin)
		}
		r.Get("/tenants/{tenantID}/apis", handlers.ListAPIsHandler(s.deps.Catalog, s.logger))
		r.Post("/tenants/{tenantID}/apis", handlers.AddAPIHandler(s.deps.Catalog, s.logger))
		r.Patch("/tenants/{tenantID}/apis/{section}/{apiName}", handlers.UpdateAPIHandler(s.deps.Catalog, s.logger))
		r.Delete("/tenants/{tenantID}/apis/{section}/{apiName}", handlers.DeleteAPIHandler(s.deps.Catalog, s.logger))
		r.Post("/check-tenant-api", handlers.CheckAPIHandler(s.deps.Prober, s.logger))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusNotFound, map[string]string{"error": "endpoint not found", "code": "NOT_FOUND"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed", "code": "METHOD_NOT_ALLOWED"})
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	body := map[string]string{"status": "ok", "store": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)}
	if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.Warn("store ping failed", zap.Error(err))
		body["status"] = "degraded"
		body["store"] = err.Error()
		writeStatus(w, http.StatusServiceUnavailable, body)
		return
	}
	writeStatus(w, http.StatusOK, body)
}

func writeStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
