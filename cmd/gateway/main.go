// Command gateway runs the multi-tenant API gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ragulnathMB/tenant-api-gateway/internal/apierrors"
	"github.com/ragulnathMB/tenant-api-gateway/internal/auth"
	"github.com/ragulnathMB/tenant-api-gateway/internal/catalog"
	"github.com/ragulnathMB/tenant-api-gateway/internal/config"
	"github.com/ragulnathMB/tenant-api-gateway/internal/engine"
	"github.com/ragulnathMB/tenant-api-gateway/internal/metrics"
	"github.com/ragulnathMB/tenant-api-gateway/internal/server"
	"github.com/ragulnathMB/tenant-api-gateway/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)
	if err := run(cfg, logger); err != nil {
		logger.Error("gateway exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

// run wires the gateway and serves until a signal or a server error. Every
// resource it opens is released before it returns.
func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("store_type", cfg.Store.Type),
		zap.Bool("admin_auth", cfg.Admin.Enabled),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	backend, err := openStore(ctx, cfg.Store, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to open catalog store: %w", err)
	}
	defer backend.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	manager := catalog.NewManager(backend, logger, m, catalog.Options{SerializeWrites: cfg.Catalog.SerializeWrites})

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	seedTenants(seedCtx, backend, manager, cfg.SeedTenants, logger)
	seedCancel()

	client := engine.NewHTTPClient()
	forwarder, err := engine.NewForwarder(manager, client, engine.ForwarderConfig{
		Timeout:           cfg.Gateway.ForwardTimeout,
		DefaultBackendURL: cfg.Gateway.DefaultBackendURL,
		MaxResponseBytes:  cfg.Gateway.MaxResponseBytes,
	}, logger, m)
	if err != nil {
		return fmt.Errorf("failed to create forwarder: %w", err)
	}
	prober := engine.NewProber(client, cfg.Gateway.ProbeTimeout, logger, m)

	var admin func(http.Handler) http.Handler
	if cfg.Admin.Enabled {
		var validator *auth.JWTValidator
		if cfg.Admin.JWKSURL != "" {
			validator, err = auth.NewJWKSValidator(cfg.Admin.JWKSURL, cfg.Admin.Issuer, cfg.Admin.Audience, cfg.Admin.JWKSRefresh, logger)
			if err != nil {
				return fmt.Errorf("failed to initialise admin jwt validator: %w", err)
			}
			defer validator.Close()
		}
		admin = auth.AdminMiddleware(cfg.Admin.Token, validator, logger)
	} else {
		logger.Warn("admin auth disabled, management routes are unprotected")
	}

	httpServer := server.NewServer(cfg, server.Deps{
		Store:     backend,
		Catalog:   manager,
		Forwarder: forwarder,
		Prober:    prober,
		Admin:     admin,
		Metrics:   m,
		Gatherer:  reg,
	}, logger)
	httpServer.SetupRoutes()

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case serveErr = <-errChan:
		logger.Error("server error", zap.Error(serveErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", zap.Error(err))
	}
	logger.Info("gateway shutdown complete")
	return serveErr
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.Backend, error) {
	switch cfg.Type {
	case config.StorePostgres:
		pg, err := store.OpenPostgres(ctx, store.PostgresOptions{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.AutoMigrate {
			if err := store.EnsureSchema(ctx, pg.DB()); err != nil {
				_ = pg.Close()
				return nil, fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return pg, nil
	case config.StoreRedis:
		rs, err := store.OpenRedis(ctx, store.RedisOptions{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			PoolTimeout: cfg.Redis.PoolTimeout,
			KeyPrefix:   cfg.Redis.KeyPrefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		return rs, nil
	default:
		logger.Info("using in-memory catalog store")
		return store.NewMemoryStore(), nil
	}
}

// seedTenants creates configured tenants and their APIs. Existing tenants and
// entries are left untouched so restarts are idempotent.
func seedTenants(ctx context.Context, ts store.TenantStore, mgr *catalog.Manager, seeds []config.SeedTenant, logger *zap.Logger) {
	for _, t := range seeds {
		err := ts.CreateTenant(ctx, store.Tenant{ID: t.ID, Name: t.Name})
		switch {
		case err == nil:
			logger.Info("seeded tenant", zap.String("tenant_id", t.ID))
		case errors.Is(err, store.ErrTenantExists):
		default:
			logger.Error("failed to seed tenant", zap.String("tenant_id", t.ID), zap.Error(err))
			continue
		}

		for _, api := range t.APIs {
			_, err := mgr.Add(ctx, t.ID, catalog.AddRequest{
				Section: api.Section,
				APIName: api.APIName,
				URL:     api.URL,
				Method:  api.Method,
			})
			if err != nil && !apierrors.Is(err, apierrors.KindDuplicateEntry) {
				logger.Error("failed to seed api",
					zap.String("tenant_id", t.ID),
					zap.String("section", api.Section),
					zap.String("api_name", api.APIName),
					zap.Error(err),
				)
			}
		}
	}
}

// initLogger builds the zap logger from the logging section.
func initLogger(cfg config.LoggingConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stdout"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
