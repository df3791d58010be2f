package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lunarjar/wishtree/pkg/api"
	"github.com/lunarjar/wishtree/pkg/audit"
	"github.com/lunarjar/wishtree/pkg/auth"
	"github.com/lunarjar/wishtree/pkg/config"
	"github.com/lunarjar/wishtree/pkg/invites"
	"github.com/lunarjar/wishtree/pkg/middleware"
	"github.com/lunarjar/wishtree/pkg/observability"
	"github.com/lunarjar/wishtree/pkg/perm"
	"github.com/lunarjar/wishtree/pkg/store"
	"github.com/lunarjar/wishtree/pkg/trees"
	"github.com/lunarjar/wishtree/pkg/wishes"
)

const sweepSchedule = "30 3 * * *"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wishtree: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Infof("Starting wishtree (storage=%s)", cfg.Storage.Type)

	ctx := context.Background()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("init opentelemetry: %w", err)
	}

	// Storage
	var (
		recordStore store.RecordStore
		pg          *store.PostgresStore
	)
	switch cfg.Storage.Type {
	case "postgres":
		pg, err = store.NewPostgresStore(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		recordStore = pg
	default:
		logger.Warn("Using in-memory storage; all data is lost on restart")
		recordStore = store.NewMemoryStore()
	}

	// Redis backs distributed rate limiting only. Without it we fall back to
	// per-process limits.
	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisURL,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable at startup, rate limiting degrades to per-process")
		}
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Permission engine
	engineOpts := []perm.Option{
		perm.WithCheckTimeout(cfg.Permissions.CheckTimeout),
		perm.WithLogger(logger),
		perm.WithMetrics(metrics),
	}
	if cfg.Permissions.AdminListPath != "" {
		adminList, err := config.NewAdminList(cfg.Permissions.AdminListPath)
		if err != nil {
			return fmt.Errorf("load admin list: %w", err)
		}
		defer adminList.Close()
		if err := adminList.Watch(func(count int) {
			logger.Infof("Admin list reloaded, %d entries", count)
		}); err != nil {
			logger.WithError(err).Warn("Admin list file watch unavailable, edits require a restart")
		}
		logger.Infof("Admin allow-list loaded, %d entries", adminList.Len())
		engineOpts = append(engineOpts, perm.WithAdminRoster(adminList))
	}
	engine := perm.NewEngine(recordStore, engineOpts...)

	// Audit trail persists only with a database behind it
	var auditLogger audit.Logger = audit.NopLogger{}
	if pg != nil {
		dbLogger, err := audit.NewDBLogger(pg.DB())
		if err != nil {
			return fmt.Errorf("init audit logger: %w", err)
		}
		auditLogger = dbLogger
	}

	treeService := trees.NewService(recordStore, engine, auditLogger, logger)
	wishService := wishes.NewService(recordStore, engine, auditLogger, logger)
	inviteService := invites.NewService(recordStore, engine, auditLogger, logger)

	// Middleware chain, outermost first. Auth runs before rate limiting so
	// the limiter keys authenticated callers by user ID instead of lumping
	// everyone behind one proxy into a single IP bucket.
	middlewares := []mux.MiddlewareFunc{
		middleware.RequestID(logger),
		metrics.HTTPMiddleware,
	}
	if cfg.Auth.IssuerURL != "" {
		verifier, err := auth.NewOIDCVerifier(ctx, cfg.Auth.IssuerURL, cfg.Auth.ClientID)
		if err != nil {
			return fmt.Errorf("init oidc verifier: %w", err)
		}
		middlewares = append(middlewares, middleware.NewAuthMiddleware(verifier, recordStore, cfg.Auth.Optional).Handler)
	} else {
		logger.Warn("No OIDC issuer configured, all requests are treated as guests")
	}
	if redisClient != nil {
		middlewares = append(middlewares, middleware.NewDistributedRateLimitMiddleware(redisClient).Handler)
	} else {
		middlewares = append(middlewares, middleware.NewRateLimitMiddleware().Handler)
	}

	apiServer := api.NewServer(treeService, wishService, inviteService, logger, middlewares...)

	// Nightly sweep of spent invite codes
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(sweepSchedule, func() {
		defer observability.RecoverPanic(logger, "invite code sweep")
		if _, err := inviteService.Sweep(context.Background()); err != nil {
			logger.WithError(err).Error("Invite code sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule invite sweep: %w", err)
	}
	scheduler.Start()

	// Health and metrics live on their own port so probes bypass auth and
	// rate limiting.
	healthChecker := newHealthChecker(pg, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", healthChecker.Liveness)
	healthMux.HandleFunc("/readyz", healthChecker.Readiness)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", metrics.Handler())
	}

	var appHandler http.Handler = apiServer
	if cfg.Observability.OTelEnabled {
		appHandler = otelhttp.NewHandler(appHandler, "wishtree.api")
	}

	appServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      appHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	var g errgroup.Group
	g.Go(func() error {
		logger.Infof("API server listening on %s", appServer.Addr)
		if err := appServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, appServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		stopped := scheduler.Stop()
		select {
		case <-stopped.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(otelProviders.Shutdown)
	}

	if err := shutdown.WaitForShutdown(); err != nil {
		return err
	}
	return g.Wait()
}

func newHealthChecker(pg *store.PostgresStore, redisClient *redis.Client) *observability.HealthChecker {
	if pg != nil {
		return observability.NewHealthChecker(pg.DB(), redisClient)
	}
	return observability.NewHealthChecker(nil, redisClient)
}
