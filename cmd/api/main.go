// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/gigmarket/internal/admin"
	"github.com/carterperez-dev/gigmarket/internal/audit"
	"github.com/carterperez-dev/gigmarket/internal/auth"
	"github.com/carterperez-dev/gigmarket/internal/catalog"
	"github.com/carterperez-dev/gigmarket/internal/config"
	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/dispute"
	"github.com/carterperez-dev/gigmarket/internal/gig"
	"github.com/carterperez-dev/gigmarket/internal/health"
	"github.com/carterperez-dev/gigmarket/internal/middleware"
	"github.com/carterperez-dev/gigmarket/internal/moderation"
	"github.com/carterperez-dev/gigmarket/internal/notification"
	"github.com/carterperez-dev/gigmarket/internal/ops"
	"github.com/carterperez-dev/gigmarket/internal/order"
	"github.com/carterperez-dev/gigmarket/internal/outbox"
	"github.com/carterperez-dev/gigmarket/internal/payment"
	"github.com/carterperez-dev/gigmarket/internal/rbac"
	"github.com/carterperez-dev/gigmarket/internal/server"
	"github.com/carterperez-dev/gigmarket/internal/settings"
	"github.com/carterperez-dev/gigmarket/internal/trust"
	"github.com/carterperez-dev/gigmarket/internal/user"
)

const (
	drainDelay     = 5 * time.Second
	webhookTimeout = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// sessionRevoker lets trust end sessions through an auth service that is
// built after it, since auth also reads suspensions from trust.
type sessionRevoker struct {
	auth *auth.Service
}

func (s *sessionRevoker) LogoutAll(ctx context.Context, userID string) error {
	return s.auth.LogoutAll(ctx, userID)
}

//nolint:funlen,gocyclo // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	if cfg.Database.AutoMigrate {
		if err := core.MigrateUp(cfg.Database.URL, logger); err != nil {
			return err
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	deps := []health.Dependency{
		{Name: "database", Checker: db},
		{Name: "redis", Checker: redis},
	}

	var events outbox.Publisher = outbox.LogPublisher{Logger: logger}
	if cfg.NATS.Enabled {
		conn, natsErr := outbox.ConnectNATS(cfg.NATS.URL, cfg.App.Name, logger)
		if natsErr != nil {
			return natsErr
		}
		defer conn.Close()

		natsPublisher := outbox.NewNATSPublisher(conn)
		events = natsPublisher
		deps = append(deps, health.Dependency{
			Name:     "nats",
			Checker:  natsPublisher,
			Optional: true,
		})
		logger.Info("nats connected", "url", cfg.NATS.URL)
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.KeyID(),
	)

	rbacSvc := rbac.NewService(rbac.ServiceConfig{
		DB:        db,
		CacheSize: cfg.Cache.RoleSize,
		CacheTTL:  cfg.Cache.RoleTTL,
	})

	userSvc := user.NewService(user.ServiceConfig{
		DB:        db,
		RoleCache: rbacSvc,
	})

	revoker := &sessionRevoker{}
	trustSvc := trust.NewService(trust.ServiceConfig{
		DB:       db,
		Sessions: revoker,
		Logger:   logger,
	})

	authSvc := auth.NewService(auth.ServiceConfig{
		Repository:  auth.NewRepository(db.DB),
		JWT:         jwtManager,
		Users:       userSvc,
		Suspensions: trustSvc,
		Redis:       redis.Client,
		Logger:      logger,
	})
	revoker.auth = authSvc

	catalogSvc := catalog.NewService(catalog.ServiceConfig{
		DB:        db,
		CacheSize: cfg.Cache.CatalogSize,
		CacheTTL:  cfg.Cache.CatalogTTL,
	})

	gigSvc := gig.NewService(gig.ServiceConfig{
		DB:      db,
		Sellers: userSvc,
	})

	moderationSvc := moderation.NewService(moderation.ServiceConfig{
		DB:     db,
		Gigs:   gigSvc,
		Warner: trustSvc,
		Logger: logger,
	})

	orderSvc := order.NewService(order.ServiceConfig{
		DB:            db,
		Gigs:          gigSvc,
		Provider:      payment.NewStripeClient(cfg.Payment, logger),
		WebhookSecret: cfg.Payment.WebhookSecret,
		FrontendURL:   cfg.App.FrontendURL,
		Logger:        logger,
	})

	disputeSvc := dispute.NewService(dispute.ServiceConfig{
		DB:     db,
		Orders: orderSvc,
	})

	opsSvc := ops.NewService(ops.ServiceConfig{
		DB:    db,
		Roles: rbacSvc,
	})

	settingsSvc := settings.NewService(settings.ServiceConfig{DB: db})

	relay := outbox.NewRelay(outbox.RelayConfig{
		DB:            db,
		Publisher:     events,
		AfterCommit:   settings.NewDispatcher(db, webhookTimeout, logger),
		SubjectPrefix: cfg.NATS.SubjectPrefix,
		Outbox:        cfg.Outbox,
		Logger:        logger,
	})

	healthHandler := health.NewHandler(deps...)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Counter:    admin.NewRepository(db.DB),
		DBStats:    db.Stats,
		DBPing:     db.Ping,
		RedisStats: redis.PoolStats,
		RedisPing:  redis.Ping,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		MetricsConfig: cfg.Metrics,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			LocalFallback: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	srv.MountMetrics()
	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.JWKSHandler())

	authenticator := middleware.Authenticator(authSvc)
	optionalAuth := middleware.OptionalAuth(authSvc)
	adminOnly := middleware.RequireAdmin
	staffOnly := middleware.RequireRole(rbac.StaffRoles...)
	moderatorOnly := middleware.RequireRole(rbac.RoleAdmin, rbac.RoleModerator)
	freshAdmin := middleware.RequireFreshRole(rbacSvc, rbac.RoleAdmin)

	checkoutLimit := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Name:          "checkout",
		Limit:         middleware.PerMinute(cfg.RateLimit.CheckoutRequests, cfg.RateLimit.CheckoutRequests),
		KeyFunc:       middleware.KeyByUserAndEndpoint,
		LocalFallback: true,
	}).Handler

	router.Route("/v1", func(r chi.Router) {
		auth.NewHandler(authSvc).RegisterRoutes(r, authenticator)

		userHandler := user.NewHandler(userSvc)
		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly, freshAdmin)

		rbac.NewHandler(rbacSvc).RegisterRoutes(r, authenticator, adminOnly)
		trust.NewHandler(trustSvc).RegisterRoutes(r, authenticator, moderatorOnly, adminOnly)

		catalog.NewHandler(catalogSvc).RegisterRoutes(r, authenticator, adminOnly)
		gig.NewHandler(gigSvc).RegisterRoutes(r, authenticator, optionalAuth)
		moderation.NewHandler(moderationSvc).RegisterRoutes(r, authenticator, moderatorOnly)

		orderHandler := order.NewHandler(orderSvc)
		orderHandler.RegisterRoutes(r, authenticator, checkoutLimit)
		orderHandler.RegisterAdminRoutes(r, authenticator)

		dispute.NewHandler(disputeSvc).RegisterRoutes(r, authenticator)
		ops.NewHandler(opsSvc).RegisterRoutes(r, authenticator)

		notificationHandler := notification.NewHandler(
			notification.NewService(notification.NewRepository(db.DB)),
		)
		notificationHandler.RegisterRoutes(r, authenticator)
		notificationHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		audit.NewHandler(audit.NewService(audit.NewRepository(db.DB))).
			RegisterRoutes(r, authenticator, adminOnly, staffOnly)
		settings.NewHandler(settingsSvc).RegisterRoutes(r, authenticator, adminOnly, freshAdmin)
		adminHandler.RegisterRoutes(r, authenticator, staffOnly, adminOnly)
	})

	relayCtx, stopRelay := context.WithCancel(context.Background())
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(relayCtx)
	}()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		stopRelay()
		<-relayDone
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	stopRelay()
	<-relayDone

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
