package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	accountingapp "github.com/commandx/backend/internal/application/accounting"
	integrationapp "github.com/commandx/backend/internal/application/integration"
	periodlockapp "github.com/commandx/backend/internal/application/periodlock"
	"github.com/commandx/backend/internal/domain/integration"
	"github.com/commandx/backend/internal/infrastructure/auth"
	"github.com/commandx/backend/internal/infrastructure/cache"
	"github.com/commandx/backend/internal/infrastructure/config"
	"github.com/commandx/backend/internal/infrastructure/logger"
	"github.com/commandx/backend/internal/infrastructure/persistence"
	"github.com/commandx/backend/internal/infrastructure/persistence/tenant"
	"github.com/commandx/backend/internal/infrastructure/quickbooks"
	"github.com/commandx/backend/internal/infrastructure/telemetry"
	"github.com/commandx/backend/internal/interfaces/http/handler"
	"github.com/commandx/backend/internal/interfaces/http/middleware"
	"github.com/commandx/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting CommandX backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	metrics, err := telemetry.NewPeriodLockMetrics(telemetry.PeriodLockMetricsConfig{
		Meter:  meterProvider.Meter(telemetry.TracerName),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to create period lock metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel), cfg.Database.SlowThreshold)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if err := tenant.Guard(db.DB); err != nil {
		log.Fatal("Failed to register tenant guard", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis is optional unless the snapshot cache needs it
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err), zap.String("addr", cfg.Redis.Addr()))
		}
		defer func() { _ = redisClient.Close() }()
	}
	snapshotCache, stopCache, err := cache.NewSnapshotCache(ctx, cfg.PeriodLock, redisClient, log)
	if err != nil {
		log.Fatal("Failed to create snapshot cache", zap.Error(err))
	}
	defer stopCache()

	// Repositories
	periodStore := persistence.NewGormPeriodStore(db.DB)
	violationRepo := persistence.NewGormViolationRepository(db.DB)
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	mappingRepo := persistence.NewGormMappingRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	apiLogRepo := persistence.NewGormAPILogRepository(db.DB)

	// Period lock
	advisoryGate := periodlockapp.NewAdvisoryGate(periodlockapp.AdvisoryGateConfig{
		Store:  periodStore,
		Cache:  snapshotCache,
		Logger: log,
	})
	enforcementGate := periodlockapp.NewEnforcementGate(periodlockapp.EnforcementGateConfig{
		Store:            periodStore,
		Violations:       violationRepo,
		Recorder:         metrics,
		BatchConcurrency: cfg.PeriodLock.BatchConcurrency,
		Logger:           log,
	})
	adminService := periodlockapp.NewAdminService(periodStore, violationRepo, advisoryGate, log)

	// Documents and QuickBooks
	documentService := accountingapp.NewDocumentService(documentRepo, enforcementGate, log)
	syncService := integrationapp.NewSyncService(integrationapp.SyncServiceConfig{
		Documents: documentRepo,
		Mappings:  mappingRepo,
		SyncLog:   syncLogRepo,
		Gateway:   newQuickBooksGateway(cfg.QuickBooks, apiLogRepo, metrics, log),
		Gate:      enforcementGate,
		Logger:    log,
	})

	// HTTP
	middleware.SetupValidator()
	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Tracing:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	health := handler.NewHealthHandler(db.Ping)
	if redisClient != nil {
		health.With("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	engine.GET("/health", health.Handle)

	jwtService := auth.NewJWTService(cfg.JWT)
	router.NewRouter(engine,
		router.WithMiddleware(
			middleware.JWTAuth(middleware.JWTConfig{Validator: jwtService, Logger: log}),
			middleware.TraceAttributes(),
		),
	).
		Register(handler.NewPeriodLockHandler(advisoryGate, enforcementGate, adminService, log)).
		Register(handler.NewDocumentHandler(documentService)).
		Register(handler.NewQuickBooksHandler(syncService)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	_ = meterProvider.Shutdown(shutdownCtx)
	_ = tracerProvider.Shutdown(shutdownCtx)

	log.Info("Server exited gracefully")
}

// newQuickBooksGateway returns the QuickBooks client, or a gateway that
// reports "not connected" when no company is configured.
func newQuickBooksGateway(
	cfg config.QuickBooksConfig,
	apiLog integration.APILogRepository,
	metrics quickbooks.CallRecorder,
	log *zap.Logger,
) integration.QuickBooksGateway {
	client, err := quickbooks.NewClient(cfg,
		quickbooks.WithAPILog(apiLog),
		quickbooks.WithMetrics(metrics),
		quickbooks.WithLogger(log),
	)
	if errors.Is(err, quickbooks.ErrMissingRealmID) {
		log.Warn("QuickBooks realm not configured, sync disabled")
		return quickbooks.Disconnected{}
	}
	if err != nil {
		log.Fatal("Failed to create QuickBooks client", zap.Error(err))
	}
	return client
}
