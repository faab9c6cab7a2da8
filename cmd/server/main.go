package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appcatalog "github.com/erp/warehouse/internal/application/catalog"
	apppurchasing "github.com/erp/warehouse/internal/application/purchasing"
	appshipment "github.com/erp/warehouse/internal/application/shipment"
	"github.com/erp/warehouse/internal/application/stock"
	appwarehouse "github.com/erp/warehouse/internal/application/warehouse"
	"github.com/erp/warehouse/internal/infrastructure/cache"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/erp/warehouse/internal/infrastructure/event"
	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/infrastructure/migration"
	"github.com/erp/warehouse/internal/infrastructure/persistence"
	"github.com/erp/warehouse/internal/infrastructure/scheduler"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/erp/warehouse/internal/interfaces/http/handler"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/erp/warehouse/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting warehouse stock service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

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
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	if cfg.Database.AutoMigrate {
		if err := applySchema(db, log); err != nil {
			log.Fatal("Failed to apply schema", zap.Error(err))
		}
	}

	if cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        "postgresql",
		}, log)
		if err := plugin.RegisterOtelGorm(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	productCache, closeCache, err := cache.NewProductCacheFactory(
		cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		cfg.Stock.ProductCacheTTL,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.Redis.Required),
	).CreateCache()
	if err != nil {
		log.Fatal("Failed to initialize product cache", zap.Error(err))
	}

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(cache.NewStockInvalidationHandler(productCache, log))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var meter metric.Meter
	var ledgerMetrics stock.LedgerMetrics = stock.NopMetrics{}
	if meterProvider.IsEnabled() {
		meter = meterProvider.Meter(cfg.Telemetry.ServiceName)
		lm, err := telemetry.NewLedgerMetrics(meter)
		if err != nil {
			log.Fatal("Failed to create ledger metrics", zap.Error(err))
		}
		ledgerMetrics = lm
	}

	scope := persistence.NewGormTransactionScope(db.DB)
	recalculator := stock.NewRecalculator(scope, bus, ledgerMetrics, log)

	rebuilds, stopRebuilds := startRebuildScheduler(ctx, cfg, recalculator, log)

	handlers := router.Handlers{
		System: handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.HealthCheck{
			"database": db.Ping,
		}),
		Products: handler.NewProductHandler(
			appcatalog.NewProductService(scope, productCache, recalculator, log),
			appcatalog.NewSupplierService(scope, log),
		),
		PurchaseOrder: handler.NewPurchaseOrderHandler(apppurchasing.NewPurchaseOrderService(scope, recalculator, ledgerMetrics, log)),
		Locations:     handler.NewLocationHandler(appwarehouse.NewLocationService(scope, log)),
		Pallets:       handler.NewPalletHandler(appwarehouse.NewPalletService(scope, recalculator, ledgerMetrics, log)),
		Shipments:     handler.NewShipmentHandler(appshipment.NewShipmentService(scope, recalculator, ledgerMetrics, log)),
	}

	engine := newEngine(cfg, log, meter)
	router.Mount(engine, handlers)

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
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if rebuilds != nil {
		if err := rebuilds.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping stock rebuild scheduler", zap.Error(err))
		}
	}
	stopRebuilds()
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	closeCache()
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited")
}

// newEngine builds the gin engine with the middleware chain. RequestID runs
// first so that the logger, tracing and error responses all see the same ID.
func newEngine(cfg *config.Config, log *zap.Logger, meter metric.Meter) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanAttributes())
	engine.Use(middleware.HTTPMetrics(meter))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(cfg.HTTP.CORSOrigins))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	return engine
}

// startRebuildScheduler starts the nightly stock rebuild when enabled. The
// scheduler needs Redis for its lock; without Redis the rebuild stays off.
func startRebuildScheduler(ctx context.Context, cfg *config.Config, recalculator *stock.Recalculator, log *zap.Logger) (*scheduler.RebuildScheduler, func()) {
	if !cfg.Stock.ScheduledRebuild {
		return nil, func() {}
	}
	client, err := cache.NewRedisClient(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Scheduled stock rebuild disabled, Redis unavailable", zap.Error(err))
		return nil, func() {}
	}
	lock := cache.NewRebuildLock(client, cfg.Stock.RebuildLockKey, cfg.Stock.RebuildLockTTL, log)
	s := scheduler.NewRebuildScheduler(recalculator, lock, scheduler.RebuildSchedulerConfig{
		Hour:    cfg.Stock.RebuildHour,
		Timeout: cfg.Stock.RebuildTimeout,
	}, log)
	if err := s.Start(ctx); err != nil {
		log.Fatal("Failed to start stock rebuild scheduler", zap.Error(err))
	}
	return s, func() { _ = client.Close() }
}

// applySchema runs the embedded migrations against the server's own pool
func applySchema(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.NewEmbedded(sqlDB, log)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}
