// Command stock-rebuild recomputes warehouse_stock for every product from the
// quantity ledger. A Redis lock keeps concurrent runs from overlapping.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/warehouse/internal/application/stock"
	"github.com/erp/warehouse/internal/infrastructure/cache"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/erp/warehouse/internal/infrastructure/event"
	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
		Service:    "warehouse-stock-rebuild",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		if errors.Is(err, cache.ErrRebuildInProgress) {
			log.Warn("Another stock rebuild holds the lock, skipping")
			return
		}
		log.Fatal("Stock rebuild failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	client, err := cache.NewRedisClient(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	// recalculated products are evicted from the shared product cache
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(cache.NewStockInvalidationHandler(
		cache.NewRedisProductCacheWithClient(client, cache.WithCacheLogger(log)), log))
	if err := bus.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = bus.Stop(context.Background()) }()

	recalculator := stock.NewRecalculator(
		persistence.NewGormTransactionScope(db.DB), bus, stock.NopMetrics{}, log)

	lock := cache.NewRebuildLock(client, cfg.Stock.RebuildLockKey, cfg.Stock.RebuildLockTTL, log)
	start := time.Now()
	return lock.Run(ctx, func(ctx context.Context) error {
		n, err := recalculator.RecalculateAll(ctx)
		log.Info("Stock rebuild finished",
			zap.Int("products", n),
			zap.Duration("elapsed", time.Since(start)),
		)
		return err
	})
}
