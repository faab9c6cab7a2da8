// Package scheduler runs background jobs inside the server process.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrSchedulerNotRunning is returned when triggering a stopped scheduler
var ErrSchedulerNotRunning = errors.New("scheduler is not running")

// Rebuilder recomputes warehouse stock for every product
type Rebuilder interface {
	RecalculateAll(ctx context.Context) (int, error)
}

// Locker runs fn while holding a cross-process lock
type Locker interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// RebuildSchedulerConfig holds the daily rebuild settings
type RebuildSchedulerConfig struct {
	// Hour is the local hour (0-23) at which the rebuild starts
	Hour int
	// Timeout bounds a single rebuild
	Timeout time.Duration
}

// RebuildScheduler runs a full stock rebuild once a day. The locker keeps
// several server replicas from rebuilding at the same time.
type RebuildScheduler struct {
	rebuilder Rebuilder
	locker    Locker
	config    RebuildSchedulerConfig
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewRebuildScheduler creates a stopped scheduler
func NewRebuildScheduler(rebuilder Rebuilder, locker Locker, config RebuildSchedulerConfig, logger *zap.Logger) *RebuildScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RebuildScheduler{
		rebuilder: rebuilder,
		locker:    locker,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// Start launches the daily loop
func (s *RebuildScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Stock rebuild scheduler started", zap.Int("hour", s.config.Hour))
	return nil
}

// Stop cancels the loop and waits for a running rebuild to finish or for
// ctx to expire.
func (s *RebuildScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("Stock rebuild scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Stock rebuild scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger starts an immediate rebuild in the background
func (s *RebuildScheduler) Trigger(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.execute(ctx)
	}()
	return nil
}

func (s *RebuildScheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	for {
		delay := s.untilNextRun()
		s.logger.Debug("Next stock rebuild scheduled", zap.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.execute(ctx)
		}
	}
}

// untilNextRun returns the time left until the configured hour, today or
// tomorrow.
func (s *RebuildScheduler) untilNextRun() time.Duration {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.Hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func (s *RebuildScheduler) execute(ctx context.Context) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	var products int
	err := s.locker.Run(ctx, func(ctx context.Context) error {
		var err error
		products, err = s.rebuilder.RecalculateAll(ctx)
		return err
	})
	if err != nil {
		s.logger.Warn("Scheduled stock rebuild did not complete",
			zap.Int("products", products),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("Scheduled stock rebuild completed",
		zap.Int("products", products),
		zap.Duration("duration", time.Since(start)),
	)
}
