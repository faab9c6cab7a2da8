package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"go.uber.org/zap"
)

// ErrRebuildInProgress is returned when another process holds the rebuild lock
var ErrRebuildInProgress = errors.New("stock rebuild already in progress")

// RebuildLock serializes full warehouse stock rebuilds across processes
type RebuildLock struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRebuildLock creates a lock stored under key with the given lease
func NewRebuildLock(client redislock.RedisClient, key string, ttl time.Duration, logger *zap.Logger) *RebuildLock {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RebuildLock{
		locker: redislock.New(client),
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

// Run holds the lock while fn executes. The lease is refreshed every ttl/2;
// if a refresh fails the context passed to fn is cancelled.
func (l *RebuildLock) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	lock, err := l.locker.Obtain(ctx, l.key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrRebuildInProgress
	}
	if err != nil {
		return fmt.Errorf("obtain rebuild lock: %w", err)
	}
	defer func() {
		// release with a fresh context so a cancelled run still frees the key
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("Failed to release rebuild lock", zap.String("key", l.key), zap.Error(err))
		}
	}()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(l.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := lock.Refresh(runCtx, l.ttl, nil); err != nil {
					l.logger.Error("Lost rebuild lock", zap.String("key", l.key), zap.Error(err))
					cancel(fmt.Errorf("rebuild lock lost: %w", err))
					return
				}
			}
		}
	}()

	if err := fn(runCtx); err != nil {
		if cause := context.Cause(runCtx); cause != nil && !errors.Is(cause, ctx.Err()) {
			return errors.Join(err, cause)
		}
		return err
	}
	return nil
}
