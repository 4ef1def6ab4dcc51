package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/tasknotify/internal/store"
)

// Cleaner periodically deletes closed notifications.
type Cleaner struct {
	notifications store.NotificationStore
	interval      time.Duration
	logger        *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCleaner creates a Cleaner running every interval.
func NewCleaner(notifications store.NotificationStore, interval time.Duration, logger *slog.Logger) *Cleaner {
	if notifications == nil {
		panic("notification store cannot be nil")
	}
	if interval <= 0 {
		interval = 48 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		notifications: notifications,
		interval:      interval,
		logger:        logger.With(slog.String("component", "notification_cleaner")),
	}
}

// Start launches the cleanup loop. The first cleanup happens after one interval.
func (c *Cleaner) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := c.RunOnce(ctx); err != nil {
					c.logger.Error("notification cleanup failed", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Stop halts the cleanup loop.
func (c *Cleaner) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		c.wg.Wait()
	}
}

// RunOnce deletes closed notifications and returns how many were removed.
func (c *Cleaner) RunOnce(ctx context.Context) (int64, error) {
	deleted, err := c.notifications.DeleteClosed(ctx)
	if err != nil {
		return 0, err
	}
	c.logger.Info("closed notifications deleted", slog.Int64("count", deleted))
	return deleted, nil
}
