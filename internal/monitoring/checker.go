package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jellelicht/exposure-agent/internal/notify"
	"github.com/jellelicht/exposure-agent/internal/state"
)

// Checker runs periodic overdue checks in the background and notifies
// once per transition into the overdue state.
type Checker struct {
	store    state.Store
	notifier notify.Notifier
	interval time.Duration
	now      func() time.Time

	wasOverdue bool
}

// NewChecker creates a background overdue checker.
func NewChecker(store state.Store, notifier notify.Notifier, interval time.Duration) *Checker {
	return &Checker{
		store:    store,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
	}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := c.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting overdue checker", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("overdue checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	lastProcessed, err := c.store.LastKeysProcessed(ctx)
	if err != nil {
		log.Error("monitoring: failed to read last processed timestamp", zap.Error(err))
		return
	}

	overdue := KeysOverdue(lastProcessed, c.now())
	if overdue && !c.wasOverdue {
		log.Warn("key processing is overdue", zap.Timep("last_processed", lastProcessed))
		if err := c.notifier.ProcessingOverdue(ctx, *lastProcessed); err != nil {
			log.Error("monitoring: failed to send overdue alert", zap.Error(err))
		}
	}
	c.wasOverdue = overdue
}
