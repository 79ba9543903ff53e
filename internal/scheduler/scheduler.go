// Package scheduler drives the weekly rollover on a timer. The engine is
// idempotent (lock plus empty-week no-op), so the tick frequency only
// controls how soon after a week boundary the close-out happens.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ariesizone2311/tgworkhoursbot/internal/rollover"
)

// Scheduler periodically fires the rollover engine.
type Scheduler struct {
	engine   *rollover.Engine
	log      *zap.Logger
	interval time.Duration
}

// New creates a Scheduler ticking at the given interval.
func New(engine *rollover.Engine, log *zap.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{engine: engine, log: log, interval: interval}
}

// Run starts the loop until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			if _, err := s.engine.Run(ctx, time.Now().UTC()); err != nil {
				s.log.Error("scheduled rollover failed", zap.Error(err))
			}
		}
	}
}
