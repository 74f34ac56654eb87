// Package worker holds the background jobs run by cmd/worker.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Expirer is satisfied by *service.MembershipService.
type Expirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// ExpirySweeper periodically moves lapsed memberships to expired. Reads
// already treat lapsed memberships as expired; the sweep keeps the stored
// status and the users.is_member flag in line with that.
type ExpirySweeper struct {
	expirer  Expirer
	interval time.Duration
	now      func() time.Time
}

func NewExpirySweeper(expirer Expirer, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpirySweeper{expirer: expirer, interval: interval, now: time.Now}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// Sweep failures are logged and retried on the next tick.
func (s *ExpirySweeper) Run(ctx context.Context) error {
	zap.L().Info("expiry sweeper started", zap.Duration("interval", s.interval))
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("expiry sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	n, err := s.expirer.ExpireDue(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			zap.L().Error("expire memberships", zap.Error(err))
		}
		return
	}
	zap.L().Debug("expiry sweep done", zap.Int("expired", n))
}
