package refresh

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweepable is anything that garbage-collects dead refresh rows.
type Sweepable interface {
	Sweep(ctx context.Context) (int64, error)
}

// Sweeper runs Sweep on a fixed interval. A single Sweeper per deployment is
// enough; concurrent sweepers are harmless because only dead rows are touched.
type Sweeper struct {
	target   Sweepable
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper returns a Sweeper. A nil logger disables logging.
func NewSweeper(target Sweepable, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{target: target, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and logs its outcome.
func (s *Sweeper) RunOnce(ctx context.Context) {
	deleted, err := s.target.Sweep(ctx)
	if err != nil {
		s.logger.Warn("refresh token sweep failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		s.logger.Info("refresh token sweep completed", zap.Int64("deleted", deleted))
	}
}
