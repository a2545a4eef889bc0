package rate

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// FallbackBackend consults primary and, when it errors, secondary.
type FallbackBackend struct {
	primary   Backend
	secondary Backend
	logger    *zap.Logger
	fallbacks atomic.Uint64
}

// NewFallbackBackend composes primary with an in-process secondary.
func NewFallbackBackend(primary, secondary Backend, logger *zap.Logger) *FallbackBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackBackend{primary: primary, secondary: secondary, logger: logger}
}

func (b *FallbackBackend) Allow(ctx context.Context, key string) (bool, error) {
	allowed, err := b.primary.Allow(ctx, key)
	if err == nil {
		return allowed, nil
	}

	b.fallbacks.Add(1)
	b.logger.Warn("shared rate limit backend failed, using in-process limiter", zap.Error(err))
	return b.secondary.Allow(ctx, key)
}

func (b *FallbackBackend) Reset(ctx context.Context, key string) error {
	secondaryErr := b.secondary.Reset(ctx, key)
	if err := b.primary.Reset(ctx, key); err != nil {
		b.fallbacks.Add(1)
		b.logger.Warn("shared rate limit reset failed", zap.Error(err))
	}
	return secondaryErr
}

// Fallbacks returns how many calls degraded to the secondary backend.
func (b *FallbackBackend) Fallbacks() uint64 {
	return b.fallbacks.Load()
}
