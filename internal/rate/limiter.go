package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Mode selects the backend composition.
type Mode string

const (
	// ModeMemory uses only the in-process backend.
	ModeMemory Mode = "memory"
	// ModeShared uses Redis with in-process fallback.
	ModeShared Mode = "shared"
	// ModeHybrid is ModeShared plus the audit-history check.
	ModeHybrid Mode = "hybrid"
)

// ParseMode validates a mode name. Empty selects ModeHybrid.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeHybrid:
		return ModeHybrid, nil
	case ModeShared:
		return ModeShared, nil
	case ModeMemory:
		return ModeMemory, nil
	}
	return "", fmt.Errorf("unsupported rate limit mode %q", s)
}

// FailureHistory counts recorded failed logins from clientAddress or for
// identity since the given instant.
type FailureHistory interface {
	CountRecentFailures(ctx context.Context, clientAddress, identity string, since time.Time) (int, error)
}

// Config configures a [Limiter].
type Config struct {
	Policy Policy
	Mode   Mode
	// HistoryMax is the audit-history threshold. Zero uses Policy.MaxRequests.
	HistoryMax int
}

// Limiter is the login rate limiter.
type Limiter struct {
	mode       Mode
	backend    Backend
	fallback   *FallbackBackend
	history    FailureHistory
	historyMax int
	window     time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// New assembles a Limiter for cfg.Mode. client and history may be nil; the
// limiter then degrades to the in-process backend and skips the history
// check, logging a warning once.
func New(cfg Config, client redis.UniversalClient, history FailureHistory, logger *zap.Logger) (*Limiter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Policy.MaxRequests <= 0 || cfg.Policy.Window <= 0 {
		return nil, errors.New("rate limit policy must have positive max requests and window")
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeHybrid
	}
	if cfg.HistoryMax < 0 {
		return nil, errors.New("rate limit history threshold must be >= 0")
	}
	if cfg.HistoryMax == 0 {
		cfg.HistoryMax = cfg.Policy.MaxRequests
	}

	l := &Limiter{
		mode:       cfg.Mode,
		historyMax: cfg.HistoryMax,
		window:     cfg.Policy.Window,
		logger:     logger,
		now:        time.Now,
	}

	memory := NewMemoryBackend(cfg.Policy)
	switch cfg.Mode {
	case ModeMemory:
		l.backend = memory
	case ModeShared, ModeHybrid:
		if client == nil {
			logger.Warn("no shared store configured for rate limiter, using in-process backend", zap.String("mode", string(cfg.Mode)))
			l.backend = memory
			break
		}
		l.fallback = NewFallbackBackend(NewRedisBackend(client, cfg.Policy), memory, logger)
		l.backend = l.fallback
	default:
		return nil, fmt.Errorf("unsupported rate limit mode %q", cfg.Mode)
	}

	if cfg.Mode == ModeHybrid {
		if history == nil {
			logger.Warn("hybrid rate limiting without audit history, history check disabled")
		}
		l.history = history
	}

	return l, nil
}

// NewWithBackend builds a Limiter over an explicit backend.
func NewWithBackend(backend Backend, policy Policy, history FailureHistory, historyMax int, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyMax <= 0 {
		historyMax = policy.MaxRequests
	}
	mode := ModeShared
	if history != nil {
		mode = ModeHybrid
	}
	l := &Limiter{
		mode:       mode,
		backend:    backend,
		history:    history,
		historyMax: historyMax,
		window:     policy.Window,
		logger:     logger,
		now:        time.Now,
	}
	if fb, ok := backend.(*FallbackBackend); ok {
		l.fallback = fb
	}
	return l
}

// Key builds the counter key for an attempt.
func Key(clientAddress, identity string) string {
	clientAddress = strings.TrimSpace(clientAddress)
	if clientAddress == "" {
		clientAddress = "unknown"
	}
	return clientAddress + ":" + strings.ToLower(strings.TrimSpace(identity))
}

// Allow records an attempt and reports whether it may proceed.
func (l *Limiter) Allow(ctx context.Context, clientAddress, identity string) bool {
	allowed, err := l.backend.Allow(ctx, Key(clientAddress, identity))
	if err != nil {
		// Only reachable with a bare shared backend; fail closed.
		l.logger.Warn("rate limit backend failed", zap.Error(err))
		return false
	}
	if !allowed {
		return false
	}

	if l.history == nil {
		return true
	}
	failures, err := l.history.CountRecentFailures(ctx, clientAddress, identity, l.now().Add(-l.window))
	if err != nil {
		l.logger.Warn("audit history rate check failed", zap.Error(err))
		return true
	}
	return failures < l.historyMax
}

// Reset clears the clientAddress:identity counter after a successful attempt.
// Failures are logged.
func (l *Limiter) Reset(ctx context.Context, clientAddress, identity string) {
	if err := l.backend.Reset(ctx, Key(clientAddress, identity)); err != nil {
		l.logger.Warn("rate limit reset failed", zap.Error(err))
	}
}

// Mode reports the effective composition.
func (l *Limiter) Mode() Mode {
	return l.mode
}

// Fallbacks returns how many shared-store calls degraded to memory.
func (l *Limiter) Fallbacks() uint64 {
	if l.fallback == nil {
		return 0
	}
	return l.fallback.Fallbacks()
}
