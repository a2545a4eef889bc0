package labauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	internalaudit "github.com/MrEthical07/labauth/internal/audit"
	"github.com/MrEthical07/labauth/internal/rate"
	"github.com/MrEthical07/labauth/jwt"
	"github.com/MrEthical07/labauth/password"
	"github.com/MrEthical07/labauth/refresh"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxIdentityLength bounds identities accepted at signup.
const maxIdentityLength = 254

// Service is the session-lifecycle orchestrator. Create it with [Builder];
// it is safe for concurrent use.
type Service struct {
	config Config

	accounts AccountStore
	auditLog AuditLog

	hasher    password.Hasher
	policy    password.Policy
	dummyHash string

	signer  *jwt.Manager
	tokens  *refresh.Store
	limiter *rate.Limiter
	audit   *internalaudit.Dispatcher
	metrics *Metrics
	logger  *zap.Logger

	now func() time.Time
}

// Config returns a copy of the effective configuration.
func (s *Service) Config() Config {
	return cloneConfig(s.config)
}

// Close drains pending audit entries. The Service must not be used after
// Close returns.
func (s *Service) Close() {
	s.audit.Close()
}

// MetricsSnapshot returns the current counters, including limiter fallbacks
// and audit write failures.
func (s *Service) MetricsSnapshot() MetricsSnapshot {
	snap := s.metrics.Snapshot()
	if s.config.Metrics.Enabled {
		snap.Counters[MetricRateLimiterFallback] = s.limiter.Fallbacks()
		snap.Counters[MetricAuditWriteFailure] = s.audit.Failed()
	}
	return snap
}

// AuditDropped returns how many audit entries were dropped under
// backpressure.
func (s *Service) AuditDropped() uint64 {
	return s.audit.Dropped()
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// issueSession persists a refresh credential and signs an access credential
// for acct.
func (s *Service) issueSession(ctx context.Context, acct Account) (Session, error) {
	issued, err := s.tokens.Issue(ctx, acct.ID)
	if err != nil {
		return Session{}, classifyRefreshError(err)
	}
	return s.sessionFor(acct, issued)
}

func (s *Service) sessionFor(acct Account, issued refresh.Issued) (Session, error) {
	access, err := s.signer.Issue(acct.ID, acct.Role, 0)
	if err != nil {
		return Session{}, fmt.Errorf("sign access token: %w", err)
	}
	return Session{
		AccessToken:      access,
		RefreshToken:     issued.Raw,
		ExpiresIn:        s.signer.AccessTTL(),
		RefreshExpiresAt: issued.ExpiresAt,
		SubjectID:        acct.ID,
		Role:             acct.Role,
	}, nil
}

// emit records an authentication event. It never fails the caller.
func (s *Service) emit(ctx context.Context, eventType, subjectID, identity string, success bool) {
	s.audit.Emit(ctx, AuditEntry{
		ID:            uuid.NewString(),
		SubjectID:     subjectID,
		Identity:      identity,
		EventType:     eventType,
		Success:       success,
		ClientAddress: clientIPFromContext(ctx),
		ClientAgent:   internalaudit.TruncateAgent(userAgentFromContext(ctx)),
		LoggedAt:      s.clock().UTC(),
	})
}

func normalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

func classifyRefreshError(err error) error {
	switch {
	case errors.Is(err, refresh.ErrNotFound):
		return ErrTokenInvalid
	case errors.Is(err, refresh.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}

func storeUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
