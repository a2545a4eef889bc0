package labauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Authenticate verifies an access credential. Every failure is
// ErrTokenInvalid.
func (s *Service) Authenticate(_ context.Context, access string) (AccessClaims, error) {
	access = strings.TrimSpace(access)
	if access == "" {
		return AccessClaims{}, ErrTokenInvalid
	}
	claims, err := s.signer.Validate(access)
	if err != nil {
		return AccessClaims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	out := AccessClaims{
		SubjectID: claims.Subject,
		Role:      claims.Role,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// CurrentAccount loads the account named by an authenticated subject.
func (s *Service) CurrentAccount(ctx context.Context, subjectID string) (Account, error) {
	acct, err := s.accounts.AccountByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Account{}, ErrTokenInvalid
		}
		return Account{}, storeUnavailable(err)
	}
	if !acct.Active {
		return Account{}, ErrAccountInactive
	}
	return acct, nil
}

// DeleteAccount revokes all refresh credentials of subjectID and then deletes
// the account.
func (s *Service) DeleteAccount(ctx context.Context, subjectID string) error {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return ErrInvalidRequest
	}

	if err := s.tokens.RevokeAll(ctx, subjectID); err != nil {
		return classifyRefreshError(err)
	}
	if err := s.accounts.DeleteAccount(ctx, subjectID); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return storeUnavailable(err)
	}

	s.metrics.Inc(MetricAccountDeleted)
	s.logger.Info("account deleted", zap.String("account_id", subjectID))
	return nil
}

// AdminDeleteAccount deletes target on behalf of an administrator. Admins
// cannot remove their own account through this path.
func (s *Service) AdminDeleteAccount(ctx context.Context, actor AccessClaims, target string) error {
	if actor.Role != RoleAdmin {
		return ErrForbidden
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return ErrInvalidRequest
	}
	if target == actor.SubjectID {
		return ErrSelfDeletion
	}
	return s.DeleteAccount(ctx, target)
}

// RecentAuthEvents returns up to limit audit events of subjectID, newest
// first. limit is clamped to [1, MaxAuditEventsLimit].
func (s *Service) RecentAuthEvents(ctx context.Context, subjectID string, limit int) ([]AuditEntry, error) {
	if s.auditLog == nil {
		return []AuditEntry{}, nil
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxAuditEventsLimit {
		limit = MaxAuditEventsLimit
	}

	events, err := s.auditLog.ListBySubject(ctx, subjectID, limit)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if events == nil {
		events = []AuditEntry{}
	}
	return events, nil
}

// Sweep deletes dead refresh-credential rows and returns how many were
// removed. It satisfies refresh.Sweepable.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	n, err := s.tokens.Sweep(ctx)
	if err != nil {
		return 0, classifyRefreshError(err)
	}
	s.metrics.Add(MetricRefreshSwept, uint64(n))
	return n, nil
}
