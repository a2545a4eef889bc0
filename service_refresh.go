package labauth

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Refresh exchanges a refresh credential for a new credential pair.
//
// The presented credential is rotated before the new access credential is
// signed, so a replay of it fails with ErrTokenInvalid. Unknown, expired,
// revoked, and already rotated credentials are indistinguishable.
func (s *Service) Refresh(ctx context.Context, raw string) (Session, error) {
	rec, err := s.tokens.Validate(ctx, raw)
	if err != nil {
		return Session{}, s.refreshFailed(classifyRefreshError(err))
	}

	acct, err := s.accounts.AccountByID(ctx, rec.SubjectID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Session{}, s.refreshFailed(ErrTokenInvalid)
		}
		return Session{}, storeUnavailable(err)
	}
	if !acct.Active {
		if err := s.tokens.RevokeAll(ctx, acct.ID); err != nil {
			s.logger.Warn("revoking sessions of inactive account failed",
				zap.String("account_id", acct.ID),
				zap.Error(err),
			)
		}
		return Session{}, s.refreshFailed(ErrTokenInvalid)
	}

	next, err := s.tokens.Rotate(ctx, rec)
	if err != nil {
		return Session{}, s.refreshFailed(classifyRefreshError(err))
	}

	session, err := s.sessionFor(acct, next)
	if err != nil {
		return Session{}, err
	}
	s.metrics.Inc(MetricRefreshSuccess)
	return session, nil
}

func (s *Service) refreshFailed(err error) error {
	if errors.Is(err, ErrTokenInvalid) {
		s.metrics.Inc(MetricRefreshFailure)
	}
	return err
}
