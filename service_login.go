package labauth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Login authenticates identity and secret and opens a session.
//
// The rate limiter is consulted before any account lookup. Unknown identities
// and wrong secrets both yield ErrInvalidCredentials; ErrAccountInactive is
// only reported after the secret matched.
func (s *Service) Login(ctx context.Context, identity, secret string) (Session, error) {
	identity = normalizeIdentity(identity)
	if identity == "" || secret == "" {
		return Session{}, fmt.Errorf("%w: identity and secret are required", ErrInvalidRequest)
	}

	clientIP := clientIPFromContext(ctx)
	if !s.limiter.Allow(ctx, clientIP, identity) {
		s.metrics.Inc(MetricLoginRateLimited)
		return Session{}, ErrRateLimited
	}

	acct, err := s.accounts.AccountByIdentity(ctx, identity)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			return Session{}, storeUnavailable(err)
		}
		// Equalize timing with the known-identity path.
		_, _ = s.hasher.Verify(secret, s.dummyHash)
		s.loginFailed(ctx, "", identity)
		return Session{}, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(secret, acct.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password hash could not be verified",
			zap.String("account_id", acct.ID),
			zap.Error(err),
		)
	}
	if !ok {
		s.loginFailed(ctx, acct.ID, identity)
		return Session{}, ErrInvalidCredentials
	}

	if !acct.Active {
		s.loginFailed(ctx, acct.ID, identity)
		return Session{}, ErrAccountInactive
	}

	session, err := s.issueSession(ctx, acct)
	if err != nil {
		return Session{}, err
	}

	s.limiter.Reset(ctx, clientIP, identity)
	s.afterLogin(ctx, acct, secret)
	s.emit(ctx, EventLogin, acct.ID, identity, true)
	s.metrics.Inc(MetricLoginSuccess)
	return session, nil
}

func (s *Service) loginFailed(ctx context.Context, subjectID, identity string) {
	s.emit(ctx, EventLogin, subjectID, identity, false)
	s.metrics.Inc(MetricLoginFailure)
}

// afterLogin applies the best-effort account updates of a successful login.
func (s *Service) afterLogin(ctx context.Context, acct Account, secret string) {
	if err := s.accounts.UpdateLastLogin(ctx, acct.ID, s.clock().UTC()); err != nil {
		s.logger.Warn("last login update failed", zap.String("account_id", acct.ID), zap.Error(err))
	}

	if !s.config.Password.UpgradeOnLogin {
		return
	}
	stale, err := s.hasher.NeedsUpgrade(acct.PasswordHash)
	if err != nil || !stale {
		return
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		s.logger.Warn("password rehash failed", zap.String("account_id", acct.ID), zap.Error(err))
		return
	}
	if err := s.accounts.UpdatePasswordHash(ctx, acct.ID, hash); err != nil {
		s.logger.Warn("password hash upgrade failed", zap.String("account_id", acct.ID), zap.Error(err))
	}
}
