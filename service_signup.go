package labauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Signup registers an account, persists its consent record, and opens a
// session.
//
// The account and its consent form one unit: when the consent cannot be
// stored the account is deleted again and ErrStoreUnavailable is returned.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (Session, error) {
	identity := normalizeIdentity(req.Identity)
	if identity == "" || len(identity) > maxIdentityLength || !strings.Contains(identity, "@") {
		return Session{}, fmt.Errorf("%w: identity must be an email address", ErrInvalidRequest)
	}
	if !req.Consent.complete() {
		return Session{}, fmt.Errorf("%w: all required consents must be accepted", ErrInvalidRequest)
	}

	clientIP := clientIPFromContext(ctx)
	if !s.limiter.Allow(ctx, clientIP, identity) {
		s.metrics.Inc(MetricLoginRateLimited)
		return Session{}, ErrRateLimited
	}

	_, err := s.accounts.AccountByIdentity(ctx, identity)
	switch {
	case err == nil:
		s.metrics.Inc(MetricSignupDuplicate)
		return Session{}, ErrIdentityExists
	case !errors.Is(err, ErrAccountNotFound):
		return Session{}, storeUnavailable(err)
	}

	if err := s.policy.Validate(req.Secret); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrPolicyViolation, err)
	}

	hash, err := s.hasher.Hash(req.Secret)
	if err != nil {
		return Session{}, fmt.Errorf("hash secret: %w", err)
	}

	acct, err := s.accounts.CreateAccount(ctx, NewAccount{
		Identity:     identity,
		PasswordHash: hash,
		Role:         RoleUser,
		Profile:      req.Profile,
	})
	if err != nil {
		if errors.Is(err, ErrIdentityExists) {
			s.metrics.Inc(MetricSignupDuplicate)
			return Session{}, ErrIdentityExists
		}
		return Session{}, storeUnavailable(err)
	}

	consent := req.Consent
	if strings.TrimSpace(consent.Version) == "" {
		consent.Version = "unknown"
	}
	if err := s.accounts.RecordConsent(ctx, ConsentRecord{
		AccountID:     acct.ID,
		Consent:       consent,
		ClientAddress: clientIP,
		ClientAgent:   userAgentFromContext(ctx),
		AgreedAt:      s.clock().UTC(),
	}); err != nil {
		if delErr := s.accounts.DeleteAccount(ctx, acct.ID); delErr != nil {
			s.logger.Error("signup rollback failed, account left without consent",
				zap.String("account_id", acct.ID),
				zap.Error(delErr),
			)
		}
		return Session{}, storeUnavailable(err)
	}

	session, err := s.issueSession(ctx, acct)
	if err != nil {
		return Session{}, err
	}

	s.limiter.Reset(ctx, clientIP, identity)
	s.emit(ctx, EventLogin, acct.ID, identity, true)
	s.metrics.Inc(MetricSignupSuccess)
	return session, nil
}
