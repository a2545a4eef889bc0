package labauth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/labauth/refresh"
	"go.uber.org/zap"
)

// Logout tears down every session of the subject owning raw and returns that
// subject, or "" when raw does not resolve. Unresolved credentials are still
// revoked by hash. Logout never fails; store errors are logged.
func (s *Service) Logout(ctx context.Context, raw string) string {
	s.metrics.Inc(MetricLogout)

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	rec, err := s.tokens.Validate(ctx, raw)
	if err != nil {
		if !errors.Is(err, refresh.ErrNotFound) {
			s.logger.Warn("logout lookup failed", zap.Error(err))
		}
		if err := s.tokens.Revoke(ctx, raw); err != nil {
			s.logger.Warn("logout revoke by hash failed", zap.Error(err))
		}
		return ""
	}

	if err := s.tokens.RevokeAll(ctx, rec.SubjectID); err != nil {
		s.logger.Warn("logout revoke all failed", zap.String("subject_id", rec.SubjectID), zap.Error(err))
		if err := s.tokens.Revoke(ctx, raw); err != nil {
			s.logger.Warn("logout revoke by hash failed", zap.Error(err))
		}
	}

	var identity string
	if acct, err := s.accounts.AccountByID(ctx, rec.SubjectID); err == nil {
		identity = acct.Identity
	}
	s.emit(ctx, EventLogout, rec.SubjectID, identity, true)
	return rec.SubjectID
}
