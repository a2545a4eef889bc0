package refresh

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound reports an unknown, revoked, or expired credential. The
	// three cases are indistinguishable.
	ErrNotFound = errors.New("refresh token not found")
	// ErrUnavailable wraps repository failures. It must never be treated as
	// ErrNotFound by callers.
	ErrUnavailable = errors.New("refresh token store unavailable")
)

// Record is the persisted state of one refresh credential.
type Record struct {
	TokenID   string     `db:"token_id"`
	SubjectID string     `db:"subject_id"`
	TokenHash string     `db:"token_hash"`
	IssuedAt  time.Time  `db:"issued_at"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
}

// Usable reports whether the record may still be exchanged at now.
func (r Record) Usable(now time.Time) bool {
	return r.RevokedAt == nil && now.Before(r.ExpiresAt)
}

// Repository persists refresh records.
//
// Implementations must make Rotate atomic: the old record is revoked only if
// it is still usable at now, and next is inserted in the same unit of work.
// When the old record is no longer usable Rotate returns ErrNotFound and
// inserts nothing.
type Repository interface {
	Insert(ctx context.Context, rec Record) error
	// FindByHash returns ErrNotFound when no row has the digest. Revoked and
	// expired rows are returned as-is.
	FindByHash(ctx context.Context, tokenHash string) (Record, error)
	Rotate(ctx context.Context, oldTokenID string, next Record, now time.Time) error
	// RevokeByHash sets revoked_at on an unrevoked row. Missing or already
	// revoked rows are not an error.
	RevokeByHash(ctx context.Context, tokenHash string, now time.Time) error
	RevokeAllForSubject(ctx context.Context, subjectID string, now time.Time) (int64, error)
	// DeleteDead removes rows that are revoked or expired at now.
	DeleteDead(ctx context.Context, now time.Time) (int64, error)
}
