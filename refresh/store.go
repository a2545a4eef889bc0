package refresh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config controls credential lifetime and entropy.
type Config struct {
	TTL        time.Duration
	TokenBytes int
}

// Issued is a freshly minted credential. Raw is never stored.
type Issued struct {
	Raw       string
	ExpiresAt time.Time
	Record    Record
}

// Store is the refresh-credential component used by the session service.
type Store struct {
	repo       Repository
	ttl        time.Duration
	tokenBytes int
	now        func() time.Time
}

// NewStore returns a Store over repo.
func NewStore(repo Repository, cfg Config) (*Store, error) {
	if repo == nil {
		return nil, errors.New("refresh repository is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("refresh TTL must be > 0")
	}
	if cfg.TokenBytes == 0 {
		cfg.TokenBytes = DefaultTokenBytes
	}
	if cfg.TokenBytes < 32 {
		return nil, errors.New("refresh token entropy must be >= 32 bytes")
	}

	return &Store{
		repo:       repo,
		ttl:        cfg.TTL,
		tokenBytes: cfg.TokenBytes,
		now:        time.Now,
	}, nil
}

// TTL returns the lifetime of newly issued credentials.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Issue mints a credential for subjectID and persists its digest.
func (s *Store) Issue(ctx context.Context, subjectID string) (Issued, error) {
	issued, err := s.mint(subjectID)
	if err != nil {
		return Issued{}, err
	}
	if err := s.repo.Insert(ctx, issued.Record); err != nil {
		return Issued{}, unavailable(err)
	}
	return issued, nil
}

// Validate returns the record for raw when it is usable, or ErrNotFound.
func (s *Store) Validate(ctx context.Context, raw string) (Record, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Record{}, ErrNotFound
	}

	rec, err := s.repo.FindByHash(ctx, HashToken(raw))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, unavailable(err)
	}
	if !rec.Usable(s.now()) {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Rotate revokes rec and issues its successor in one atomic step. A record
// that was rotated or revoked concurrently yields ErrNotFound.
func (s *Store) Rotate(ctx context.Context, rec Record) (Issued, error) {
	next, err := s.mint(rec.SubjectID)
	if err != nil {
		return Issued{}, err
	}

	if err := s.repo.Rotate(ctx, rec.TokenID, next.Record, next.Record.IssuedAt); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Issued{}, ErrNotFound
		}
		return Issued{}, unavailable(err)
	}
	return next, nil
}

// Revoke marks the credential raw as revoked. Unknown or already revoked
// credentials are a no-op.
func (s *Store) Revoke(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if err := s.repo.RevokeByHash(ctx, HashToken(raw), s.now()); err != nil {
		return unavailable(err)
	}
	return nil
}

// RevokeAll revokes every unrevoked credential owned by subjectID.
func (s *Store) RevokeAll(ctx context.Context, subjectID string) error {
	if _, err := s.repo.RevokeAllForSubject(ctx, subjectID, s.now()); err != nil {
		return unavailable(err)
	}
	return nil
}

// Sweep deletes revoked and expired rows and returns how many were removed.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteDead(ctx, s.now())
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func (s *Store) mint(subjectID string) (Issued, error) {
	if strings.TrimSpace(subjectID) == "" {
		return Issued{}, errors.New("subject is required")
	}

	raw, err := generateRaw(s.tokenBytes)
	if err != nil {
		return Issued{}, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now().UTC()
	rec := Record{
		TokenID:   uuid.NewString(),
		SubjectID: subjectID,
		TokenHash: HashToken(raw),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	return Issued{Raw: raw, ExpiresAt: rec.ExpiresAt, Record: rec}, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
