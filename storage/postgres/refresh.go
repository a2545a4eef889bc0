package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/labauth/internal/dbx"
	"github.com/MrEthical07/labauth/refresh"
	"github.com/jmoiron/sqlx"
)

// RefreshRepository implements refresh.Repository.
type RefreshRepository struct {
	db *sqlx.DB
}

// NewRefreshRepository binds a repository to db. Rotation runs in its own
// transaction, so a *sqlx.DB is required.
func NewRefreshRepository(db *sqlx.DB) *RefreshRepository {
	return &RefreshRepository{db: db}
}

func (r *RefreshRepository) Insert(ctx context.Context, rec refresh.Record) error {
	return insertRefresh(ctx, r.db, rec)
}

func insertRefresh(ctx context.Context, db dbx.DBTX, rec refresh.Record) error {
	query := `
		INSERT INTO refresh_tokens (token_id, subject_id, token_hash, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := db.ExecContext(ctx, query, rec.TokenID, rec.SubjectID, rec.TokenHash, rec.IssuedAt, rec.ExpiresAt); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *RefreshRepository) FindByHash(ctx context.Context, tokenHash string) (refresh.Record, error) {
	query := `
		SELECT token_id, subject_id, token_hash, issued_at, expires_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	var rec refresh.Record
	if err := r.db.GetContext(ctx, &rec, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return refresh.Record{}, refresh.ErrNotFound
		}
		return refresh.Record{}, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// Rotate revokes oldTokenID only while it is still usable and inserts next in
// the same transaction. Zero updated rows means another request won.
func (r *RefreshRepository) Rotate(ctx context.Context, oldTokenID string, next refresh.Record, now time.Time) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = $2
			WHERE token_id = $1 AND revoked_at IS NULL AND expires_at > $2
		`, oldTokenID, now)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if n == 0 {
			return refresh.ErrNotFound
		}
		return insertRefresh(ctx, tx, next)
	})
}

func (r *RefreshRepository) RevokeByHash(ctx context.Context, tokenHash string, now time.Time) error {
	query := `UPDATE refresh_tokens SET revoked_at = $2 WHERE token_hash = $1 AND revoked_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, tokenHash, now); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *RefreshRepository) RevokeAllForSubject(ctx context.Context, subjectID string, now time.Time) (int64, error) {
	query := `UPDATE refresh_tokens SET revoked_at = $2 WHERE subject_id = $1 AND revoked_at IS NULL`
	return r.exec(ctx, query, subjectID, now)
}

func (r *RefreshRepository) DeleteDead(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE revoked_at IS NOT NULL OR expires_at <= $1`
	return r.exec(ctx, query, now)
}

func (r *RefreshRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
