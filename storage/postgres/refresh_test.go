package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MrEthical07/labauth/refresh"
	"github.com/stretchr/testify/require"
)

const (
	oldTokenID = "0b9cbd2e-8f2f-4c0e-9a57-54a1c1d2e3f4"
	newTokenID = "5d7e2b61-0c36-4bde-9f1f-0b9e1d3a2c40"
	subjectID  = "8a1f6a52-2a8e-4a55-9a53-1d8b5f0f7c11"
)

func nextRecord() refresh.Record {
	now := fixedTime()
	return refresh.Record{
		TokenID:   newTokenID,
		SubjectID: subjectID,
		TokenHash: refresh.HashToken("next"),
		IssuedAt:  now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

func TestRefreshFindByHash(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshRepository(db)
	hash := refresh.HashToken("raw")

	rows := sqlmock.NewRows([]string{"token_id", "subject_id", "token_hash", "issued_at", "expires_at", "revoked_at"}).
		AddRow(oldTokenID, subjectID, hash, fixedTime(), fixedTime().Add(time.Hour), nil)
	mock.ExpectQuery(`(?s)SELECT\s+token_id,.*FROM\s+refresh_tokens\s+WHERE\s+token_hash\s*=\s*\$1`).
		WithArgs(hash).
		WillReturnRows(rows)
	mock.ExpectQuery(`FROM\s+refresh_tokens`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"token_id"}))

	rec, err := repo.FindByHash(context.Background(), hash)
	require.NoError(t, err)
	require.Equal(t, oldTokenID, rec.TokenID)
	require.Nil(t, rec.RevokedAt)

	_, err = repo.FindByHash(context.Background(), "missing")
	require.ErrorIs(t, err, refresh.ErrNotFound)
}

func TestRefreshRotateCommits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshRepository(db)
	next := nextRecord()

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)UPDATE\s+refresh_tokens\s+SET\s+revoked_at\s*=\s*\$2\s+WHERE\s+token_id\s*=\s*\$1\s+AND\s+revoked_at\s+IS\s+NULL\s+AND\s+expires_at\s*>\s*\$2`).
		WithArgs(oldTokenID, next.IssuedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+refresh_tokens\b`).
		WithArgs(next.TokenID, next.SubjectID, next.TokenHash, next.IssuedAt, next.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Rotate(context.Background(), oldTokenID, next, next.IssuedAt))
}

func TestRefreshRotateLostRaceRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshRepository(db)
	next := nextRecord()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE\s+refresh_tokens`).
		WithArgs(oldTokenID, next.IssuedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Rotate(context.Background(), oldTokenID, next, next.IssuedAt)
	require.ErrorIs(t, err, refresh.ErrNotFound)
}

func TestRefreshRotateInsertFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshRepository(db)
	next := nextRecord()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE\s+refresh_tokens`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+refresh_tokens`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Rotate(context.Background(), oldTokenID, next, next.IssuedAt)
	require.Error(t, err)
	require.NotErrorIs(t, err, refresh.ErrNotFound)
}

func TestRefreshRevokeAndSweep(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshRepository(db)
	now := fixedTime()

	mock.ExpectExec(`UPDATE\s+refresh_tokens\s+SET\s+revoked_at\s*=\s*\$2\s+WHERE\s+token_hash\s*=\s*\$1\s+AND\s+revoked_at\s+IS\s+NULL`).
		WithArgs("hash", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE\s+refresh_tokens\s+SET\s+revoked_at\s*=\s*\$2\s+WHERE\s+subject_id\s*=\s*\$1`).
		WithArgs(subjectID, now).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+revoked_at\s+IS\s+NOT\s+NULL\s+OR\s+expires_at\s*<=\s*\$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	require.NoError(t, repo.RevokeByHash(context.Background(), "hash", now))

	n, err := repo.RevokeAllForSubject(context.Background(), subjectID, now)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	n, err = repo.DeleteDead(context.Background(), now)
	require.NoError(t, err)
	require.EqualValues(t, 4, n)
}

func TestRefreshStoreOverPostgresClassifiesOutage(t *testing.T) {
	db, mock := newMockDB(t)
	store, err := refresh.NewStore(NewRefreshRepository(db), refresh.Config{TTL: time.Hour})
	require.NoError(t, err)

	mock.ExpectQuery(`FROM\s+refresh_tokens`).WillReturnError(errors.New("connection reset"))

	_, err = store.Validate(context.Background(), "raw")
	require.ErrorIs(t, err, refresh.ErrUnavailable)
	require.NotErrorIs(t, err, refresh.ErrNotFound)
}
