package memory

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/labauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ labauth.AccountStore = (*Accounts)(nil)
	_ labauth.AuditLog     = (*AuditLog)(nil)
)

func TestAccountsLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewAccounts()

	acct, err := store.CreateAccount(ctx, labauth.NewAccount{
		Identity:     "  Ada@Lab.example ",
		PasswordHash: "hash-1",
		Profile:      labauth.Profile{Name: "Ada"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, acct.ID)
	assert.Equal(t, "ada@lab.example", acct.Identity)
	assert.Equal(t, labauth.RoleUser, acct.Role)
	assert.True(t, acct.Active)

	byIdentity, err := store.AccountByIdentity(ctx, "ADA@lab.example")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, byIdentity.ID)

	_, err = store.CreateAccount(ctx, labauth.NewAccount{Identity: "ada@lab.example"})
	assert.ErrorIs(t, err, labauth.ErrIdentityExists)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateLastLogin(ctx, acct.ID, at))
	require.NoError(t, store.UpdatePasswordHash(ctx, acct.ID, "hash-2"))

	got, err := store.AccountByID(ctx, acct.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.LastLoginAt.Equal(at))
	assert.Equal(t, "hash-2", got.PasswordHash)

	require.NoError(t, store.RecordConsent(ctx, labauth.ConsentRecord{AccountID: acct.ID, AgreedAt: at}))
	assert.Len(t, store.Consents(acct.ID), 1)

	require.NoError(t, store.DeleteAccount(ctx, acct.ID))
	assert.Zero(t, store.Len())
	assert.Empty(t, store.Consents(acct.ID))

	_, err = store.AccountByIdentity(ctx, "ada@lab.example")
	assert.ErrorIs(t, err, labauth.ErrAccountNotFound)
	assert.ErrorIs(t, store.DeleteAccount(ctx, acct.ID), labauth.ErrAccountNotFound)
}

func TestAccountsUnknownID(t *testing.T) {
	ctx := context.Background()
	store := NewAccounts()

	_, err := store.AccountByID(ctx, "missing")
	assert.ErrorIs(t, err, labauth.ErrAccountNotFound)
	assert.ErrorIs(t, store.RecordConsent(ctx, labauth.ConsentRecord{AccountID: "missing"}), labauth.ErrAccountNotFound)
	assert.ErrorIs(t, store.UpdateLastLogin(ctx, "missing", time.Now()), labauth.ErrAccountNotFound)
	assert.ErrorIs(t, store.UpdatePasswordHash(ctx, "missing", "h"), labauth.ErrAccountNotFound)
	assert.ErrorIs(t, store.SetActive("missing", false), labauth.ErrAccountNotFound)
	assert.ErrorIs(t, store.SetRole("missing", labauth.RoleAdmin), labauth.ErrAccountNotFound)
}

func TestAccountsReturnCopies(t *testing.T) {
	ctx := context.Background()
	store := NewAccounts()

	acct, err := store.CreateAccount(ctx, labauth.NewAccount{Identity: "bo@lab.example"})
	require.NoError(t, err)
	acct.Role = labauth.RoleAdmin

	got, err := store.AccountByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, labauth.RoleUser, got.Role)

	require.NoError(t, store.SetRole(acct.ID, labauth.RoleAdmin))
	require.NoError(t, store.SetActive(acct.ID, false))
	got, err = store.AccountByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, labauth.RoleAdmin, got.Role)
	assert.False(t, got.Active)
}

func TestAuditLogCountRecentFailures(t *testing.T) {
	ctx := context.Background()
	log := NewAuditLog()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []labauth.AuditEntry{
		{EventType: labauth.EventLogin, Identity: "a@lab.example", ClientAddress: "10.0.0.1", LoggedAt: now},
		{EventType: labauth.EventLogin, Identity: "b@lab.example", ClientAddress: "10.0.0.1", LoggedAt: now},
		{EventType: labauth.EventLogin, Identity: "a@lab.example", ClientAddress: "10.0.0.2", LoggedAt: now},
		{EventType: labauth.EventLogin, Identity: "a@lab.example", ClientAddress: "10.0.0.1", LoggedAt: now, Success: true},
		{EventType: labauth.EventLogin, Identity: "a@lab.example", ClientAddress: "10.0.0.1", LoggedAt: now.Add(-2 * time.Minute)},
		{EventType: labauth.EventLogout, Identity: "a@lab.example", ClientAddress: "10.0.0.1", LoggedAt: now},
	}
	for _, e := range entries {
		require.NoError(t, log.Append(ctx, e))
	}

	since := now.Add(-time.Minute)
	n, err := log.CountRecentFailures(ctx, "10.0.0.1", "A@lab.example", since)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = log.CountRecentFailures(ctx, "10.0.0.9", "", since)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = log.CountRecentFailures(ctx, "", "b@lab.example", since)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAuditLogListBySubject(t *testing.T) {
	ctx := context.Background()
	log := NewAuditLog()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		require.NoError(t, log.Append(ctx, labauth.AuditEntry{
			ID:        string(rune('a' + i)),
			SubjectID: "subject-1",
			EventType: labauth.EventLogin,
			LoggedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, log.Append(ctx, labauth.AuditEntry{ID: "x", SubjectID: "subject-2", LoggedAt: base}))

	got, err := log.ListBySubject(ctx, "subject-1", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"d", "c", "b"}, []string{got[0].ID, got[1].ID, got[2].ID})

	assert.Len(t, log.Entries(), 5)
}
