package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/labauth"
	"github.com/google/uuid"
)

// Accounts is a map-backed labauth.AccountStore.
type Accounts struct {
	mu         sync.RWMutex
	byID       map[string]*labauth.Account
	byIdentity map[string]string
	consents   map[string][]labauth.ConsentRecord
	now        func() time.Time
}

// NewAccounts returns an empty store.
func NewAccounts() *Accounts {
	return &Accounts{
		byID:       make(map[string]*labauth.Account),
		byIdentity: make(map[string]string),
		consents:   make(map[string][]labauth.ConsentRecord),
		now:        time.Now,
	}
}

func identityKey(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

func (a *Accounts) AccountByIdentity(_ context.Context, identity string) (labauth.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	id, ok := a.byIdentity[identityKey(identity)]
	if !ok {
		return labauth.Account{}, labauth.ErrAccountNotFound
	}
	return *a.byID[id], nil
}

func (a *Accounts) AccountByID(_ context.Context, id string) (labauth.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	acct, ok := a.byID[id]
	if !ok {
		return labauth.Account{}, labauth.ErrAccountNotFound
	}
	return *acct, nil
}

func (a *Accounts) CreateAccount(_ context.Context, in labauth.NewAccount) (labauth.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := identityKey(in.Identity)
	if _, exists := a.byIdentity[key]; exists {
		return labauth.Account{}, labauth.ErrIdentityExists
	}

	role := in.Role
	if role == "" {
		role = labauth.RoleUser
	}
	acct := &labauth.Account{
		ID:           uuid.NewString(),
		Identity:     key,
		PasswordHash: in.PasswordHash,
		Role:         role,
		Active:       true,
		Profile:      in.Profile,
		CreatedAt:    a.now().UTC(),
	}
	a.byID[acct.ID] = acct
	a.byIdentity[key] = acct.ID
	return *acct, nil
}

// DeleteAccount removes the account and its consent records.
func (a *Accounts) DeleteAccount(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	acct, ok := a.byID[id]
	if !ok {
		return labauth.ErrAccountNotFound
	}
	delete(a.byIdentity, acct.Identity)
	delete(a.byID, id)
	delete(a.consents, id)
	return nil
}

func (a *Accounts) RecordConsent(_ context.Context, rec labauth.ConsentRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.byID[rec.AccountID]; !ok {
		return labauth.ErrAccountNotFound
	}
	a.consents[rec.AccountID] = append(a.consents[rec.AccountID], rec)
	return nil
}

func (a *Accounts) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	acct, ok := a.byID[id]
	if !ok {
		return labauth.ErrAccountNotFound
	}
	at = at.UTC()
	acct.LastLoginAt = &at
	return nil
}

func (a *Accounts) UpdatePasswordHash(_ context.Context, id, hash string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	acct, ok := a.byID[id]
	if !ok {
		return labauth.ErrAccountNotFound
	}
	acct.PasswordHash = hash
	return nil
}

// SetActive toggles activation. The session service never deactivates
// accounts itself; this stands in for the user-management collaborator.
func (a *Accounts) SetActive(id string, active bool) error {
	return a.update(id, func(acct *labauth.Account) { acct.Active = active })
}

// SetRole changes the role of id.
func (a *Accounts) SetRole(id, role string) error {
	return a.update(id, func(acct *labauth.Account) { acct.Role = role })
}

// Consents returns the consent records of id.
func (a *Accounts) Consents(id string) []labauth.ConsentRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]labauth.ConsentRecord, len(a.consents[id]))
	copy(out, a.consents[id])
	return out
}

// Len returns the number of stored accounts.
func (a *Accounts) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.byID)
}

func (a *Accounts) update(id string, fn func(*labauth.Account)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	acct, ok := a.byID[id]
	if !ok {
		return labauth.ErrAccountNotFound
	}
	fn(acct)
	return nil
}
