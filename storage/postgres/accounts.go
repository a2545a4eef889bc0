package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/labauth"
	"github.com/MrEthical07/labauth/internal/dbx"
	"github.com/google/uuid"
)

const accountColumns = `id, identity, password_hash, role, is_active, name, affiliation, department, position, phone, created_at, last_login_at`

// AccountRepository implements labauth.AccountStore.
type AccountRepository struct {
	db dbx.DBTX
}

// NewAccountRepository binds a repository to db.
func NewAccountRepository(db dbx.DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) AccountByIdentity(ctx context.Context, identity string) (labauth.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE identity = $1`
	return r.get(ctx, query, strings.ToLower(strings.TrimSpace(identity)))
}

func (r *AccountRepository) AccountByID(ctx context.Context, id string) (labauth.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return labauth.Account{}, labauth.ErrAccountNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.get(ctx, query, id)
}

func (r *AccountRepository) get(ctx context.Context, query string, arg any) (labauth.Account, error) {
	var acct labauth.Account
	if err := r.db.GetContext(ctx, &acct, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return labauth.Account{}, labauth.ErrAccountNotFound
		}
		return labauth.Account{}, fmt.Errorf("db error: %w", err)
	}
	return acct, nil
}

func (r *AccountRepository) CreateAccount(ctx context.Context, in labauth.NewAccount) (labauth.Account, error) {
	role := in.Role
	if role == "" {
		role = labauth.RoleUser
	}
	query := `
		INSERT INTO accounts (id, identity, password_hash, role, name, affiliation, department, position, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + accountColumns

	var acct labauth.Account
	err := r.db.GetContext(ctx, &acct, query,
		uuid.NewString(),
		strings.ToLower(strings.TrimSpace(in.Identity)),
		in.PasswordHash,
		role,
		in.Profile.Name,
		in.Profile.Affiliation,
		in.Profile.Department,
		in.Profile.Position,
		in.Profile.Phone,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return labauth.Account{}, labauth.ErrIdentityExists
		}
		return labauth.Account{}, fmt.Errorf("error performing sql request: %w", err)
	}
	return acct, nil
}

// DeleteAccount removes the account; consent rows cascade.
func (r *AccountRepository) DeleteAccount(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return labauth.ErrAccountNotFound
	}
	return r.execOne(ctx, `DELETE FROM accounts WHERE id = $1`, id)
}

func (r *AccountRepository) RecordConsent(ctx context.Context, rec labauth.ConsentRecord) error {
	query := `
		INSERT INTO account_consents (id, account_id, required, iot_environment, iot_reagent, video, version, ip, user_agent, agreed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		uuid.NewString(),
		rec.AccountID,
		rec.Required,
		rec.IoTEnvironment,
		rec.IoTReagent,
		rec.Video,
		rec.Version,
		rec.ClientAddress,
		rec.ClientAgent,
		rec.AgreedAt,
	)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, `UPDATE accounts SET last_login_at = $2 WHERE id = $1`, id, at)
}

func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.execOne(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, hash)
}

func (r *AccountRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return labauth.ErrAccountNotFound
	}
	return nil
}
