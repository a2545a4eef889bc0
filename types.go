package labauth

import (
	"context"
	"time"

	internalaudit "github.com/MrEthical07/labauth/internal/audit"
)

// Roles understood by the service.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Audit event types.
const (
	EventLogin  = internalaudit.EventLogin
	EventLogout = internalaudit.EventLogout
)

// MaxAuditEventsLimit caps RecentAuthEvents.
const MaxAuditEventsLimit = 50

// Profile holds the descriptive account fields collected at signup.
type Profile struct {
	Name        string `json:"name" db:"name"`
	Affiliation string `json:"affiliation" db:"affiliation"`
	Department  string `json:"department" db:"department"`
	Position    string `json:"position" db:"position"`
	Phone       string `json:"phone" db:"phone"`
}

// Account is owned by the user-management collaborator. The session service
// reads it and only writes last-login and password-hash updates.
type Account struct {
	ID           string `db:"id"`
	Identity     string `db:"identity"`
	PasswordHash string `db:"password_hash"`
	Role         string `db:"role"`
	Active       bool   `db:"is_active"`
	Profile
	CreatedAt   time.Time  `db:"created_at"`
	LastLoginAt *time.Time `db:"last_login_at"`
}

// NewAccount is the input to AccountStore.CreateAccount.
type NewAccount struct {
	Identity     string
	PasswordHash string
	Role         string
	Profile      Profile
}

// Consent is the set of agreements collected at signup. Every flag must be
// true for signup to proceed.
type Consent struct {
	Required       bool   `json:"required"`
	IoTEnvironment bool   `json:"iot_environment"`
	IoTReagent     bool   `json:"iot_reagent"`
	Video          bool   `json:"video"`
	Version        string `json:"version"`
}

func (c Consent) complete() bool {
	return c.Required && c.IoTEnvironment && c.IoTReagent && c.Video
}

// ConsentRecord is a persisted Consent.
type ConsentRecord struct {
	AccountID string
	Consent
	ClientAddress string
	ClientAgent   string
	AgreedAt      time.Time
}

// SignupRequest is the input to Service.Signup.
type SignupRequest struct {
	Identity string
	Secret   string
	Profile  Profile
	Consent  Consent
}

// Session is the credential pair returned by Signup, Login, and Refresh.
type Session struct {
	AccessToken      string
	RefreshToken     string
	ExpiresIn        time.Duration
	RefreshExpiresAt time.Time
	SubjectID        string
	Role             string
}

// AccessClaims are the verified claims of an access credential.
type AccessClaims struct {
	SubjectID string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuditEntry is one append-only authentication event.
type AuditEntry = internalaudit.Entry

// AccountStore is the user-management collaborator.
//
// Lookups return ErrAccountNotFound for unknown accounts; CreateAccount
// returns ErrIdentityExists on a uniqueness conflict. Any other error is
// treated as a transient store failure.
type AccountStore interface {
	AccountByIdentity(ctx context.Context, identity string) (Account, error)
	AccountByID(ctx context.Context, id string) (Account, error)
	CreateAccount(ctx context.Context, in NewAccount) (Account, error)
	DeleteAccount(ctx context.Context, id string) error
	RecordConsent(ctx context.Context, rec ConsentRecord) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// AuditLog is the append-only authentication event table.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	// CountRecentFailures counts failed login events whose client address is
	// clientAddress or whose identity is identity, logged at or after since.
	CountRecentFailures(ctx context.Context, clientAddress, identity string, since time.Time) (int, error)
	// ListBySubject returns up to limit events for subjectID, newest first.
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]AuditEntry, error)
}
