package labauth

import "errors"

var (
	// ErrIdentityExists is returned by Signup for an already registered identity.
	ErrIdentityExists = errors.New("identity already registered")
	// ErrPolicyViolation is returned when a secret fails the password policy.
	ErrPolicyViolation = errors.New("password policy violation")
	// ErrInvalidRequest is returned for malformed or incomplete input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidCredentials collapses unknown identity and wrong secret.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive is returned after a successful secret match on a
	// deactivated account, and when an access credential names one.
	ErrAccountInactive = errors.New("account inactive")
	// ErrTokenInvalid covers unknown, expired, revoked, and rotated
	// credentials without distinguishing them.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrRateLimited is returned before credentials are inspected.
	ErrRateLimited = errors.New("rate limited")
	// ErrCSRFMissing is returned when the CSRF header or cookie is absent.
	ErrCSRFMissing = errors.New("csrf token missing")
	// ErrCSRFInvalid is returned when the CSRF header and cookie differ.
	ErrCSRFInvalid = errors.New("csrf token invalid")
	// ErrStoreUnavailable marks transient persistence failures. It is never
	// reported as ErrTokenInvalid.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrAccountNotFound is returned by AccountStore lookups and by account
	// deletion of an unknown subject.
	ErrAccountNotFound = errors.New("account not found")
	// ErrForbidden is returned when the actor lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrSelfDeletion is returned when an administrator targets their own
	// account through the administrative path.
	ErrSelfDeletion = errors.New("administrative self deletion forbidden")
)

// Stable machine-readable error codes.
const (
	CodeIdentityExists     = "IDENTITY_EXISTS"
	CodePolicyViolation    = "POLICY_VIOLATION"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountInactive    = "ACCOUNT_INACTIVE"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeRateLimited        = "RATE_LIMITED"
	CodeCSRFMissing        = "CSRF_MISSING"
	CodeCSRFInvalid        = "CSRF_INVALID"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeSelfDeletion       = "SELF_DELETION_FORBIDDEN"
	CodeInternal           = "INTERNAL"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrIdentityExists, CodeIdentityExists},
	{ErrPolicyViolation, CodePolicyViolation},
	{ErrInvalidRequest, CodeInvalidRequest},
	{ErrInvalidCredentials, CodeInvalidCredentials},
	{ErrAccountInactive, CodeAccountInactive},
	{ErrTokenInvalid, CodeInvalidToken},
	{ErrRateLimited, CodeRateLimited},
	{ErrCSRFMissing, CodeCSRFMissing},
	{ErrCSRFInvalid, CodeCSRFInvalid},
	{ErrStoreUnavailable, CodeStoreUnavailable},
	{ErrAccountNotFound, CodeNotFound},
	{ErrForbidden, CodeForbidden},
	{ErrSelfDeletion, CodeSelfDeletion},
}

// ErrorCode maps err to its machine-readable code. Unclassified errors map
// to CodeInternal; nil maps to "".
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
