package password

import "errors"

var (
	// ErrPolicyViolation is returned by [Policy.Validate] for weak secrets.
	ErrPolicyViolation = errors.New("password policy violation")
	// ErrMalformedHash is returned when a stored hash cannot be decoded.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Hasher produces and verifies one-way password hashes.
//
// Implementations must be safe for concurrent use.
type Hasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches encodedHash. A mismatch is
	// reported as false with a nil error.
	Verify(password, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}
