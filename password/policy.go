package password

import (
	"fmt"
	"unicode"
)

const (
	// DefaultMinLength is the minimum secret length enforced by [DefaultPolicy].
	DefaultMinLength = 8
	// DefaultMaxBytes matches the bcrypt input limit.
	DefaultMaxBytes = 72
)

// Policy describes the strength requirements for account secrets.
type Policy struct {
	MinLength int
	MaxBytes  int
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{MinLength: DefaultMinLength, MaxBytes: DefaultMaxBytes}
}

// Validate returns an error wrapping [ErrPolicyViolation] when password is
// shorter than MinLength, longer than MaxBytes, or lacks a letter or a digit.
func (p Policy) Validate(password string) error {
	minLength := p.MinLength
	if minLength <= 0 {
		minLength = DefaultMinLength
	}

	if len([]rune(password)) < minLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrPolicyViolation, minLength)
	}
	if p.MaxBytes > 0 && len(password) > p.MaxBytes {
		return fmt.Errorf("%w: must be at most %d bytes", ErrPolicyViolation, p.MaxBytes)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if hasLetter && hasDigit {
			return nil
		}
	}

	return fmt.Errorf("%w: must contain a letter and a digit", ErrPolicyViolation)
}
