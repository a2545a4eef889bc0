package rate

import "errors"

var (
	// ErrBackendUnavailable wraps shared-store failures.
	ErrBackendUnavailable = errors.New("rate limit backend unavailable")
	// ErrInvalidPolicy is returned by [ParsePolicy] for malformed input.
	ErrInvalidPolicy = errors.New("invalid rate limit policy")
)
