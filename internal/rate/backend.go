package rate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Policy bounds attempts per key within Window.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultPolicy is five attempts per minute.
func DefaultPolicy() Policy {
	return Policy{MaxRequests: 5, Window: time.Minute}
}

// ParsePolicy parses "max_requests/window_seconds", for example "5/60".
func ParsePolicy(s string) (Policy, error) {
	maxPart, windowPart, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
	maxRequests, err := strconv.Atoi(strings.TrimSpace(maxPart))
	if err != nil || maxRequests <= 0 {
		return Policy{}, fmt.Errorf("%w: max_requests in %q", ErrInvalidPolicy, s)
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(windowPart))
	if err != nil || seconds <= 0 {
		return Policy{}, fmt.Errorf("%w: window_seconds in %q", ErrInvalidPolicy, s)
	}
	return Policy{MaxRequests: maxRequests, Window: time.Duration(seconds) * time.Second}, nil
}

// String formats p the way ParsePolicy reads it.
func (p Policy) String() string {
	return fmt.Sprintf("%d/%d", p.MaxRequests, int(p.Window/time.Second))
}

// Backend counts attempts per key.
//
// Allow records one attempt for key and reports whether it is within the
// policy. Reset forgets the key.
type Backend interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}
