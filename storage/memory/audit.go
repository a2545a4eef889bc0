package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/labauth"
)

// AuditLog is an append-only slice-backed labauth.AuditLog.
type AuditLog struct {
	mu      sync.RWMutex
	entries []labauth.AuditEntry
}

// NewAuditLog returns an empty log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (l *AuditLog) Append(_ context.Context, entry labauth.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// CountRecentFailures counts failed login events from clientAddress or for
// identity logged at or after since.
func (l *AuditLog) CountRecentFailures(_ context.Context, clientAddress, identity string, since time.Time) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	identity = strings.ToLower(strings.TrimSpace(identity))
	n := 0
	for _, e := range l.entries {
		if e.EventType != labauth.EventLogin || e.Success || e.LoggedAt.Before(since) {
			continue
		}
		if (clientAddress != "" && e.ClientAddress == clientAddress) || (identity != "" && e.Identity == identity) {
			n++
		}
	}
	return n, nil
}

func (l *AuditLog) ListBySubject(_ context.Context, subjectID string, limit int) ([]labauth.AuditEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []labauth.AuditEntry
	for _, e := range l.entries {
		if e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LoggedAt.After(out[j].LoggedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Entries returns a copy of every entry in append order.
func (l *AuditLog) Entries() []labauth.AuditEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]labauth.AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
