package audit

import (
	"context"
	"time"
)

// Event types recorded by the session service.
const (
	EventLogin  = "login"
	EventLogout = "logout"
)

// MaxClientAgentLength bounds the stored user agent.
const MaxClientAgentLength = 255

// Entry is one authentication event. SubjectID is empty when the account
// could not be resolved.
type Entry struct {
	ID            string    `json:"id" db:"id"`
	SubjectID     string    `json:"subject_id,omitempty" db:"subject_id"`
	Identity      string    `json:"identity" db:"identity"`
	EventType     string    `json:"event_type" db:"event_type"`
	Success       bool      `json:"success" db:"success"`
	ClientAddress string    `json:"client_address,omitempty" db:"client_address"`
	ClientAgent   string    `json:"client_agent,omitempty" db:"client_agent"`
	LoggedAt      time.Time `json:"logged_at" db:"logged_at"`
}

// Sink persists entries.
type Sink interface {
	Append(ctx context.Context, entry Entry) error
}

// TruncateAgent clips ua to MaxClientAgentLength bytes without splitting a
// UTF-8 sequence.
func TruncateAgent(ua string) string {
	if len(ua) <= MaxClientAgentLength {
		return ua
	}
	cut := MaxClientAgentLength
	for cut > 0 && ua[cut]&0xC0 == 0x80 {
		cut--
	}
	return ua[:cut]
}
