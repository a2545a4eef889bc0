package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/labauth"
	"github.com/MrEthical07/labauth/internal/dbx"
)

// AuditRepository implements labauth.AuditLog over the auth_events table.
type AuditRepository struct {
	db dbx.DBTX
}

// NewAuditRepository binds a repository to db.
func NewAuditRepository(db dbx.DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, e labauth.AuditEntry) error {
	query := `
		INSERT INTO auth_events (id, subject_id, identity, event_type, success, client_address, client_agent, logged_at)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.SubjectID, e.Identity, e.EventType, e.Success, e.ClientAddress, e.ClientAgent, e.LoggedAt,
	)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *AuditRepository) CountRecentFailures(ctx context.Context, clientAddress, identity string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM auth_events
		WHERE event_type = $1
		  AND success = FALSE
		  AND logged_at >= $4
		  AND (($2 <> '' AND client_address = $2) OR ($3 <> '' AND identity = $3))
	`
	var n int
	err := r.db.GetContext(ctx, &n, query,
		labauth.EventLogin,
		strings.TrimSpace(clientAddress),
		strings.ToLower(strings.TrimSpace(identity)),
		since,
	)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *AuditRepository) ListBySubject(ctx context.Context, subjectID string, limit int) ([]labauth.AuditEntry, error) {
	query := `
		SELECT id, COALESCE(subject_id::text, '') AS subject_id, identity, event_type, success, client_address, client_agent, logged_at
		FROM auth_events
		WHERE subject_id::text = $1
		ORDER BY logged_at DESC
		LIMIT $2
	`
	entries := []labauth.AuditEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, subjectID, limit); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entries, nil
}
