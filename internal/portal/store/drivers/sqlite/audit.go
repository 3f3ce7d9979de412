package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/mothertree-labs/mothertree-oss/internal/portal/store"
	"github.com/mothertree-labs/mothertree-oss/pkg/idx"
)

type auditRepo struct {
	db *sql.DB
}

func (r *auditRepo) Record(ctx context.Context, event store.AuditEvent) error {
	if event.ID == "" {
		event.ID = idx.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, kind, user_id, masked_email, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Kind,
		event.UserID,
		event.MaskedEmail,
		event.Outcome,
		event.Detail,
		event.CreatedAt,
	)

	return err
}

func (r *auditRepo) ListByUser(ctx context.Context, userID string, limit int) ([]store.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, user_id, masked_email, outcome, detail, created_at
		FROM audit_events
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		userID, normalizeLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (r *auditRepo) ListRecent(ctx context.Context, limit int) ([]store.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, user_id, masked_email, outcome, detail, created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT ?`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]store.AuditEvent, error) {
	var events []store.AuditEvent
	for rows.Next() {
		var event store.AuditEvent
		err := rows.Scan(
			&event.ID,
			&event.Kind,
			&event.UserID,
			&event.MaskedEmail,
			&event.Outcome,
			&event.Detail,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
