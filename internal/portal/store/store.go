// Package store persists the portal's audit trail. Identity records
// themselves live in the identity provider; the portal only keeps a
// local log of the lifecycle operations it performed so support staff
// can reconstruct what happened to an account and when.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("store: not found")

// Audit event kinds. One per state-changing portal operation.
const (
	EventEmailSwap          = "email_swap"
	EventRecoveryStarted    = "recovery_started"
	EventRecoveryRolledBack = "recovery_rolled_back"
	EventInvitationSent     = "invitation_sent"
	EventGuestRegistered    = "guest_registered"
	EventUserDeleted        = "user_deleted"
)

// AuditEvent is one recorded lifecycle operation. Email addresses are
// stored masked; the raw address never reaches the audit log.
type AuditEvent struct {
	ID          string
	Kind        string
	UserID      string
	MaskedEmail string
	Outcome     string
	Detail      string
	CreatedAt   time.Time
}

// AuditLog records and queries lifecycle events.
type AuditLog interface {
	Record(ctx context.Context, event AuditEvent) error
	ListByUser(ctx context.Context, userID string, limit int) ([]AuditEvent, error)
	ListRecent(ctx context.Context, limit int) ([]AuditEvent, error)
}

// Store is the root data access interface implemented by concrete
// drivers.
type Store interface {
	Audit() AuditLog
	Ping(ctx context.Context) error
	Close() error
}

// NoopAudit discards events. Used when no audit database is
// configured.
type NoopAudit struct{}

func (NoopAudit) Record(context.Context, AuditEvent) error { return nil }

func (NoopAudit) ListByUser(context.Context, string, int) ([]AuditEvent, error) {
	return nil, nil
}

func (NoopAudit) ListRecent(context.Context, int) ([]AuditEvent, error) {
	return nil, nil
}
