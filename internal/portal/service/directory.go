package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mothertree-labs/mothertree-oss/internal/portal/domain"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/store"
	"github.com/mothertree-labs/mothertree-oss/pkg/kcadmin"
	"github.com/mothertree-labs/mothertree-oss/pkg/slogx"
)

// DirectoryService gives operators a read view of the realm's accounts
// and handles removals.
type DirectoryService struct {
	Gateway IdentityGateway
	Audit   store.AuditLog

	// PageSize bounds a directory listing. Zero means 100.
	PageSize int
}

// DirectoryEntry is the operator view of one account.
type DirectoryEntry struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Enabled       bool   `json:"enabled"`
	CreatedAt     int64  `json:"created_at"`
	HasPasskey    bool   `json:"has_passkey"`
	RecoveryEmail string `json:"recovery_email,omitempty"`
	UserType      string `json:"user_type"`
	FlowState     string `json:"flow_state"`
}

// ListAccounts returns the realm's accounts enriched with passkey
// status and the portal's flow classification. Passkey lookups that
// fail degrade to false rather than failing the listing.
func (s *DirectoryService) ListAccounts(ctx context.Context) ([]DirectoryEntry, error) {
	log := slogx.FromContext(ctx)

	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	users, err := s.Gateway.ListUsers(ctx, pageSize)
	if err != nil {
		log.Error("failed to list users", slog.Any("error", err))
		return nil, ErrUpstreamUnavailable
	}

	entries := make([]DirectoryEntry, 0, len(users))
	for i := range users {
		user := &users[i]

		userType := user.Attr(domain.AttrUserType)
		if userType == "" {
			userType = "member"
		}

		entries = append(entries, DirectoryEntry{
			ID:            user.ID,
			Email:         user.Email,
			FirstName:     user.FirstName,
			LastName:      user.LastName,
			Enabled:       user.Enabled,
			CreatedAt:     user.CreatedAt,
			HasPasskey:    s.hasPasskey(ctx, user.ID),
			RecoveryEmail: user.Attr(domain.AttrRecoveryEmail),
			UserType:      userType,
			FlowState:     domain.ClassifyFlow(user).String(),
		})
	}

	return entries, nil
}

func (s *DirectoryService) hasPasskey(ctx context.Context, userID string) bool {
	creds, err := s.Gateway.ListCredentials(ctx, userID)
	if err != nil {
		return false
	}
	for _, cred := range creds {
		if cred.Type == domain.CredTypePasskey || cred.Type == "webauthn" {
			return true
		}
	}
	return false
}

// RemoveAccount deletes an account from the realm.
func (s *DirectoryService) RemoveAccount(ctx context.Context, userID string) error {
	log := slogx.FromContext(ctx)

	user, err := s.Gateway.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, kcadmin.ErrNotFound) {
			return ErrAccountNotFound
		}
		return ErrUpstreamUnavailable
	}

	if err := s.Gateway.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, kcadmin.ErrNotFound) {
			return ErrAccountNotFound
		}
		log.Error("failed to delete user",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return ErrUpstreamUnavailable
	}

	log.Info("account removed",
		slog.String("user_id", userID),
		slog.String("email", domain.MaskEmail(user.Email)),
	)
	recordAudit(ctx, s.Audit, store.AuditEvent{
		Kind:        store.EventUserDeleted,
		UserID:      userID,
		MaskedEmail: domain.MaskEmail(user.Email),
		Outcome:     "ok",
	})

	return nil
}
