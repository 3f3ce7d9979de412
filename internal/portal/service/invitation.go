package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mothertree-labs/mothertree-oss/internal/portal/domain"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/metrics"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/provision"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/store"
	"github.com/mothertree-labs/mothertree-oss/pkg/kcadmin"
	"github.com/mothertree-labs/mothertree-oss/pkg/setuptoken"
	"github.com/mothertree-labs/mothertree-oss/pkg/slogx"
)

var (
	ErrUserExists             = errors.New("a user with this email already exists")
	ErrInvitationNotPossible  = errors.New("user has no recovery email to invite through")
	ErrInvitationEmailFailure = errors.New("failed to send invitation email")
)

// invitationEmailLifespan is how long the enrollment link in an
// invitation stays valid, in seconds (7 days).
const invitationEmailLifespan = 604800

// InvitationService enrolls new members. An invitation creates the
// identity record with the tenant address, then diverts its primary
// email to the invitee's personal address so the provider's enrollment
// link reaches someone who cannot read tenant mail yet.
type InvitationService struct {
	Gateway     IdentityGateway
	Tokens      *setuptoken.Codec
	Provisioner provision.Provisioner
	Audit       store.AuditLog
	Metrics     metrics.Recorder

	// CompleteRegistrationURL is where the provider redirects after
	// the invitee registers their passkey. That page performs the
	// email restoration.
	CompleteRegistrationURL string

	// ClientID scopes the post-enrollment redirect.
	ClientID string
}

// MemberInvite describes the account to create.
type MemberInvite struct {
	FirstName     string `validate:"required"`
	LastName      string `validate:"required"`
	Email         string `validate:"required,email"`
	RecoveryEmail string `validate:"required,email"`
}

// InviteMember creates the identity record and sends the enrollment
// email in one step. The mailbox is provisioned best effort; a mail
// server outage must not block enrollment since the mailbox is also
// created lazily on first delivery.
func (s *InvitationService) InviteMember(ctx context.Context, invite MemberInvite) (string, error) {
	log := slogx.FromContext(ctx)
	email := strings.ToLower(strings.TrimSpace(invite.Email))
	recoveryEmail := strings.ToLower(strings.TrimSpace(invite.RecoveryEmail))

	// 1. Create the record with the tenant address as primary.
	userID, err := s.Gateway.CreateUser(ctx, kcadmin.User{
		Username:      email,
		Email:         email,
		FirstName:     invite.FirstName,
		LastName:      invite.LastName,
		Enabled:       true,
		EmailVerified: true,
		Attributes: map[string][]string{
			domain.AttrRecoveryEmail: {recoveryEmail},
		},
		RequiredActions: []string{domain.ActionRegisterPasskey},
	})
	if err != nil {
		if errors.Is(err, kcadmin.ErrConflict) {
			observe(s.Metrics).RecordInvitation(metrics.OutcomeConflict)
			return "", ErrUserExists
		}
		log.Error("failed to create user", slog.Any("error", err))
		observe(s.Metrics).RecordInvitation(metrics.OutcomeError)
		return "", ErrUpstreamUnavailable
	}

	// 2. Re-assert the recovery attribute through a read-modify-write.
	// Some provider versions drop attributes supplied on the create
	// POST, and the recovery flow is dead in the water without it.
	updated, err := s.Gateway.MergeUser(ctx, userID, kcadmin.UserPatch{
		Attributes: map[string][]string{
			domain.AttrRecoveryEmail: {recoveryEmail},
		},
	})
	if err != nil {
		log.Error("failed to persist recovery email attribute",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		observe(s.Metrics).RecordInvitation(metrics.OutcomeError)
		return "", ErrUpstreamUnavailable
	}
	if updated.Attr(domain.AttrRecoveryEmail) == "" {
		observe(s.Metrics).RecordInvitation(metrics.OutcomeError)
		return "", errors.New("recovery email attribute was not stored by the identity provider")
	}

	// 3. Provision the mailbox.
	if s.Provisioner != nil {
		err := s.Provisioner.EnsureAccount(ctx, provision.Account{
			Email:       email,
			DisplayName: strings.TrimSpace(invite.FirstName + " " + invite.LastName),
		})
		if err != nil {
			log.Warn("mailbox provisioning failed",
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
		}
	}

	// 4. Divert and send the enrollment email.
	if err := s.SendInvitation(ctx, userID); err != nil {
		return userID, err
	}

	return userID, nil
}

// SendInvitation diverts the record's primary email to the recovery
// address and asks the provider to send the enrollment link there.
// Safe to call again to re-send a lost invitation.
func (s *InvitationService) SendInvitation(ctx context.Context, userID string) error {
	log := slogx.FromContext(ctx)

	user, err := s.Gateway.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, kcadmin.ErrNotFound) {
			return ErrAccountNotFound
		}
		return ErrUpstreamUnavailable
	}

	recoveryEmail := user.Attr(domain.AttrRecoveryEmail)
	if recoveryEmail == "" {
		return ErrInvitationNotPossible
	}

	// The enrollment link embeds the address it was sent to, so the
	// primary email must stay diverted until the invitee clicks
	// through. The parked tenant address and the setup token let the
	// completion page restore it.
	tenantEmail := user.Email
	if parked := user.Attr(domain.AttrTenantEmail); parked != "" {
		// Re-send on an already diverted record.
		tenantEmail = parked
	}

	setupToken := s.Tokens.Issue(userID)
	_, err = s.Gateway.MergeUser(ctx, userID, kcadmin.UserPatch{
		Email: stringPtr(recoveryEmail),
		Attributes: map[string][]string{
			domain.AttrTenantEmail:     {tenantEmail},
			domain.AttrBeginSetupToken: {setupToken},
		},
	})
	if err != nil {
		log.Error("failed to divert email for invitation",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		observe(s.Metrics).RecordInvitation(metrics.OutcomeError)
		return ErrUpstreamUnavailable
	}

	err = s.Gateway.SendExecuteActionsEmail(ctx, userID, kcadmin.ActionEmail{
		Actions:     []string{domain.ActionRegisterPasskey},
		Lifespan:    invitationEmailLifespan,
		RedirectURI: s.CompleteRegistrationURL,
		ClientID:    s.ClientID,
	})
	if err != nil {
		log.Error("failed to send invitation email",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		observe(s.Metrics).RecordInvitation(metrics.OutcomeError)
		return fmt.Errorf("%w: %v", ErrInvitationEmailFailure, err)
	}

	log.Info("invitation sent",
		slog.String("user_id", userID),
		slog.String("tenant_email", domain.MaskEmail(tenantEmail)),
		slog.String("recovery_email", domain.MaskEmail(recoveryEmail)),
	)
	observe(s.Metrics).RecordInvitation(metrics.OutcomeOK)
	recordAudit(ctx, s.Audit, store.AuditEvent{
		Kind:        store.EventInvitationSent,
		UserID:      userID,
		MaskedEmail: domain.MaskEmail(tenantEmail),
		Outcome:     "ok",
	})

	return nil
}
