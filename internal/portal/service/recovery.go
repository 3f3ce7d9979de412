package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mothertree-labs/mothertree-oss/internal/portal/domain"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/metrics"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/store"
	"github.com/mothertree-labs/mothertree-oss/pkg/kcadmin"
	"github.com/mothertree-labs/mothertree-oss/pkg/mailx"
	"github.com/mothertree-labs/mothertree-oss/pkg/setuptoken"
	"github.com/mothertree-labs/mothertree-oss/pkg/slogx"
)

var (
	ErrRecoveryNotConfigured = errors.New("account has no recovery email configured")
	ErrRecoveryEmailMismatch = errors.New("recovery email does not match our records")
	ErrRecoverySendFailed    = errors.New("failed to send recovery email")
)

// recoveryEmailLifespan is how long the passkey re-registration link
// in the recovery email stays valid, in seconds.
const recoveryEmailLifespan = 86400

// RecoveryService walks a locked-out user through passkey recovery.
// The flow revokes the user's passkeys, temporarily points their
// primary email at the recovery address so the provider's enrollment
// link reaches them, and leaves restoration to the setup redirect
// once they click through.
type RecoveryService struct {
	Gateway IdentityGateway
	Tokens  *setuptoken.Codec
	Mailer  mailx.Sender
	Audit   store.AuditLog
	Metrics metrics.Recorder

	// WebmailURL is where the user lands after re-registering a
	// passkey.
	WebmailURL string

	// ClientID scopes the post-enrollment redirect.
	ClientID string

	// MaxDirectorySize bounds the fallback scan for records that are
	// mid-flow with a diverted primary address.
	MaxDirectorySize int
}

// RecoveryResult is returned on a successful initiation.
type RecoveryResult struct {
	UserID string

	// RecoveryEmailHint is the masked recovery address, safe to show
	// on the public confirmation page.
	RecoveryEmailHint string
}

// StartRecovery validates the pair of addresses and, when they match a
// single account, revokes its passkeys and sends a re-registration
// link to the recovery address. A failed send rolls the email
// diversion back so the account is not stranded.
func (s *RecoveryService) StartRecovery(ctx context.Context, tenantEmail, recoveryEmail string) (*RecoveryResult, error) {
	log := slogx.FromContext(ctx)
	tenantEmail = strings.ToLower(strings.TrimSpace(tenantEmail))
	recoveryEmail = strings.ToLower(strings.TrimSpace(recoveryEmail))

	// 1. Locate the account. The tenant address may currently be
	// parked in an attribute if a previous attempt already diverted
	// the primary email.
	user, err := s.findByTenantEmail(ctx, tenantEmail)
	if err != nil {
		return nil, err
	}

	// 2. Validate the recovery address against the stored one. The
	// same error shape for "not configured" and "mismatch" is split
	// here because the operator page words them differently; neither
	// reveals the stored address.
	stored := user.Attr(domain.AttrRecoveryEmail)
	if stored == "" {
		observe(s.Metrics).RecordRecovery(metrics.OutcomeRefused)
		return nil, ErrRecoveryNotConfigured
	}
	if strings.ToLower(stored) != recoveryEmail {
		log.Warn("recovery attempted with mismatched recovery email",
			slog.String("user_id", user.ID),
		)
		observe(s.Metrics).RecordRecovery(metrics.OutcomeRefused)
		return nil, ErrRecoveryEmailMismatch
	}

	// 3. Revoke existing passkeys; the user must register fresh ones.
	// Best effort: a credential that survives here cannot be used to
	// hijack the flow, it just lingers until the next attempt.
	for _, credType := range []string{domain.CredTypePasskey, "webauthn"} {
		if _, err := s.Gateway.DeleteCredentialsOfType(ctx, user.ID, credType); err != nil {
			log.Warn("failed to revoke credentials",
				slog.String("user_id", user.ID),
				slog.String("credential_type", credType),
				slog.Any("error", err),
			)
		}
	}

	// 4. Divert the primary email to the recovery address, or just
	// refresh the setup token when a previous attempt already did.
	setupToken := s.Tokens.Issue(user.ID)

	alreadyDiverted := strings.EqualFold(user.Email, recoveryEmail) &&
		strings.EqualFold(user.Attr(domain.AttrTenantEmail), tenantEmail)

	patch := kcadmin.UserPatch{
		RequiredActions: []string{domain.ActionRegisterPasskey},
		Attributes: map[string][]string{
			domain.AttrIsRecoveryFlow:  {"true"},
			domain.AttrBeginSetupToken: {setupToken},
		},
	}
	if !alreadyDiverted {
		patch.Email = stringPtr(recoveryEmail)
		patch.Attributes[domain.AttrTenantEmail] = []string{tenantEmail}
	}

	if _, err := s.Gateway.MergeUser(ctx, user.ID, patch); err != nil {
		log.Error("failed to divert email for recovery",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		observe(s.Metrics).RecordRecovery(metrics.OutcomeError)
		return nil, ErrUpstreamUnavailable
	}

	// A concurrent first login can race this merge and drop the
	// required action. Re-assert it; failure is logged only.
	if _, err := s.Gateway.MergeUser(ctx, user.ID, kcadmin.UserPatch{
		RequiredActions: []string{domain.ActionRegisterPasskey},
		Attributes: map[string][]string{
			domain.AttrIsRecoveryFlow: {"true"},
		},
	}); err != nil {
		log.Warn("failed to re-assert recovery state",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	// 5. Send the enrollment link. The provider emails the user's
	// current (diverted) address. On failure the diversion is rolled
	// back so the account does not sit pointed at an external address
	// with no pending link.
	err = s.Gateway.SendExecuteActionsEmail(ctx, user.ID, kcadmin.ActionEmail{
		Actions:     []string{domain.ActionRegisterPasskey},
		Lifespan:    recoveryEmailLifespan,
		RedirectURI: s.WebmailURL,
		ClientID:    s.ClientID,
	})
	if err != nil {
		log.Error("failed to send recovery email, rolling back diversion",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		s.rollbackDiversion(ctx, user.ID, tenantEmail)
		observe(s.Metrics).RecordRecovery(metrics.OutcomeError)
		return nil, fmt.Errorf("%w: %v", ErrRecoverySendFailed, err)
	}

	// 6. Notify the tenant address. Best effort: the recovery link is
	// already out, a lost notice must not fail the flow.
	s.notifyTenant(ctx, tenantEmail)

	log.Info("recovery initiated",
		slog.String("user_id", user.ID),
		slog.String("tenant_email", domain.MaskEmail(tenantEmail)),
		slog.String("recovery_email", domain.MaskEmail(recoveryEmail)),
	)
	observe(s.Metrics).RecordRecovery(metrics.OutcomeOK)
	recordAudit(ctx, s.Audit, store.AuditEvent{
		Kind:        store.EventRecoveryStarted,
		UserID:      user.ID,
		MaskedEmail: domain.MaskEmail(tenantEmail),
		Outcome:     "ok",
	})

	return &RecoveryResult{
		UserID:            user.ID,
		RecoveryEmailHint: domain.MaskEmail(recoveryEmail),
	}, nil
}

// findByTenantEmail locates an account by its tenant address, looking
// first at primary emails and then at parked tenantEmail attributes
// for accounts that are mid-flow.
func (s *RecoveryService) findByTenantEmail(ctx context.Context, tenantEmail string) (*kcadmin.User, error) {
	user, err := s.Gateway.FindUserByEmail(ctx, tenantEmail)
	if err != nil {
		return nil, ErrUpstreamUnavailable
	}
	if user != nil {
		return user, nil
	}

	max := s.MaxDirectorySize
	if max <= 0 {
		max = 500
	}
	users, err := s.Gateway.ListUsers(ctx, max)
	if err != nil {
		return nil, ErrUpstreamUnavailable
	}
	for i := range users {
		if strings.EqualFold(users[i].Attr(domain.AttrTenantEmail), tenantEmail) {
			return &users[i], nil
		}
	}

	return nil, ErrAccountNotFound
}

// rollbackDiversion points the primary email back at the tenant
// address after a failed send. Best effort: a rollback failure is
// logged and the account stays diverted until the next attempt.
func (s *RecoveryService) rollbackDiversion(ctx context.Context, userID, tenantEmail string) {
	_, err := s.Gateway.MergeUser(ctx, userID, kcadmin.UserPatch{
		Email: stringPtr(tenantEmail),
		Attributes: map[string][]string{
			domain.AttrTenantEmail:    nil,
			domain.AttrIsRecoveryFlow: nil,
		},
	})
	if err != nil {
		slogx.FromContext(ctx).Error("failed to roll back email diversion",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return
	}

	recordAudit(ctx, s.Audit, store.AuditEvent{
		Kind:        store.EventRecoveryRolledBack,
		UserID:      userID,
		MaskedEmail: domain.MaskEmail(tenantEmail),
		Outcome:     "ok",
	})
}

func (s *RecoveryService) notifyTenant(ctx context.Context, tenantEmail string) {
	if s.Mailer == nil {
		return
	}

	msg := mailx.Message{
		To:      []string{tenantEmail},
		Subject: "Account Recovery Initiated",
		TextBody: fmt.Sprintf(
			"A passkey recovery was requested for your account (%s). "+
				"A recovery link has been sent to your recovery email address. "+
				"If you did not request this, please contact support immediately.",
			tenantEmail,
		),
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		slogx.FromContext(ctx).Warn("failed to send recovery notification",
			slog.String("tenant_email", domain.MaskEmail(tenantEmail)),
			slog.Any("error", err),
		)
	}
}
