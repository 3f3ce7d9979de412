package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mothertree-labs/mothertree-oss/internal/portal/domain"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/metrics"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/store"
	"github.com/mothertree-labs/mothertree-oss/pkg/kcadmin"
	"github.com/mothertree-labs/mothertree-oss/pkg/slogx"
)

var ErrGuestDomainNotAllowed = errors.New("guest registration is not open to this email domain")

// guestEmailLifespan matches the invitation lifespan (7 days).
const guestEmailLifespan = 604800

// GuestService registers external collaborators. Guests keep their own
// email address, get no mailbox, carry the guest role instead of the
// member role, and must verify their address before registering a
// passkey. No email diversion is involved since the address is already
// theirs.
type GuestService struct {
	Gateway IdentityGateway
	Audit   store.AuditLog
	Metrics metrics.Recorder

	// TenantDomain is refused for guest signup; tenant addresses go
	// through the invitation flow.
	TenantDomain string

	// BaseURL is the default post-enrollment redirect.
	BaseURL string

	// ClientID scopes the post-enrollment redirect.
	ClientID string
}

// GuestSignup describes the account to register.
type GuestSignup struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Email     string `validate:"required,email"`

	// RedirectURI overrides where the guest lands after enrollment.
	RedirectURI string
}

// RegisterGuest creates the guest record and sends the verification
// plus passkey enrollment email. A failed email send does not undo the
// registration: the account exists and a fresh link can be requested.
func (s *GuestService) RegisterGuest(ctx context.Context, signup GuestSignup) (string, error) {
	log := slogx.FromContext(ctx)
	email := strings.ToLower(strings.TrimSpace(signup.Email))

	// 1. Tenant addresses are members, not guests.
	if s.TenantDomain != "" && emailHasDomain(email, s.TenantDomain) {
		observe(s.Metrics).RecordGuestRegistration(metrics.OutcomeRefused)
		return "", ErrGuestDomainNotAllowed
	}

	// 2. Create the record with the guest's own address. Verification
	// is required since nobody vouched for this address.
	userID, err := s.Gateway.CreateUser(ctx, kcadmin.User{
		Username:      email,
		Email:         email,
		FirstName:     signup.FirstName,
		LastName:      signup.LastName,
		Enabled:       true,
		EmailVerified: false,
		Attributes: map[string][]string{
			domain.AttrUserType: {domain.UserTypeGuest},
		},
		RequiredActions: []string{domain.ActionVerifyEmail, domain.ActionRegisterPasskey},
	})
	if err != nil {
		if errors.Is(err, kcadmin.ErrConflict) {
			observe(s.Metrics).RecordGuestRegistration(metrics.OutcomeConflict)
			return "", ErrUserExists
		}
		log.Error("failed to create guest user", slog.Any("error", err))
		observe(s.Metrics).RecordGuestRegistration(metrics.OutcomeError)
		return "", ErrUpstreamUnavailable
	}

	// 3. Re-assert the userType attribute; the provider may drop
	// attributes supplied on the create POST.
	if _, err := s.Gateway.MergeUser(ctx, userID, kcadmin.UserPatch{
		Attributes: map[string][]string{
			domain.AttrUserType: {domain.UserTypeGuest},
		},
	}); err != nil {
		log.Warn("failed to persist guest userType attribute",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	// 4. Swap the default member role for the guest role. Both steps
	// are best effort: a half-assigned role is recoverable by an
	// operator, a rolled-back registration is not.
	if err := s.Gateway.AssignRealmRole(ctx, userID, domain.RoleGuest); err != nil {
		log.Warn("failed to assign guest role",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
	if err := s.Gateway.RemoveRealmRole(ctx, userID, domain.RoleMember); err != nil {
		log.Warn("failed to remove member role from guest",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	// 5. Send the verification and enrollment email. A send failure
	// leaves the account in place; the guest can ask for a new link.
	redirect := signup.RedirectURI
	if redirect == "" {
		redirect = s.BaseURL
	}
	err = s.Gateway.SendExecuteActionsEmail(ctx, userID, kcadmin.ActionEmail{
		Actions:     []string{domain.ActionVerifyEmail, domain.ActionRegisterPasskey},
		Lifespan:    guestEmailLifespan,
		RedirectURI: redirect,
		ClientID:    s.ClientID,
	})
	if err != nil {
		log.Warn("failed to send guest registration email",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	log.Info("guest registered",
		slog.String("user_id", userID),
		slog.String("email", domain.MaskEmail(email)),
	)
	observe(s.Metrics).RecordGuestRegistration(metrics.OutcomeOK)
	recordAudit(ctx, s.Audit, store.AuditEvent{
		Kind:        store.EventGuestRegistered,
		UserID:      userID,
		MaskedEmail: domain.MaskEmail(email),
		Outcome:     "ok",
	})

	return userID, nil
}

func emailHasDomain(email, domainName string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	return strings.EqualFold(email[at+1:], domainName)
}
