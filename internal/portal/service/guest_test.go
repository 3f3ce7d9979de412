package service_test

import (
	"context"
	"testing"

	"github.com/mothertree-labs/mothertree-oss/internal/portal/domain"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/service"
	"github.com/stretchr/testify/require"
)

func newGuestService(gw *fakeGateway) *service.GuestService {
	return &service.GuestService{
		Gateway:      gw,
		TenantDomain: "tenant.example",
		BaseURL:      "https://account.tenant.example",
		ClientID:     "account-portal",
	}
}

func TestRegisterGuest(t *testing.T) {
	ctx := context.Background()

	t.Run("creates guest with verification and role swap", func(t *testing.T) {
		gw := newFakeGateway()
		svc := newGuestService(gw)

		userID, err := svc.RegisterGuest(ctx, service.GuestSignup{
			FirstName: "Greta",
			LastName:  "Guest",
			Email:     "greta@partner.example",
		})
		require.NoError(t, err)

		got := gw.user(userID)
		require.Equal(t, "greta@partner.example", got.Email)
		require.False(t, got.EmailVerified)
		require.Equal(t, domain.UserTypeGuest, got.Attr(domain.AttrUserType))
		require.Contains(t, got.RequiredActions, domain.ActionVerifyEmail)
		require.Contains(t, got.RequiredActions, domain.ActionRegisterPasskey)
		require.Empty(t, got.Attr(domain.AttrTenantEmail), "guests are never diverted")

		require.Contains(t, gw.roles[userID], domain.RoleGuest)
		require.NotContains(t, gw.roles[userID], domain.RoleMember)

		sent := gw.sentEmails()
		require.Len(t, sent, 1)
		require.Equal(t, []string{domain.ActionVerifyEmail, domain.ActionRegisterPasskey}, sent[0].Email.Actions)
		require.Equal(t, "https://account.tenant.example", sent[0].Email.RedirectURI)
	})

	t.Run("tenant domain refused", func(t *testing.T) {
		svc := newGuestService(newFakeGateway())
		_, err := svc.RegisterGuest(ctx, service.GuestSignup{
			FirstName: "I", LastName: "N",
			Email: "insider@tenant.example",
		})
		require.ErrorIs(t, err, service.ErrGuestDomainNotAllowed)
	})

	t.Run("duplicate email", func(t *testing.T) {
		gw := newFakeGateway()
		svc := newGuestService(gw)

		_, err := svc.RegisterGuest(ctx, service.GuestSignup{
			FirstName: "A", LastName: "B", Email: "dup@partner.example",
		})
		require.NoError(t, err)

		_, err = svc.RegisterGuest(ctx, service.GuestSignup{
			FirstName: "C", LastName: "D", Email: "dup@partner.example",
		})
		require.ErrorIs(t, err, service.ErrUserExists)
	})

	t.Run("email send failure keeps the account", func(t *testing.T) {
		gw := newFakeGateway()
		gw.failSendEmail = errProviderDown
		svc := newGuestService(gw)

		userID, err := svc.RegisterGuest(ctx, service.GuestSignup{
			FirstName: "A", LastName: "B", Email: "a@partner.example",
		})
		require.NoError(t, err, "registration survives a mail outage")
		require.NotNil(t, gw.user(userID))
	})

	t.Run("custom redirect honoured", func(t *testing.T) {
		gw := newFakeGateway()
		svc := newGuestService(gw)

		_, err := svc.RegisterGuest(ctx, service.GuestSignup{
			FirstName:   "A",
			LastName:    "B",
			Email:       "a@partner.example",
			RedirectURI: "https://docs.tenant.example/shared/abc",
		})
		require.NoError(t, err)
		require.Equal(t, "https://docs.tenant.example/shared/abc", gw.sentEmails()[0].Email.RedirectURI)
	})
}
