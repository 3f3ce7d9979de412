package service_test

import (
	"context"
	"testing"

	"github.com/mothertree-labs/mothertree-oss/internal/portal/domain"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/service"
	"github.com/mothertree-labs/mothertree-oss/pkg/kcadmin"
	"github.com/stretchr/testify/require"
)

func TestListAccounts(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()

	member := gw.addUser(kcadmin.User{
		Email:     "alice@tenant.example",
		FirstName: "Alice",
		Enabled:   true,
		Attributes: map[string][]string{
			domain.AttrRecoveryEmail: {"alice.personal@gmail.example"},
		},
	})
	gw.credentials[member.ID] = []kcadmin.Credential{{ID: "c1", Type: domain.CredTypePasskey}}

	gw.addUser(kcadmin.User{
		Email:   "greta@partner.example",
		Enabled: true,
		Attributes: map[string][]string{
			domain.AttrUserType: {domain.UserTypeGuest},
		},
	})

	gw.addUser(kcadmin.User{
		Email:   "pending.personal@gmail.example",
		Enabled: true,
		Attributes: map[string][]string{
			domain.AttrTenantEmail: {"pending@tenant.example"},
		},
	})

	svc := &service.DirectoryService{Gateway: gw}
	entries, err := svc.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byEmail := make(map[string]service.DirectoryEntry, len(entries))
	for _, entry := range entries {
		byEmail[entry.Email] = entry
	}

	alice := byEmail["alice@tenant.example"]
	require.True(t, alice.HasPasskey)
	require.Equal(t, "member", alice.UserType)
	require.Equal(t, "none", alice.FlowState)
	require.Equal(t, "alice.personal@gmail.example", alice.RecoveryEmail)

	greta := byEmail["greta@partner.example"]
	require.False(t, greta.HasPasskey)
	require.Equal(t, "guest", greta.UserType)

	pending := byEmail["pending.personal@gmail.example"]
	require.Equal(t, "invitation", pending.FlowState)
}

func TestRemoveAccount(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	user := gw.addUser(kcadmin.User{Email: "gone@tenant.example"})

	svc := &service.DirectoryService{Gateway: gw}

	require.NoError(t, svc.RemoveAccount(ctx, user.ID))
	require.Nil(t, gw.user(user.ID))

	err := svc.RemoveAccount(ctx, user.ID)
	require.ErrorIs(t, err, service.ErrAccountNotFound)
}
