// Package service implements the portal's account lifecycle flows on
// top of the identity provider: email restoration after enrollment,
// lost-credential recovery, member invitations and guest registration.
package service

import (
	"context"

	"github.com/mothertree-labs/mothertree-oss/internal/portal/metrics"
	"github.com/mothertree-labs/mothertree-oss/pkg/kcadmin"
)

// IdentityGateway is the slice of the admin API the services use.
// *kcadmin.Client satisfies it; tests substitute an in-memory fake.
type IdentityGateway interface {
	GetUser(ctx context.Context, userID string) (*kcadmin.User, error)
	FindUserByEmail(ctx context.Context, email string) (*kcadmin.User, error)
	ListUsers(ctx context.Context, max int) ([]kcadmin.User, error)
	CreateUser(ctx context.Context, user kcadmin.User) (string, error)
	MergeUser(ctx context.Context, userID string, patch kcadmin.UserPatch) (*kcadmin.User, error)
	DeleteUser(ctx context.Context, userID string) error

	ListCredentials(ctx context.Context, userID string) ([]kcadmin.Credential, error)
	DeleteCredentialsOfType(ctx context.Context, userID, credType string) (int, error)

	AssignRealmRole(ctx context.Context, userID, roleName string) error
	RemoveRealmRole(ctx context.Context, userID, roleName string) error

	SendExecuteActionsEmail(ctx context.Context, userID string, email kcadmin.ActionEmail) error
}

var _ IdentityGateway = (*kcadmin.Client)(nil)

func stringPtr(s string) *string { return &s }

// observe returns a Recorder that is safe to call when the service was
// built without one. A nil *Collector discards everything.
func observe(r metrics.Recorder) metrics.Recorder {
	if r == nil {
		return (*metrics.Collector)(nil)
	}
	return r
}
