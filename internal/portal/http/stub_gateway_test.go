package http_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/mothertree-labs/mothertree-oss/pkg/kcadmin"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubGateway lets each test wire exactly the provider calls its
// handler exercises. Unset hooks return zero values; calls counts
// mutations so redirect-gate tests can assert nothing was touched.
type stubGateway struct {
	mu    sync.Mutex
	calls map[string]int

	getUser                 func(ctx context.Context, userID string) (*kcadmin.User, error)
	findUserByEmail         func(ctx context.Context, email string) (*kcadmin.User, error)
	listUsers               func(ctx context.Context, max int) ([]kcadmin.User, error)
	createUser              func(ctx context.Context, user kcadmin.User) (string, error)
	mergeUser               func(ctx context.Context, userID string, patch kcadmin.UserPatch) (*kcadmin.User, error)
	deleteUser              func(ctx context.Context, userID string) error
	listCredentials         func(ctx context.Context, userID string) ([]kcadmin.Credential, error)
	deleteCredentialsOfType func(ctx context.Context, userID, credType string) (int, error)
	sendExecuteActionsEmail func(ctx context.Context, userID string, email kcadmin.ActionEmail) error
}

func newStubGateway() *stubGateway {
	return &stubGateway{calls: make(map[string]int)}
}

func (g *stubGateway) record(method string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[method]++
}

func (g *stubGateway) callCount(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[method]
}

func (g *stubGateway) GetUser(ctx context.Context, userID string) (*kcadmin.User, error) {
	g.record("GetUser")
	if g.getUser == nil {
		return nil, kcadmin.ErrNotFound
	}
	return g.getUser(ctx, userID)
}

func (g *stubGateway) FindUserByEmail(ctx context.Context, email string) (*kcadmin.User, error) {
	g.record("FindUserByEmail")
	if g.findUserByEmail == nil {
		return nil, nil
	}
	return g.findUserByEmail(ctx, email)
}

func (g *stubGateway) ListUsers(ctx context.Context, max int) ([]kcadmin.User, error) {
	g.record("ListUsers")
	if g.listUsers == nil {
		return nil, nil
	}
	return g.listUsers(ctx, max)
}

func (g *stubGateway) CreateUser(ctx context.Context, user kcadmin.User) (string, error) {
	g.record("CreateUser")
	if g.createUser == nil {
		return "stub-id", nil
	}
	return g.createUser(ctx, user)
}

func (g *stubGateway) MergeUser(ctx context.Context, userID string, patch kcadmin.UserPatch) (*kcadmin.User, error) {
	g.record("MergeUser")
	if g.mergeUser == nil {
		return &kcadmin.User{ID: userID}, nil
	}
	return g.mergeUser(ctx, userID, patch)
}

func (g *stubGateway) DeleteUser(ctx context.Context, userID string) error {
	g.record("DeleteUser")
	if g.deleteUser == nil {
		return nil
	}
	return g.deleteUser(ctx, userID)
}

func (g *stubGateway) ListCredentials(ctx context.Context, userID string) ([]kcadmin.Credential, error) {
	g.record("ListCredentials")
	if g.listCredentials == nil {
		return nil, nil
	}
	return g.listCredentials(ctx, userID)
}

func (g *stubGateway) DeleteCredentialsOfType(ctx context.Context, userID, credType string) (int, error) {
	g.record("DeleteCredentialsOfType")
	if g.deleteCredentialsOfType == nil {
		return 0, nil
	}
	return g.deleteCredentialsOfType(ctx, userID, credType)
}

func (g *stubGateway) AssignRealmRole(ctx context.Context, userID, roleName string) error {
	g.record("AssignRealmRole")
	return nil
}

func (g *stubGateway) RemoveRealmRole(ctx context.Context, userID, roleName string) error {
	g.record("RemoveRealmRole")
	return nil
}

func (g *stubGateway) SendExecuteActionsEmail(ctx context.Context, userID string, email kcadmin.ActionEmail) error {
	g.record("SendExecuteActionsEmail")
	if g.sendExecuteActionsEmail == nil {
		return nil
	}
	return g.sendExecuteActionsEmail(ctx, userID, email)
}
