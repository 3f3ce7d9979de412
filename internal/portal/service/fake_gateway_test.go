package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mothertree-labs/mothertree-oss/pkg/kcadmin"
	"github.com/mothertree-labs/mothertree-oss/pkg/setuptoken"
	"github.com/stretchr/testify/require"
)

// sentEmail captures one SendExecuteActionsEmail call.
type sentEmail struct {
	UserID string
	To     string
	Email  kcadmin.ActionEmail
}

// fakeGateway is an in-memory identity provider for service tests.
type fakeGateway struct {
	mu          sync.Mutex
	users       map[string]*kcadmin.User
	credentials map[string][]kcadmin.Credential
	roles       map[string][]string
	sent        []sentEmail
	nextID      int

	// Failure switches.
	failSendEmail error
	failMerge     error
	failCreate    error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		users:       make(map[string]*kcadmin.User),
		credentials: make(map[string][]kcadmin.Credential),
		roles:       make(map[string][]string),
	}
}

func (f *fakeGateway) addUser(user kcadmin.User) *kcadmin.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == "" {
		f.nextID++
		user.ID = fmt.Sprintf("user-%d", f.nextID)
	}
	copied := cloneUser(&user)
	f.users[user.ID] = copied
	return copied
}

func (f *fakeGateway) user(id string) *kcadmin.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneUser(f.users[id])
}

func cloneUser(u *kcadmin.User) *kcadmin.User {
	if u == nil {
		return nil
	}
	copied := *u
	copied.Attributes = make(map[string][]string, len(u.Attributes))
	for k, v := range u.Attributes {
		copied.Attributes[k] = append([]string(nil), v...)
	}
	copied.RequiredActions = append([]string(nil), u.RequiredActions...)
	return &copied
}

func (f *fakeGateway) GetUser(_ context.Context, userID string) (*kcadmin.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return nil, kcadmin.ErrNotFound
	}
	return cloneUser(user), nil
}

func (f *fakeGateway) FindUserByEmail(_ context.Context, email string) (*kcadmin.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			return cloneUser(user), nil
		}
	}
	return nil, nil
}

func (f *fakeGateway) ListUsers(_ context.Context, max int) ([]kcadmin.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]kcadmin.User, 0, len(f.users))
	for _, user := range f.users {
		users = append(users, *cloneUser(user))
		if max > 0 && len(users) >= max {
			break
		}
	}
	return users, nil
}

func (f *fakeGateway) CreateUser(_ context.Context, user kcadmin.User) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return "", f.failCreate
	}
	for _, existing := range f.users {
		// Keycloak rejects duplicates on either field. Username matters
		// here: a diverted account keeps its tenant-address username even
		// while its email points at the recovery address.
		if strings.EqualFold(existing.Email, user.Email) {
			return "", &kcadmin.APIError{StatusCode: 409, Body: "User exists with same email"}
		}
		if strings.EqualFold(existing.Username, user.Username) {
			return "", &kcadmin.APIError{StatusCode: 409, Body: "User exists with same username"}
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.users[user.ID] = cloneUser(&user)
	return user.ID, nil
}

func (f *fakeGateway) MergeUser(_ context.Context, userID string, patch kcadmin.UserPatch) (*kcadmin.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMerge != nil {
		return nil, f.failMerge
	}
	user, ok := f.users[userID]
	if !ok {
		return nil, kcadmin.ErrNotFound
	}

	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.Username != nil {
		user.Username = *patch.Username
	}
	for _, action := range patch.RequiredActions {
		found := false
		for _, existing := range user.RequiredActions {
			if existing == action {
				found = true
				break
			}
		}
		if !found {
			user.RequiredActions = append(user.RequiredActions, action)
		}
	}
	for name, values := range patch.Attributes {
		if values == nil {
			delete(user.Attributes, name)
			continue
		}
		if user.Attributes == nil {
			user.Attributes = make(map[string][]string)
		}
		user.Attributes[name] = append([]string(nil), values...)
	}

	return cloneUser(user), nil
}

func (f *fakeGateway) DeleteUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; !ok {
		return kcadmin.ErrNotFound
	}
	delete(f.users, userID)
	return nil
}

func (f *fakeGateway) ListCredentials(_ context.Context, userID string) ([]kcadmin.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kcadmin.Credential(nil), f.credentials[userID]...), nil
}

func (f *fakeGateway) DeleteCredentialsOfType(_ context.Context, userID, credType string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []kcadmin.Credential
	deleted := 0
	for _, cred := range f.credentials[userID] {
		if cred.Type == credType {
			deleted++
			continue
		}
		kept = append(kept, cred)
	}
	f.credentials[userID] = kept
	return deleted, nil
}

func (f *fakeGateway) AssignRealmRole(_ context.Context, userID, roleName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[userID] = append(f.roles[userID], roleName)
	return nil
}

func (f *fakeGateway) RemoveRealmRole(_ context.Context, userID, roleName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []string
	for _, role := range f.roles[userID] {
		if role != roleName {
			kept = append(kept, role)
		}
	}
	f.roles[userID] = kept
	return nil
}

func (f *fakeGateway) SendExecuteActionsEmail(_ context.Context, userID string, email kcadmin.ActionEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSendEmail != nil {
		return f.failSendEmail
	}
	user, ok := f.users[userID]
	if !ok {
		return kcadmin.ErrNotFound
	}
	f.sent = append(f.sent, sentEmail{UserID: userID, To: user.Email, Email: email})
	return nil
}

func (f *fakeGateway) sentEmails() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail(nil), f.sent...)
}

var errProviderDown = errors.New("provider down")

func mustCodec(t *testing.T) *setuptoken.Codec {
	t.Helper()
	codec, err := setuptoken.New([]byte("test-secret"))
	require.NoError(t, err)
	return codec
}
