package kcadmin_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mothertree-labs/mothertree-oss/pkg/kcadmin"
	"github.com/stretchr/testify/require"
)

func TestFindUserByEmail(t *testing.T) {
	var tokenCount int32
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/realms/tenant/users", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "true", r.URL.Query().Get("exact"))

		switch r.URL.Query().Get("email") {
		case "alice@tenant.example":
			_ = json.NewEncoder(w).Encode([]kcadmin.User{
				{ID: "u1", Email: "alice@tenant.example"},
			})
		default:
			_ = json.NewEncoder(w).Encode([]kcadmin.User{})
		}
	})

	client := newTestClient(t, mux, &tokenCount)
	ctx := context.Background()

	t.Run("match", func(t *testing.T) {
		user, err := client.FindUserByEmail(ctx, "alice@tenant.example")
		require.NoError(t, err)
		require.NotNil(t, user)
		require.Equal(t, "u1", user.ID)
	})

	t.Run("no match returns nil without error", func(t *testing.T) {
		user, err := client.FindUserByEmail(ctx, "nobody@tenant.example")
		require.NoError(t, err)
		require.Nil(t, user)
	})
}

func TestCreateUserReturnsIDFromLocation(t *testing.T) {
	var tokenCount int32
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/realms/tenant/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}

		var user kcadmin.User
		require.NoError(t, json.NewDecoder(r.Body).Decode(&user))
		require.Equal(t, "new@tenant.example", user.Email)

		w.Header().Set("Location", "/admin/realms/tenant/users/new-id-123")
		w.WriteHeader(http.StatusCreated)
	})

	client := newTestClient(t, mux, &tokenCount)

	id, err := client.CreateUser(context.Background(), kcadmin.User{
		Username: "new@tenant.example",
		Email:    "new@tenant.example",
		Enabled:  true,
	})
	require.NoError(t, err)
	require.Equal(t, "new-id-123", id)
}

func TestCreateUserConflict(t *testing.T) {
	var tokenCount int32
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/realms/tenant/users", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessage":"User exists with same email"}`, http.StatusConflict)
	})

	client := newTestClient(t, mux, &tokenCount)

	_, err := client.CreateUser(context.Background(), kcadmin.User{Email: "dup@tenant.example"})
	require.ErrorIs(t, err, kcadmin.ErrConflict)
}

func TestMergeUserPreservesUnrelatedFields(t *testing.T) {
	var tokenCount int32
	var updated kcadmin.User

	mux := http.NewServeMux()
	mux.HandleFunc("/admin/realms/tenant/users/u1", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(kcadmin.User{
				ID:            "u1",
				Username:      "alice",
				Email:         "recovery@gmail.example",
				EmailVerified: true,
				Enabled:       true,
				FirstName:     "Alice",
				Attributes: map[string][]string{
					"tenantEmail": {"alice@tenant.example"},
					"locale":      {"en"},
				},
				RequiredActions: []string{"VERIFY_EMAIL"},
			})
		case http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&updated))
			w.WriteHeader(http.StatusNoContent)
		}
	})

	client := newTestClient(t, mux, &tokenCount)

	email := "alice@tenant.example"
	_, err := client.MergeUser(context.Background(), "u1", kcadmin.UserPatch{
		Email:           &email,
		RequiredActions: []string{"VERIFY_EMAIL", "webauthn-register-passwordless"},
		Attributes: map[string][]string{
			"isRecoveryFlow": {"true"},
			"tenantEmail":    nil,
		},
	})
	require.NoError(t, err)

	require.Equal(t, "alice@tenant.example", updated.Email)
	require.Equal(t, "alice", updated.Username, "untouched field survives")
	require.Equal(t, "Alice", updated.FirstName, "untouched field survives")
	require.Equal(t, []string{"en"}, updated.Attributes["locale"], "unrelated attribute survives")
	require.Equal(t, []string{"true"}, updated.Attributes["isRecoveryFlow"])
	require.NotContains(t, updated.Attributes, "tenantEmail", "nil value deletes the attribute")
	require.ElementsMatch(t,
		[]string{"VERIFY_EMAIL", "webauthn-register-passwordless"},
		updated.RequiredActions,
		"actions appended without duplicates")
}

func TestDeleteCredentialIdempotent(t *testing.T) {
	var tokenCount int32
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/realms/tenant/users/u1/credentials", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]kcadmin.Credential{
			{ID: "c1", Type: "webauthn-passwordless"},
			{ID: "c2", Type: "password"},
			{ID: "c3", Type: "webauthn-passwordless"},
		})
	})
	mux.HandleFunc("/admin/realms/tenant/users/u1/credentials/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		if r.URL.Path == "/admin/realms/tenant/users/u1/credentials/c3" {
			// Already deleted by a concurrent flow.
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux, &tokenCount)

	deleted, err := client.DeleteCredentialsOfType(context.Background(), "u1", "webauthn-passwordless")
	require.NoError(t, err)
	require.Equal(t, 2, deleted, "password credential untouched, 404 tolerated")
}

func TestSendExecuteActionsEmail(t *testing.T) {
	var tokenCount int32
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/realms/tenant/users/u1/execute-actions-email",
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPut, r.Method)
			require.Equal(t, "604800", r.URL.Query().Get("lifespan"))
			require.Equal(t, "https://mail.tenant.example/complete-registration", r.URL.Query().Get("redirect_uri"))
			require.Equal(t, "tenant-webmail", r.URL.Query().Get("client_id"))

			var actions []string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&actions))
			require.Equal(t, []string{"VERIFY_EMAIL", "webauthn-register-passwordless"}, actions)

			w.WriteHeader(http.StatusNoContent)
		})

	client := newTestClient(t, mux, &tokenCount)

	err := client.SendExecuteActionsEmail(context.Background(), "u1", kcadmin.ActionEmail{
		Actions:     []string{"VERIFY_EMAIL", "webauthn-register-passwordless"},
		Lifespan:    604800,
		RedirectURI: "https://mail.tenant.example/complete-registration",
		ClientID:    "tenant-webmail",
	})
	require.NoError(t, err)
}
