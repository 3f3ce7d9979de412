package kcadmin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// User is a user representation as returned by the admin API. Only the
// fields the portal reads or writes are declared; Keycloak preserves
// unknown fields on partial JSON, but updates here always go through
// the full read-modify-write cycle in MergeUser.
type User struct {
	ID              string              `json:"id,omitempty"`
	Username        string              `json:"username,omitempty"`
	Email           string              `json:"email,omitempty"`
	EmailVerified   bool                `json:"emailVerified"`
	Enabled         bool                `json:"enabled"`
	FirstName       string              `json:"firstName,omitempty"`
	LastName        string              `json:"lastName,omitempty"`
	CreatedAt       int64               `json:"createdTimestamp,omitempty"`
	Attributes      map[string][]string `json:"attributes,omitempty"`
	RequiredActions []string            `json:"requiredActions,omitempty"`
}

// Attr returns the first value of a user attribute, or "" when unset.
func (u *User) Attr(name string) string {
	if u == nil || len(u.Attributes[name]) == 0 {
		return ""
	}
	return u.Attributes[name][0]
}

// SetAttr sets a single-valued attribute in place.
func (u *User) SetAttr(name, value string) {
	if u.Attributes == nil {
		u.Attributes = make(map[string][]string)
	}
	u.Attributes[name] = []string{value}
}

// Credential is a stored credential (password, otp, webauthn, ...).
type Credential struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	UserLabel  string `json:"userLabel,omitempty"`
	CreatedAt  int64  `json:"createdDate,omitempty"`
	Credential string `json:"credentialData,omitempty"`
}

// Role is a realm role representation.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UserPatch describes a partial update applied through MergeUser.
// Nil pointer fields are left untouched; non-nil slices and maps are
// merged into the current record rather than replacing it wholesale.
type UserPatch struct {
	Email    *string
	Username *string

	// RequiredActions are appended to the user's current actions,
	// deduplicated.
	RequiredActions []string

	// Attributes are set on top of the user's current attributes. An
	// entry with a nil value deletes the attribute.
	Attributes map[string][]string
}

// GetUser fetches a single user by ID.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	err := c.doJSON(ctx, http.MethodGet, c.adminURL("users", url.PathEscape(userID)), nil, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByEmail looks a user up by exact email match. It returns
// (nil, nil) when no user carries the address.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	query := url.Values{
		"email": {email},
		"exact": {"true"},
	}

	var users []User
	err := c.doJSON(ctx, http.MethodGet, c.adminURL("users")+"?"+query.Encode(), nil, &users)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}

	return &users[0], nil
}

// ListUsers returns up to max users of the realm. A max of 0 uses the
// server default page size.
func (c *Client) ListUsers(ctx context.Context, max int) ([]User, error) {
	rawURL := c.adminURL("users")
	if max > 0 {
		rawURL += "?max=" + strconv.Itoa(max)
	}

	var users []User
	if err := c.doJSON(ctx, http.MethodGet, rawURL, nil, &users); err != nil {
		return nil, err
	}

	return users, nil
}

// CreateUser creates a user and returns its new ID. The ID is taken
// from the Location header of the 201 response, falling back to an
// email search when the header is absent.
func (c *Client) CreateUser(ctx context.Context, user User) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, c.adminURL("users"), user)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		bodyBytes := make([]byte, 0, 512)
		buf := make([]byte, 512)
		if n, _ := resp.Body.Read(buf); n > 0 {
			bodyBytes = buf[:n]
		}
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if loc := resp.Header.Get("Location"); loc != "" {
		if idx := strings.LastIndex(loc, "/"); idx >= 0 && idx+1 < len(loc) {
			return loc[idx+1:], nil
		}
	}

	if user.Email != "" {
		created, err := c.FindUserByEmail(ctx, user.Email)
		if err != nil {
			return "", fmt.Errorf("user created but lookup failed: %w", err)
		}
		if created != nil {
			return created.ID, nil
		}
	}

	return "", errors.New("kcadmin: create succeeded but user ID could not be determined")
}

// UpdateUser replaces the stored representation with user. The admin
// API treats PUT as a full update, so callers should fetch first and
// modify the returned record. Concurrent writers race last-write-wins.
func (c *Client) UpdateUser(ctx context.Context, user *User) error {
	return c.doJSON(ctx, http.MethodPut, c.adminURL("users", url.PathEscape(user.ID)), user, nil)
}

// MergeUser fetches the current record, applies patch on top of it and
// writes the result back. This is the only mutation path the portal
// uses so unrelated fields survive the round trip.
func (c *Client) MergeUser(ctx context.Context, userID string, patch UserPatch) (*User, error) {
	user, err := c.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.Username != nil {
		user.Username = *patch.Username
	}

	for _, action := range patch.RequiredActions {
		if !contains(user.RequiredActions, action) {
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
		user.Attributes[name] = values
	}

	if err := c.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// DeleteUser removes a user from the realm.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.doJSON(ctx, http.MethodDelete, c.adminURL("users", url.PathEscape(userID)), nil, nil)
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
