package kcadmin

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// GetRealmRole fetches a realm role by name.
func (c *Client) GetRealmRole(ctx context.Context, name string) (*Role, error) {
	var role Role
	err := c.doJSON(ctx, http.MethodGet, c.adminURL("roles", url.PathEscape(name)), nil, &role)
	if err != nil {
		return nil, err
	}

	return &role, nil
}

// AssignRealmRole adds a realm role to a user's role mappings.
func (c *Client) AssignRealmRole(ctx context.Context, userID, roleName string) error {
	role, err := c.GetRealmRole(ctx, roleName)
	if err != nil {
		return err
	}

	return c.doJSON(
		ctx,
		http.MethodPost,
		c.adminURL("users", url.PathEscape(userID), "role-mappings", "realm"),
		[]Role{*role},
		nil,
	)
}

// RemoveRealmRole removes a realm role from a user's role mappings.
// A role that does not exist in the realm is treated as already
// removed.
func (c *Client) RemoveRealmRole(ctx context.Context, userID, roleName string) error {
	role, err := c.GetRealmRole(ctx, roleName)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	req, err := c.do(
		ctx,
		http.MethodDelete,
		c.adminURL("users", url.PathEscape(userID), "role-mappings", "realm"),
		[]Role{*role},
	)
	if err != nil {
		return err
	}
	defer req.Body.Close()

	if req.StatusCode < 200 || (req.StatusCode >= 300 && req.StatusCode != http.StatusNotFound) {
		return &APIError{StatusCode: req.StatusCode}
	}

	return nil
}
