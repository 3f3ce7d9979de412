package kcadmin

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// ListCredentials returns the credentials registered for a user.
func (c *Client) ListCredentials(ctx context.Context, userID string) ([]Credential, error) {
	var creds []Credential
	err := c.doJSON(
		ctx,
		http.MethodGet,
		c.adminURL("users", url.PathEscape(userID), "credentials"),
		nil,
		&creds,
	)
	if err != nil {
		return nil, err
	}

	return creds, nil
}

// DeleteCredential removes a single credential. A credential that is
// already gone counts as success so revocation loops stay idempotent.
func (c *Client) DeleteCredential(ctx context.Context, userID, credentialID string) error {
	err := c.doJSON(
		ctx,
		http.MethodDelete,
		c.adminURL("users", url.PathEscape(userID), "credentials", url.PathEscape(credentialID)),
		nil,
		nil,
	)
	if errors.Is(err, ErrNotFound) {
		return nil
	}

	return err
}

// DeleteCredentialsOfType removes every credential of the given type
// and returns how many were deleted.
func (c *Client) DeleteCredentialsOfType(ctx context.Context, userID, credType string) (int, error) {
	creds, err := c.ListCredentials(ctx, userID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, cred := range creds {
		if cred.Type != credType {
			continue
		}
		if err := c.DeleteCredential(ctx, userID, cred.ID); err != nil {
			return deleted, err
		}
		deleted++
	}

	return deleted, nil
}
