package kcadmin

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ActionEmail describes an execute-actions email: the provider sends
// the user a single-use link that walks them through the listed
// required actions and then redirects back to the calling client.
type ActionEmail struct {
	// Actions are required action aliases, e.g. "VERIFY_EMAIL" or
	// "webauthn-register-passwordless".
	Actions []string

	// Lifespan is the link validity in seconds. Zero uses the realm
	// default (12 hours in a stock deployment).
	Lifespan int

	// RedirectURI is where the user lands after completing the
	// actions. Must be a valid redirect URI of ClientID.
	RedirectURI string

	// ClientID scopes the redirect. Required when RedirectURI is set.
	ClientID string
}

// SendExecuteActionsEmail asks the provider to email an action link to
// the user's current address. The provider owns delivery; a 2xx only
// means the email was accepted for sending.
func (c *Client) SendExecuteActionsEmail(ctx context.Context, userID string, email ActionEmail) error {
	query := url.Values{}
	if email.Lifespan > 0 {
		query.Set("lifespan", strconv.Itoa(email.Lifespan))
	}
	if email.RedirectURI != "" {
		query.Set("redirect_uri", email.RedirectURI)
		query.Set("client_id", email.ClientID)
	}

	rawURL := c.adminURL("users", url.PathEscape(userID), "execute-actions-email")
	if encoded := query.Encode(); encoded != "" {
		rawURL += "?" + encoded
	}

	return c.doJSON(ctx, http.MethodPut, rawURL, email.Actions, nil)
}
