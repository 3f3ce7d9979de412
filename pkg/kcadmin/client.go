// Package kcadmin is a thin client for the Keycloak Admin REST API.
//
// It covers the subset of the API the portal needs: user lookup and
// mutation, credential management, realm role mapping and action emails.
// Access tokens are obtained with the client_credentials grant against
// the realm's token endpoint and cached until shortly before expiry.
package kcadmin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds the connection settings for the admin client.
type Config struct {
	// BaseURL is the root of the Keycloak deployment, e.g.
	// "https://auth.example.com". Trailing slashes are stripped.
	BaseURL string

	// Realm is the realm the client administers.
	Realm string

	// ClientID and ClientSecret identify a confidential service account
	// client with the realm-management roles the portal needs
	// (manage-users, view-users).
	ClientID     string
	ClientSecret string

	// HTTPClient is optional. When nil a client with a 10 second
	// timeout is used.
	HTTPClient *http.Client
}

// Client talks to the Keycloak Admin REST API for a single realm.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	realm      string
	clientID   string
	secret     string
	httpClient *http.Client

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
}

// New creates an admin client from cfg.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		realm:      cfg.Realm,
		clientID:   cfg.ClientID,
		secret:     cfg.ClientSecret,
		httpClient: httpClient,
	}
}

// Realm returns the realm this client administers.
func (c *Client) Realm() string {
	return c.realm
}

func (c *Client) adminURL(parts ...string) string {
	return c.baseURL + "/admin/realms/" + c.realm + "/" + strings.Join(parts, "/")
}

func (c *Client) tokenURL() string {
	return c.baseURL + "/realms/" + c.realm + "/protocol/openid-connect/token"
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// getToken returns a cached access token, refreshing it via the
// client_credentials grant when it is within 30 seconds of expiry.
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.accessToken != "" && time.Now().Before(c.expiresAt) {
		token := c.accessToken
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if c.accessToken != "" && time.Now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.secret},
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.tokenURL(),
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf(
			"%w: status %d: %s",
			ErrTokenRequest,
			resp.StatusCode,
			string(bodyBytes),
		)
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrTokenRequest, err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: response carried no access token", ErrTokenRequest)
	}

	c.accessToken = tokenResp.AccessToken
	c.expiresAt = tokenExpiry(tokenResp)

	return c.accessToken, nil
}

// tokenExpiry determines when the cached token should be considered
// stale. It prefers the expires_in field and falls back to the token's
// own exp claim when the provider omits it, with a 30 second buffer so
// a token is never used right at the edge of its lifetime.
func tokenExpiry(resp tokenResponse) time.Time {
	if resp.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second).Add(-30 * time.Second)
	}

	// The token endpoint already authenticated the response, we only
	// need the exp claim, so an unverified parse is fine here.
	parsed, _, err := jwt.NewParser().ParseUnverified(resp.AccessToken, jwt.MapClaims{})
	if err == nil {
		if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time.Add(-30 * time.Second)
		}
	}

	// No lifetime information at all. Cache briefly so a misbehaving
	// provider does not pin a dead token.
	return time.Now().Add(30 * time.Second)
}

// InvalidateToken drops the cached access token, forcing the next
// request to fetch a fresh one.
func (c *Client) InvalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

// do performs an authenticated admin API request and returns the raw
// response. Callers own the response body.
func (c *Client) do(ctx context.Context, method, rawURL string, body any) (*http.Response, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to identity provider failed: %w", err)
	}

	return resp, nil
}

// doJSON performs an authenticated request and decodes a 2xx JSON
// response into out. A nil out discards the body.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, body, out any) error {
	resp, err := c.do(ctx, method, rawURL, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
