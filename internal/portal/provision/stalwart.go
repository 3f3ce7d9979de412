package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Stalwart provisions principals through the Stalwart mail server's
// management API using basic auth.
type Stalwart struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewStalwart creates a provisioner against the management API at
// baseURL.
func NewStalwart(baseURL, username, password string) *Stalwart {
	return &Stalwart{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type principal struct {
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Emails      []string `json:"emails"`
}

// EnsureAccount implements Provisioner. A 409 from the management API
// means the principal already exists and is treated as success.
func (s *Stalwart) EnsureAccount(ctx context.Context, account Account) error {
	body, err := json.Marshal(principal{
		Type:        "individual",
		Name:        account.Email,
		Description: account.DisplayName,
		Emails:      []string{account.Email},
	})
	if err != nil {
		return fmt.Errorf("failed to encode principal: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/api/principal",
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(s.username, s.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to mail server failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		// Already provisioned.
		return nil
	default:
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf(
			"mail server returned %d: %s",
			resp.StatusCode,
			string(bodyBytes),
		)
	}
}
