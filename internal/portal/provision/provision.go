// Package provision creates mailbox principals on the mail server when
// the portal enrolls a new account. The identity provider owns
// authentication; the mail server only needs a matching principal so
// the first login does not land on an empty account.
package provision

import "context"

// Account is the principal to ensure on the mail server.
type Account struct {
	Email       string
	DisplayName string
}

// Provisioner ensures a mail account exists. EnsureAccount is
// idempotent: provisioning an existing account is a no-op.
type Provisioner interface {
	EnsureAccount(ctx context.Context, account Account) error
}

// Noop skips provisioning. Used when no mail server is configured.
type Noop struct{}

// EnsureAccount implements Provisioner.
func (Noop) EnsureAccount(context.Context, Account) error { return nil }
