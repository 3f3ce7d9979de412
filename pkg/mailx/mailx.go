// Package mailx sends transactional email for the portal's own
// notifications. Enrollment and verification links are always sent by
// the identity provider itself; mailx only carries operator-facing
// notices such as recovery alerts.
package mailx

import "context"

// Message is a single outbound email.
type Message struct {
	To       []string
	Subject  string
	TextBody string
	HTMLBody string

	// ReplyTo overrides the sender's reply address when set.
	ReplyTo string
}

// Sender delivers messages. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
