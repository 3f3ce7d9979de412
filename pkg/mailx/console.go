package mailx

import (
	"context"
	"log/slog"
)

// ConsoleSender logs messages instead of delivering them. Used in
// development and as the fallback when no mail provider is configured.
type ConsoleSender struct {
	Logger *slog.Logger
}

// Send implements Sender.
func (s *ConsoleSender) Send(_ context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("email not delivered (console sender)",
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.TextBody),
	)

	return nil
}
