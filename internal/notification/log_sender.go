package notification

import (
	"context"
	"log/slog"
)

// LogSender is a Sender that logs messages instead of sending them.
// It logs recipients and full bodies, one-time codes included, so it is
// only meant for local development.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a new LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message.
func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.logger.Info("send email",
		"to", to,
		"subject", subject,
		"body", body,
	)
	return nil
}
