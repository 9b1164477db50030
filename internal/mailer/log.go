package mailer

import (
	"context"
	"log/slog"

	"residentportal/internal/logging"
)

// LogMailer writes messages to the log instead of sending them. Development only.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a log-backed sender.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message. The body carries a live token and is only written
// at debug level.
func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	l := logging.FromContext(ctx, m.logger)
	l.Info("sending email (log mailer)", "to", to, "subject", subject)
	l.Debug("email body (log mailer)", "to", to, "body", body)
	return nil
}
