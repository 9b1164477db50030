// Package mailer delivers verification and password-reset links.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"residentportal/internal/config"
)

// Mailer is the email capability the authentication flows depend on.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
	SendReset(ctx context.Context, email, token string) error
}

// Sender delivers one plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// TemplateMailer renders the link messages and hands them to a Sender.
type TemplateMailer struct {
	sender          Sender
	frontendURL     string
	verificationTTL time.Duration
	resetTTL        time.Duration
}

// Ensure TemplateMailer implements Mailer
var _ Mailer = (*TemplateMailer)(nil)

// NewTemplateMailer creates a mailer whose links point at frontendURL.
func NewTemplateMailer(sender Sender, frontendURL string, verificationTTL, resetTTL time.Duration) *TemplateMailer {
	return &TemplateMailer{
		sender:          sender,
		frontendURL:     strings.TrimRight(frontendURL, "/"),
		verificationTTL: verificationTTL,
		resetTTL:        resetTTL,
	}
}

// SendVerification sends the email verification link.
func (m *TemplateMailer) SendVerification(ctx context.Context, email, token string) error {
	body, err := render(verificationTemplate, m.frontendURL+"/verify-email?token="+token, m.verificationTTL)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, email, verificationSubject, body)
}

// SendReset sends the password reset link.
func (m *TemplateMailer) SendReset(ctx context.Context, email, token string) error {
	body, err := render(resetTemplate, m.frontendURL+"/reset-password?token="+token, m.resetTTL)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, email, resetSubject, body)
}

// New builds the mailer selected by cfg.MailerType ("log", "smtp" or "ses").
// Unknown types fall back to the log mailer.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Mailer, error) {
	var sender Sender
	switch strings.ToLower(cfg.MailerType) {
	case "smtp":
		logger.Info("initializing SMTP mailer", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)
		sender = NewSMTPMailer(cfg.SMTP, cfg.MailFrom, logger)
	case "ses":
		logger.Info("initializing SES mailer", "region", cfg.SES.Region)
		ses, err := NewSESMailer(ctx, cfg.SES, cfg.MailFrom, logger)
		if err != nil {
			return nil, fmt.Errorf("ses mailer: %w", err)
		}
		sender = ses
	case "log":
		logger.Info("initializing log mailer")
		sender = NewLogMailer(logger)
	default:
		logger.Warn("unknown mailer type, defaulting to log mailer", "type", cfg.MailerType)
		sender = NewLogMailer(logger)
	}
	return NewTemplateMailer(sender, cfg.FrontendURL, cfg.VerificationTTL, cfg.ResetTTL), nil
}
