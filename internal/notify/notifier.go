// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package notify delivers user-facing notifications. Delivery is
// fire-and-forget: the lifecycle engine treats failures as warnings, never
// as errors of the triggering operation.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// Notifier sends a single notification to a recipient address.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Mailer delivers notifications over SMTP.
type Mailer struct {
	client *mail.Client
	from   string
}

// MailerConfig holds SMTP settings.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewMailer creates an SMTP-backed Notifier.
func NewMailer(cfg MailerConfig) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating mail client: %w", err)
	}

	return &Mailer{client: client, from: cfg.From}, nil
}

// Send delivers one message. The caller decides how to handle failure.
func (m *Mailer) Send(ctx context.Context, recipient, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", recipient, err)
	}
	return nil
}

// LogNotifier logs notifications instead of delivering them. Used when no
// SMTP relay is configured (development, tests).
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a Notifier that writes to the given logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Send logs the notification and always succeeds.
func (n *LogNotifier) Send(_ context.Context, recipient, subject, body string) error {
	n.logger.Info("notification (not delivered, SMTP disabled)",
		"recipient", recipient,
		"subject", subject,
		"body_len", len(body),
	)
	return nil
}
