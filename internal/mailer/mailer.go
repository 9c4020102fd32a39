// Package mailer sends plain-text notices over SMTP. Used by the approval
// notifier only; the notification engine itself never emails.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/mealbridge/notify/internal/config"
)

// SMTPMailer is a minimal plain-text email sink.
// Nil-safe: when not configured, Send is a no-op.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// New creates a mailer from config. Returns nil when SMTP_HOST is unset
// (email disabled).
func New(cfg *config.Config) *SMTPMailer {
	if cfg.SMTPHost == "" {
		return nil
	}
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		from: cfg.SMTPFrom,
		auth: auth,
	}
}

// Send delivers one plain-text message.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if m == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
