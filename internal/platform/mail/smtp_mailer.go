// Package mail provides the SMTP-backed mailer used by the overdue notifier.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/bookworm/library-api/internal/config"
	"github.com/bookworm/library-api/internal/task"
)

// SMTPMailer sends plain-text mail through a single SMTP relay using the
// standard library client. Auth is PLAIN and only attempted when a username
// is configured, so a local unauthenticated relay works too.
type SMTPMailer struct {
	addr     string
	from     string
	auth     smtp.Auth
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger   *slog.Logger
}

// Ensure SMTPMailer implements the notifier's Mailer interface
var _ task.Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates an SMTPMailer from the SMTP configuration.
// It returns an error if the host, port or sender address is missing.
func NewSMTPMailer(cfg config.SMTPConfig, logger *slog.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host cannot be empty")
	}
	if cfg.Port == 0 {
		return nil, errors.New("smtp port cannot be zero")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp sender address cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTPMailer{
		addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from:     cfg.From,
		auth:     auth,
		sendMail: smtp.SendMail,
		logger:   logger.With(slog.String("component", "smtp_mailer")),
	}, nil
}

// Send implements task.Mailer.Send
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to == "" {
		return errors.New("recipient address cannot be empty")
	}

	msg := buildMessage(m.from, to, subject, body)
	if err := m.sendMail(m.addr, m.auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", to, err)
	}

	m.logger.Debug("mail sent",
		slog.String("to", to),
		slog.String("subject", subject))
	return nil
}

// buildMessage assembles an RFC 5322 plain-text message. Header values have
// CR/LF stripped so loan snapshot data cannot inject extra headers.
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + sanitizeHeader(from) + "\r\n")
	b.WriteString("To: " + sanitizeHeader(to) + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", "")
	return strings.ReplaceAll(value, "\n", "")
}

// LogMailer is a stand-in Mailer that only logs the message. It is wired in
// when no SMTP host is configured, so development environments run the full
// notifier path without a relay.
type LogMailer struct {
	logger *slog.Logger
}

// Ensure LogMailer implements the notifier's Mailer interface
var _ task.Mailer = (*LogMailer)(nil)

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger.With(slog.String("component", "log_mailer"))}
}

// Send implements task.Mailer.Send
func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("mail suppressed, no smtp host configured",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.Int("body_bytes", len(body)))
	return nil
}
