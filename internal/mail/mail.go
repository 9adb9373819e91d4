// Package mail delivers transactional email such as password reset links.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	"scribe/internal/config"
	"scribe/internal/observability"

	gomail "github.com/wneessen/go-mail"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns an SMTP mailer when MAIL_SERVER is configured and a
// logging mailer otherwise.
func NewMailer(cfg *config.Config, logger *slog.Logger) (Mailer, error) {
	if cfg.MailServer == "" {
		return NewLogMailer(logger), nil
	}
	return NewSMTPMailer(cfg)
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	client *gomail.Client
	sender string
}

// NewSMTPMailer builds an SMTPMailer from the MAIL_* settings.
func NewSMTPMailer(cfg *config.Config) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.MailPort),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.MailUseTLS {
		opts[1] = gomail.WithTLSPolicy(gomail.TLSMandatory)
	}
	if cfg.MailUsername != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.MailUsername),
			gomail.WithPassword(cfg.MailPassword),
		)
	}

	client, err := gomail.NewClient(cfg.MailServer, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPMailer{client: client, sender: cfg.MailSender}, nil
}

// Send delivers msg over SMTP.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	out := gomail.NewMsg()
	if err := out.From(m.sender); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := out.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(gomail.TypeTextPlain, msg.Body)

	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		observability.MailDeliveries.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to send mail: %w", err)
	}
	observability.MailDeliveries.WithLabelValues("sent").Inc()
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer returns a LogMailer. A nil logger uses slog.Default.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "mail not sent: MAIL_SERVER unset",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	observability.MailDeliveries.WithLabelValues("logged").Inc()
	return nil
}

// PasswordReset builds the reset email for a user.
func PasswordReset(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Password Reset Request",
		Body: "To reset your password, visit the following link:\n" + link +
			"\n\nIf you did not make this request then simply ignore this email and no changes will be made.\n",
	}
}
