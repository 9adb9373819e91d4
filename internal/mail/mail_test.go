package mail

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"scribe/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMailer_FallsBackToLog(t *testing.T) {
	m, err := NewMailer(&config.Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)
}

func TestNewMailer_SMTP(t *testing.T) {
	m, err := NewMailer(&config.Config{
		MailServer:   "smtp.example.com",
		MailPort:     587,
		MailUseTLS:   true,
		MailUsername: "user",
		MailPassword: "pass",
		MailSender:   "noreply@example.com",
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)
}

func TestLogMailer_Send(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewJSONHandler(&buf, nil)))

	msg := PasswordReset("a@example.com", "http://blog.test/reset_password/tok")
	require.NoError(t, m.Send(context.Background(), msg))
	assert.Contains(t, buf.String(), "a@example.com")
	assert.Contains(t, buf.String(), "reset_password/tok")
}

func TestPasswordReset(t *testing.T) {
	msg := PasswordReset("a@example.com", "http://x/reset_password/abc")
	assert.Equal(t, "Password Reset Request", msg.Subject)
	assert.Contains(t, msg.Body, "http://x/reset_password/abc")
}
