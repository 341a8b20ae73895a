package mail

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/meeting-summarizer/internal/domain/share"
)

func TestComposeSetsBrandedSender(t *testing.T) {
	mailer := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "bot@example.com", Password: "secret"})
	msg := mailer.compose(share.Message{To: "alice@example.com", Subject: share.Subject, HTML: "<p>hi</p>"})

	require.Equal(t, []string{`"Meeting Summarizer" <bot@example.com>`}, msg.GetHeader("From"))
	require.Equal(t, []string{"alice@example.com"}, msg.GetHeader("To"))
	require.Equal(t, []string{share.Subject}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "Content-Type: text/html")
}

func TestSendHonoursCanceledContext(t *testing.T) {
	mailer := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, mailer.Send(ctx, share.Message{To: "a@example.com"}), context.Canceled)
}

func TestMemoryMailerKeepsOutbox(t *testing.T) {
	mailer := NewMemoryMailer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, mailer.Send(context.Background(), share.Message{To: "a@example.com", Subject: share.Subject}))
	require.Len(t, mailer.Outbox(), 1)
	require.Equal(t, "a@example.com", mailer.Outbox()[0].To)
}
