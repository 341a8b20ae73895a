package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/yanqian/meeting-summarizer/internal/domain/share"
)

const senderName = "Meeting Summarizer"

// SMTPConfig holds the service account used to send mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPMailer sends summaries through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPMailer builds a mailer for cfg.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send implements share.Mailer. gomail has no context support, so ctx is
// only checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg share.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(m.compose(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *SMTPMailer) compose(msg share.Message) *gomail.Message {
	out := gomail.NewMessage()
	out.SetAddressHeader("From", m.cfg.Username, senderName)
	out.SetHeader("To", msg.To)
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/html", msg.HTML)
	return out
}
