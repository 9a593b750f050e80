// Package notify delivers digest and analytics mails over SMTP.
package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Sender delivers a composed message. The production implementation speaks
// SMTP; tests substitute a capture fake.
type Sender interface {
	Send(ctx context.Context, msg *mail.Msg) error
}

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type smtpSender struct {
	client *mail.Client
}

// NewSMTPSender builds a Sender that authenticates with PLAIN auth over a
// mandatory STARTTLS session.
func NewSMTPSender(cfg SMTPConfig) (Sender, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &smtpSender{client: client}, nil
}

func (s *smtpSender) Send(ctx context.Context, msg *mail.Msg) error {
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
