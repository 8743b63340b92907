package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender envia correos HTML via SMTP usando gomail.
type SMTPSender struct {
	dialer dialer
	from   string
}

func NewSMTPSender(host string, port int, username, password, from string) (*SMTPSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		from = username
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if port == 0 {
		port = 587
	}
	d := gomail.NewDialer(host, port, username, password)
	// 465 es TLS implícito; el resto negocia STARTTLS.
	d.SSL = port == 465
	return &SMTPSender{dialer: d, from: from}, nil
}

func (s *SMTPSender) SendVerificationCode(ctx context.Context, toEmail, code string, expiresAt time.Time) error {
	return s.send(ctx, verificationMessage(toEmail, code, expiresAt))
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, toEmail, resetURL string, expiresAt time.Time) error {
	return s.send(ctx, passwordResetMessage(toEmail, resetURL, expiresAt))
}

func (s *SMTPSender) send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrRecipientRequired
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, msg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send %s: %w", msg.Kind, err)
	}
	return nil
}
