package email

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"
)

// Sender define la interfaz para los correos transaccionales de cuenta.
type Sender interface {
	SendVerificationCode(ctx context.Context, toEmail, code string, expiresAt time.Time) error
	SendPasswordReset(ctx context.Context, toEmail, resetURL string, expiresAt time.Time) error
}

// Message es un correo ya renderizado, independiente del transporte.
type Message struct {
	Kind     string `json:"kind"`
	To       string `json:"to"`
	FromName string `json:"fromName,omitempty"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
	Text     string `json:"text"`
}

const (
	KindVerification  = "verification"
	KindPasswordReset = "password_reset"
)

var ErrRecipientRequired = errors.New("to email is required")

func verificationMessage(toEmail, code string, expiresAt time.Time) Message {
	return Message{
		Kind:     KindVerification,
		To:       toEmail,
		FromName: "Prepwise - Verify your email",
		Subject:  "Email Verification Code",
		HTML: fmt.Sprintf(
			"<p>Your verification code is: <strong>%s</strong></p>\n<p>This code will expire in %s.</p>\n",
			html.EscapeString(code),
			expiresIn(expiresAt),
		),
		Text: fmt.Sprintf(
			"Your verification code is %s.\nIt expires at %s UTC.\n",
			code,
			expiresAt.UTC().Format(time.RFC3339),
		),
	}
}

func passwordResetMessage(toEmail, resetURL string, expiresAt time.Time) Message {
	escaped := html.EscapeString(resetURL)
	return Message{
		Kind:     KindPasswordReset,
		To:       toEmail,
		FromName: "Prepwise - Reset your password",
		Subject:  "Password Reset Request",
		HTML: fmt.Sprintf(
			"<p>You requested to reset your password.</p>\n<p>Click the link below to reset it:</p>\n<a href=\"%s\">%s</a>\n<p>This link will expire in %s.</p>\n",
			escaped,
			escaped,
			expiresIn(expiresAt),
		),
		Text: fmt.Sprintf(
			"Reset your password: %s\nThe link expires at %s UTC.\n",
			resetURL,
			expiresAt.UTC().Format(time.RFC3339),
		),
	}
}

// expiresIn redondea a minutos; los códigos duran 10 minutos.
func expiresIn(expiresAt time.Time) string {
	minutes := int(time.Until(expiresAt).Round(time.Minute).Minutes())
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendVerificationCode(_ context.Context, _, _ string, _ time.Time) error {
	return s.err()
}

func (s *disabledSender) SendPasswordReset(_ context.Context, _, _ string, _ time.Time) error {
	return s.err()
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
