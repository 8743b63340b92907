package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

type fakePublisher struct {
	key string
	msg amqp.Publishing
	err error
}

func (p *fakePublisher) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	p.key = key
	p.msg = msg
	return p.err
}

func TestSMTPSender_SendVerificationCode(t *testing.T) {
	d := &fakeDialer{}
	s := &SMTPSender{dialer: d, from: "noreply@prepwise.dev"}

	err := s.SendVerificationCode(context.Background(), "ana@example.com", "482913", time.Now().Add(10*time.Minute))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(d.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(d.sent))
	}
	m := d.sent[0]
	if got := m.GetHeader("To"); len(got) != 1 || got[0] != "ana@example.com" {
		t.Fatalf("unexpected To header: %v", got)
	}
	if got := m.GetHeader("Subject"); len(got) != 1 || got[0] != "Email Verification Code" {
		t.Fatalf("unexpected Subject: %v", got)
	}
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("write message: %v", err)
	}
	if !strings.Contains(buf.String(), "482913") {
		t.Fatalf("code missing from body")
	}
}

func TestSMTPSender_RequiresRecipient(t *testing.T) {
	s := &SMTPSender{dialer: &fakeDialer{}, from: "noreply@prepwise.dev"}
	err := s.SendPasswordReset(context.Background(), " ", "http://x/reset-password?token=t", time.Now())
	if !errors.Is(err, ErrRecipientRequired) {
		t.Fatalf("expected ErrRecipientRequired, got %v", err)
	}
}

func TestSMTPSender_PropagatesDialError(t *testing.T) {
	s := &SMTPSender{dialer: &fakeDialer{err: errors.New("connection refused")}, from: "noreply@prepwise.dev"}
	if err := s.SendPasswordReset(context.Background(), "ana@example.com", "http://x", time.Now()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewSMTPSender_Validation(t *testing.T) {
	if _, err := NewSMTPSender("", 587, "u", "p", "from@x"); err == nil {
		t.Fatalf("expected error for empty host")
	}
	if _, err := NewSMTPSender("smtp.example.com", 587, "", "", ""); err == nil {
		t.Fatalf("expected error for empty from")
	}
	s, err := NewSMTPSender("smtp.example.com", 0, "user@example.com", "p", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.from != "user@example.com" {
		t.Fatalf("expected from to fall back to username, got %q", s.from)
	}
}

func TestQueueSender_PublishesPasswordReset(t *testing.T) {
	p := &fakePublisher{}
	s := &QueueSender{channel: p, queue: "prepwise.emails"}

	url := "http://localhost:3000/reset-password?token=abc"
	if err := s.SendPasswordReset(context.Background(), "ana@example.com", url, time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if p.key != "prepwise.emails" {
		t.Fatalf("unexpected routing key %q", p.key)
	}
	if p.msg.DeliveryMode != amqp.Persistent || p.msg.Type != KindPasswordReset {
		t.Fatalf("unexpected publishing: %+v", p.msg)
	}

	var msg Message
	if err := json.Unmarshal(p.msg.Body, &msg); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if msg.To != "ana@example.com" || !strings.Contains(msg.HTML, url) {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestDisabledSender(t *testing.T) {
	s := NewDisabledSender("smtp not configured")
	err := s.SendVerificationCode(context.Background(), "ana@example.com", "123456", time.Now())
	if err == nil || err.Error() != "smtp not configured" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerificationMessage_ExpiresIn(t *testing.T) {
	msg := verificationMessage("ana@example.com", "123456", time.Now().Add(10*time.Minute))
	if !strings.Contains(msg.HTML, "10 minutes") {
		t.Fatalf("expected expiry hint in html: %s", msg.HTML)
	}
}
