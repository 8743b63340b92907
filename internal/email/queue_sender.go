package email

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// QueueSender publica los correos ya renderizados en una cola AMQP para que
// un worker externo los entregue.
type QueueSender struct {
	conn    *amqp.Connection
	channel publisher
	queue   string
}

func NewQueueSender(url, queue string) (*QueueSender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}
	return &QueueSender{conn: conn, channel: ch, queue: q.Name}, nil
}

func (s *QueueSender) SendVerificationCode(ctx context.Context, toEmail, code string, expiresAt time.Time) error {
	return s.publish(ctx, verificationMessage(toEmail, code, expiresAt))
}

func (s *QueueSender) SendPasswordReset(ctx context.Context, toEmail, resetURL string, expiresAt time.Time) error {
	return s.publish(ctx, passwordResetMessage(toEmail, resetURL, expiresAt))
}

func (s *QueueSender) publish(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrRecipientRequired
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}
	err = s.channel.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         msg.Kind,
	})
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", msg.Kind, err)
	}
	return nil
}

func (s *QueueSender) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
