package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"turnq/internal/models"
)

// RabbitMQTransport hands notifications to a downstream delivery worker
// over AMQP. A successful publish counts as delivered; the broker owns
// the last mile.
type RabbitMQTransport struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

func NewRabbitMQTransport(url, exchange, queue, routingKey string) (*RabbitMQTransport, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if err := ch.QueueBind(
		queue,
		routingKey,
		exchange,
		false,
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitMQTransport{
		conn:       conn,
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

func (t *RabbitMQTransport) Send(ctx context.Context, client *models.Client, notifType, message string) (bool, error) {
	body, err := json.Marshal(notificationEnvelope{
		ClientID: client.ID,
		QueueID:  client.QueueID,
		Email:    client.Email,
		Phone:    client.Phone,
		Type:     notifType,
		Message:  message,
		SentAt:   time.Now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode notification: %w", err)
	}

	err = t.channel.PublishWithContext(ctx,
		t.exchange,
		t.routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (t *RabbitMQTransport) Close() error {
	if err := t.channel.Close(); err != nil {
		_ = t.conn.Close()
		return err
	}
	return t.conn.Close()
}

type notificationEnvelope struct {
	ClientID int64     `json:"client_id"`
	QueueID  int64     `json:"queue_id"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	Type     string    `json:"type"`
	Message  string    `json:"message"`
	SentAt   time.Time `json:"sent_at"`
}
