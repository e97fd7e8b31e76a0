package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const notificationsExchange = "notifications_fanout"

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitNotifier publishes notifications to a fanout exchange so any number
// of subscriber services can deliver them.
type RabbitNotifier struct {
	conn *amqp.Connection
	ch   amqpPublisher
}

func NewRabbitNotifier(url string) (*RabbitNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		notificationsExchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &RabbitNotifier{conn: conn, ch: ch}, nil
}

func (r *RabbitNotifier) Notify(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode rabbitmq message: %w", err)
	}
	err = r.ch.PublishWithContext(ctx,
		notificationsExchange,
		"",    // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    msg.ID,
			Type:         msg.Kind,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish rabbitmq message: %w", err)
	}
	return nil
}

func (r *RabbitNotifier) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}
