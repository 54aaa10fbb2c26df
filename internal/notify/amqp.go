package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kirinyoku/tix-booking/internal/domain"
)

const DefaultQueue = "booking.confirmed"

// AMQPDispatcher publishes confirmations to a durable RabbitMQ queue through the default
// exchange. The connection is shared; each publish opens its own channel.
type AMQPDispatcher struct {
	conn  *amqp.Connection
	queue string
}

// NewAMQPDispatcher dials the broker and declares the queue.
func NewAMQPDispatcher(url, queue string) (*AMQPDispatcher, error) {
	const op = "notify.NewAMQPDispatcher"

	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &AMQPDispatcher{conn: conn, queue: queue}, nil
}

func (d *AMQPDispatcher) Dispatch(ctx context.Context, recipient string, b domain.Booking) error {
	const op = "notify.AMQPDispatcher.Dispatch"

	pub, err := publishing(NewConfirmation(recipient, b), time.Now())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ch, err := d.conn.Channel()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		d.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (d *AMQPDispatcher) Close() error {
	return d.conn.Close()
}

func publishing(c Confirmation, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return amqp.Publishing{}, err
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    c.BookingID,
		Timestamp:    now.UTC(),
		Body:         body,
	}, nil
}
