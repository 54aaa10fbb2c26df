package notify

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kirinyoku/tix-booking/internal/domain"
)

const DefaultTopic = "bookings.confirmed"

// KafkaDispatcher writes confirmations to a topic, keyed by booking id so that every
// message of a booking lands on the same partition.
type KafkaDispatcher struct {
	writer *kafkago.Writer
}

func NewKafkaDispatcher(brokers []string, topic string) *KafkaDispatcher {
	if topic == "" {
		topic = DefaultTopic
	}

	return &KafkaDispatcher{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, recipient string, b domain.Booking) error {
	const op = "notify.KafkaDispatcher.Dispatch"

	msg, err := kafkaMessage(NewConfirmation(recipient, b))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

func kafkaMessage(c Confirmation) (kafkago.Message, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return kafkago.Message{}, err
	}

	return kafkago.Message{
		Key:   []byte(c.BookingID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "type", Value: []byte("booking.confirmed")},
		},
	}, nil
}
