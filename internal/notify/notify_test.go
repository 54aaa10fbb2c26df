package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tix-booking/internal/domain"
)

type dispatchFunc func(ctx context.Context, recipient string, b domain.Booking) error

func (f dispatchFunc) Dispatch(ctx context.Context, recipient string, b domain.Booking) error {
	return f(ctx, recipient, b)
}

func confirmedBooking() domain.Booking {
	price := int64(800)
	at := time.Date(2026, 4, 30, 10, 0, 0, 0, time.UTC)
	return domain.Booking{
		ID:             uuid.MustParse("6f1f7c1e-4a57-4f39-9b9c-0d6f2b4f8a11"),
		Buyer:          domain.Buyer{Name: "Amina", Email: "amina@example.com", Phone: "+254700000001"},
		TierID:         2,
		Quantity:       3,
		UnitPriceCents: &price,
		PaymentRef:     "MP000123",
		Status:         domain.BookingConfirmed,
		ConfirmedAt:    &at,
	}
}

func TestNewConfirmation(t *testing.T) {
	c := NewConfirmation("amina@example.com", confirmedBooking())

	assert.Equal(t, "6f1f7c1e-4a57-4f39-9b9c-0d6f2b4f8a11", c.BookingID)
	assert.Equal(t, int64(800), c.UnitPriceCents)
	assert.Equal(t, int64(2400), c.TotalCents)
	assert.Equal(t, "MP000123", c.PaymentRef)
}

func TestFanout_DispatchesAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("broker down")

	var (
		mu   sync.Mutex
		seen []string
	)
	ok := dispatchFunc(func(_ context.Context, recipient string, _ domain.Booking) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, recipient)
		return nil
	})
	failing := dispatchFunc(func(context.Context, string, domain.Booking) error { return boom })

	err := Fanout{ok, failing, ok}.Dispatch(context.Background(), "amina@example.com", confirmedBooking())

	require.ErrorIs(t, err, boom)
	assert.Len(t, seen, 2)
	assert.NoError(t, Fanout{ok}.Dispatch(context.Background(), "x@example.com", confirmedBooking()))
}

func TestAsync_LogsFailureAndIgnoresCallerCancel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var called bool
	a := NewAsync(dispatchFunc(func(ctx context.Context, _ string, _ domain.Booking) error {
		called = true
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.New("smtp refused")
	}), time.Second, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a.Notify(ctx, "amina@example.com", confirmedBooking())
	require.NoError(t, a.Wait(context.Background()))

	assert.True(t, called)
	assert.Contains(t, buf.String(), "booking notification failed")
	assert.Contains(t, buf.String(), "smtp refused")
}

func TestAMQPPublishing(t *testing.T) {
	now := time.Date(2026, 4, 30, 10, 0, 0, 0, time.UTC)

	pub, err := publishing(NewConfirmation("amina@example.com", confirmedBooking()), now)
	require.NoError(t, err)

	assert.Equal(t, "application/json", pub.ContentType)
	assert.Equal(t, amqp.Persistent, pub.DeliveryMode)
	assert.Equal(t, "6f1f7c1e-4a57-4f39-9b9c-0d6f2b4f8a11", pub.MessageId)

	var c Confirmation
	require.NoError(t, json.Unmarshal(pub.Body, &c))
	assert.Equal(t, "amina@example.com", c.Recipient)
}

func TestKafkaMessage_KeyedByBooking(t *testing.T) {
	msg, err := kafkaMessage(NewConfirmation("amina@example.com", confirmedBooking()))
	require.NoError(t, err)

	assert.Equal(t, "6f1f7c1e-4a57-4f39-9b9c-0d6f2b4f8a11", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "booking.confirmed", string(msg.Headers[0].Value))
}
