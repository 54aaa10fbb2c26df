// Package notify delivers booking confirmations to the buyer-facing channels. Delivery is
// best effort: callers go through Async, which never reports failures back.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/tix-booking/internal/domain"
)

// Dispatcher hands one confirmation to a transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipient string, b domain.Booking) error
}

// Confirmation is the message body every transport carries.
type Confirmation struct {
	BookingID      string    `json:"booking_id"`
	Recipient      string    `json:"recipient"`
	BuyerName      string    `json:"buyer_name"`
	Phone          string    `json:"phone"`
	TierID         int64     `json:"tier_id"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	TotalCents     int64     `json:"total_cents"`
	PaymentRef     string    `json:"payment_ref"`
	ConfirmedAt    time.Time `json:"confirmed_at"`
}

func NewConfirmation(recipient string, b domain.Booking) Confirmation {
	c := Confirmation{
		BookingID:  b.ID.String(),
		Recipient:  recipient,
		BuyerName:  b.Buyer.Name,
		Phone:      b.Buyer.Phone,
		TierID:     b.TierID,
		Quantity:   b.Quantity,
		TotalCents: b.TotalCents(),
		PaymentRef: b.PaymentRef,
	}
	if b.UnitPriceCents != nil {
		c.UnitPriceCents = *b.UnitPriceCents
	}
	if b.ConfirmedAt != nil {
		c.ConfirmedAt = b.ConfirmedAt.UTC()
	}
	return c
}

// Fanout dispatches to every transport concurrently and joins their errors.
type Fanout []Dispatcher

func (f Fanout) Dispatch(ctx context.Context, recipient string, b domain.Booking) error {
	errs := make([]error, len(f))

	var g errgroup.Group
	for i, d := range f {
		g.Go(func() error {
			errs[i] = d.Dispatch(ctx, recipient, b)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// LogDispatcher writes the confirmation to the log; used when no broker is configured.
type LogDispatcher struct {
	Logger *slog.Logger
}

func (d LogDispatcher) Dispatch(ctx context.Context, recipient string, b domain.Booking) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.InfoContext(ctx, "booking confirmation",
		"booking_id", b.ID, "recipient", recipient, "total_cents", b.TotalCents())
	return nil
}
