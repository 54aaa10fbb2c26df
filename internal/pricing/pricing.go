// Package pricing resolves the unit price a ticket tier charges at a given instant.
package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/tix-booking/internal/domain"
)

// ErrMalformedTier is a configuration error: the tier's price fields cannot produce a price.
var ErrMalformedTier = errors.New("malformed tier pricing")

// Validate checks the price invariants of a tier: both prices non-negative and the discount
// price not above the standard price.
func Validate(tier domain.TicketTier) error {
	const op = "pricing.Validate"

	switch {
	case tier.PriceCents < 0:
		return fmt.Errorf("%s: %w: negative price %d", op, ErrMalformedTier, tier.PriceCents)
	case tier.DiscountPriceCents < 0:
		return fmt.Errorf("%s: %w: negative discount price %d", op, ErrMalformedTier, tier.DiscountPriceCents)
	case tier.DiscountPriceCents > tier.PriceCents:
		return fmt.Errorf("%s: %w: discount price %d above price %d",
			op, ErrMalformedTier, tier.DiscountPriceCents, tier.PriceCents)
	}

	return nil
}

// CurrentPrice returns the discount price while now is strictly before the end of the
// discount window and the standard price from that instant on. A tier without a discount
// end always charges its standard price.
func CurrentPrice(tier domain.TicketTier, now time.Time) (int64, error) {
	if err := Validate(tier); err != nil {
		return 0, err
	}

	if !tier.DiscountEndsAt.IsZero() && now.Before(tier.DiscountEndsAt) {
		return tier.DiscountPriceCents, nil
	}

	return tier.PriceCents, nil
}
