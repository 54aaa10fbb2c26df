package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

type CatalogRepo struct {
	store *Store
}

// UpsertEvent writes the singleton event and returns its ID.
func (r *CatalogRepo) UpsertEvent(ctx context.Context, e domain.Event) (int64, error) {
	const op = "postgres.CatalogRepo.UpsertEvent"

	db := r.store.handle(ctx)

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO events (name, location, starts_at, ends_at, currency, payment_instructions)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (singleton) DO UPDATE
		 SET name = EXCLUDED.name,
		     location = EXCLUDED.location,
		     starts_at = EXCLUDED.starts_at,
		     ends_at = EXCLUDED.ends_at,
		     currency = EXCLUDED.currency,
		     payment_instructions = EXCLUDED.payment_instructions
		 RETURNING id`,
		e.Name, e.Location, e.Starts, e.Ends, e.Currency, e.PaymentInstructions,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// GetEvent retrieves the singleton event.
//
// Returns:
//   - error: repository.ErrNotFound if no event was configured yet.
func (r *CatalogRepo) GetEvent(ctx context.Context) (*domain.Event, error) {
	const op = "postgres.CatalogRepo.GetEvent"

	db := r.store.handle(ctx)

	var e domain.Event
	if err := db.QueryRow(ctx,
		`SELECT id, name, location, starts_at, ends_at, currency, payment_instructions
		 FROM events LIMIT 1`,
	).Scan(&e.ID, &e.Name, &e.Location, &e.Starts, &e.Ends, &e.Currency, &e.PaymentInstructions); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &e, nil
}

// CreateTier inserts a tier with sold = 0 and returns its ID.
//
// Returns:
//   - error: repository.ErrConflict if the event already has a tier with that name.
//   - error: repository.ErrNotFound if the event does not exist.
func (r *CatalogRepo) CreateTier(ctx context.Context, t domain.TicketTier) (int64, error) {
	const op = "postgres.CatalogRepo.CreateTier"

	db := r.store.handle(ctx)

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO ticket_tiers (
			event_id, name, price_cents, discount_price_cents, discount_ends_at, capacity, active
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		t.EventID, t.Name, t.PriceCents, t.DiscountPriceCents, nullableTime(t.DiscountEndsAt),
		t.Capacity, t.Active,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// UpdateTier applies the non-nil fields of u. A capacity change only succeeds when the new
// capacity still covers the units already sold, checked in the same statement.
//
// Returns:
//   - *domain.TicketTier: the tier as written.
//   - error: repository.ErrCheckViolation if the edit would break a tier constraint.
//   - error: repository.ErrNotFound if the tier does not exist.
func (r *CatalogRepo) UpdateTier(ctx context.Context, id int64, u domain.TierUpdate) (*domain.TicketTier, error) {
	const op = "postgres.CatalogRepo.UpdateTier"

	db := r.store.handle(ctx)

	var discountEnds any
	clearDiscount := false
	if u.DiscountEndsAt != nil {
		if u.DiscountEndsAt.IsZero() {
			clearDiscount = true
		} else {
			discountEnds = *u.DiscountEndsAt
		}
	}

	t, err := scanTier(db.QueryRow(ctx,
		`UPDATE ticket_tiers
		 SET name = COALESCE($2, name),
		     price_cents = COALESCE($3, price_cents),
		     discount_price_cents = COALESCE($4, discount_price_cents),
		     discount_ends_at = CASE WHEN $8::boolean THEN NULL
		                             ELSE COALESCE($5::timestamptz, discount_ends_at) END,
		     capacity = COALESCE($6, capacity),
		     active = COALESCE($7, active),
		     updated_at = NOW()
		 WHERE id = $1 AND COALESCE($6, capacity) >= sold
		 RETURNING `+tierColumns,
		id, u.Name, u.PriceCents, u.DiscountPriceCents, discountEnds, u.Capacity, u.Active, clearDiscount,
	))
	if err == nil {
		return t, nil
	}

	err = translateDBErr(err)
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, existsErr := r.store.Tiers().exists(ctx, db, id)
	if existsErr != nil {
		return nil, wrapDBErr(op, existsErr)
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrCheckViolation)
	}

	return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
}
