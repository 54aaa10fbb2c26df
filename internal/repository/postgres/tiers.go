package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

const tierColumns = `id, event_id, name, price_cents, discount_price_cents, discount_ends_at,
	capacity, sold, active, created_at, updated_at`

type TierRepo struct {
	store *Store
}

// Get retrieves a ticket tier by its ID.
//
// Returns:
//   - *domain.TicketTier: the tier when found.
//   - error: repository.ErrNotFound if the tier does not exist.
func (r *TierRepo) Get(ctx context.Context, id int64) (*domain.TicketTier, error) {
	const op = "postgres.TierRepo.Get"

	db := r.store.handle(ctx)

	t, err := scanTier(db.QueryRow(ctx,
		`SELECT `+tierColumns+`
		 FROM ticket_tiers WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return t, nil
}

// ListByEvent lists the tiers of an event ordered by price.
func (r *TierRepo) ListByEvent(ctx context.Context, eventID int64) ([]domain.TicketTier, error) {
	const op = "postgres.TierRepo.ListByEvent"

	db := r.store.handle(ctx)

	rows, err := db.Query(ctx,
		`SELECT `+tierColumns+`
		 FROM ticket_tiers
		 WHERE event_id = $1
		 ORDER BY price_cents, id`,
		eventID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.TicketTier
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Reserve adds qty to the sold count of a tier if, and only if, the result stays within
// capacity. The check and the increment are one UPDATE statement.
//
// Returns:
//   - error: repository.ErrNoCapacity if the tier cannot take qty more units.
//   - error: repository.ErrNotFound if the tier does not exist.
func (r *TierRepo) Reserve(ctx context.Context, id int64, qty int) error {
	const op = "postgres.TierRepo.Reserve"

	db := r.store.handle(ctx)

	tag, err := db.Exec(ctx,
		`UPDATE ticket_tiers
		 SET sold = sold + $2, updated_at = NOW()
		 WHERE id = $1 AND sold + $2 <= capacity`,
		id, qty,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	exists, err := r.exists(ctx, db, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return fmt.Errorf("%s: %w", op, repository.ErrNoCapacity)
}

// Release subtracts qty from the sold count of a tier, never going below zero.
//
// Returns:
//   - error: repository.ErrNotFound if the tier does not exist.
func (r *TierRepo) Release(ctx context.Context, id int64, qty int) error {
	const op = "postgres.TierRepo.Release"

	db := r.store.handle(ctx)

	tag, err := db.Exec(ctx,
		`UPDATE ticket_tiers
		 SET sold = GREATEST(sold - $2, 0), updated_at = NOW()
		 WHERE id = $1`,
		id, qty,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

// Availability reads the capacity counters of a tier.
func (r *TierRepo) Availability(ctx context.Context, id int64) (domain.TierAvailability, error) {
	const op = "postgres.TierRepo.Availability"

	db := r.store.handle(ctx)

	var a domain.TierAvailability
	err := db.QueryRow(ctx,
		`SELECT id, capacity, sold, GREATEST(capacity - sold, 0)
		 FROM ticket_tiers WHERE id = $1`,
		id,
	).Scan(&a.TierID, &a.Capacity, &a.Sold, &a.Remaining)
	if err != nil {
		return domain.TierAvailability{}, wrapDBErr(op, err)
	}

	return a, nil
}

func (r *TierRepo) exists(ctx context.Context, db DB, id int64) (bool, error) {
	var ok bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ticket_tiers WHERE id = $1)`,
		id,
	).Scan(&ok)
	return ok, err
}

func scanTier(row pgx.Row) (*domain.TicketTier, error) {
	var t domain.TicketTier
	var discountEnds *time.Time

	if err := row.Scan(
		&t.ID,
		&t.EventID,
		&t.Name,
		&t.PriceCents,
		&t.DiscountPriceCents,
		&discountEnds,
		&t.Capacity,
		&t.Sold,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if discountEnds != nil {
		t.DiscountEndsAt = discountEnds.UTC()
	}

	return &t, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
