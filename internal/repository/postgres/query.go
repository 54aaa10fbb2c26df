package postgres

import (
	"context"
	"fmt"

	"github.com/kirinyoku/tix-booking/internal/domain"
)

type QueryRepo struct {
	store *Store
}

// GetEventWithTiers retrieves the singleton event together with all of its tiers.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//
// Returns:
//   - *domain.EventWithTiers: the event and its tiers ordered by price.
//   - error: repository.ErrNotFound if no event was configured yet.
func (r *QueryRepo) GetEventWithTiers(ctx context.Context) (*domain.EventWithTiers, error) {
	const op = "postgres.QueryRepo.GetEventWithTiers"

	e, err := r.store.Catalog().GetEvent(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tiers, err := r.store.Tiers().ListByEvent(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if tiers == nil {
		tiers = []domain.TicketTier{}
	}

	return &domain.EventWithTiers{Event: *e, Tiers: tiers}, nil
}

// TierStats counts bookings and booked units of a tier per status, alongside the
// ledger's capacity counters.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - tierID: unique identifier of the tier.
//
// Returns:
//   - *domain.TierBookingStats: the aggregated figures.
//   - error: repository.ErrNotFound if the tier does not exist.
func (r *QueryRepo) TierStats(ctx context.Context, tierID int64) (*domain.TierBookingStats, error) {
	const op = "postgres.QueryRepo.TierStats"

	avail, err := r.store.Tiers().Availability(ctx, tierID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db := r.store.handle(ctx)

	rows, err := db.Query(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(quantity), 0)
		 FROM bookings
		 WHERE tier_id = $1
		 GROUP BY status`,
		tierID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	stats := &domain.TierBookingStats{
		TierID:    tierID,
		Quantity:  make(map[domain.BookingStatus]int),
		Bookings:  make(map[domain.BookingStatus]int),
		Available: avail,
	}
	for _, s := range []domain.BookingStatus{
		domain.BookingPending,
		domain.BookingConfirmed,
		domain.BookingRejected,
		domain.BookingCancelled,
	} {
		stats.Quantity[s] = 0
		stats.Bookings[s] = 0
	}

	for rows.Next() {
		var status string
		var count, qty int

		if err := rows.Scan(&status, &count, &qty); err != nil {
			return nil, wrapDBErr(op, err)
		}

		stats.Bookings[domain.BookingStatus(status)] = count
		stats.Quantity[domain.BookingStatus(status)] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return stats, nil
}

// ListBookingsByTier is the read-side entry point for the operator booking list.
func (r *QueryRepo) ListBookingsByTier(
	ctx context.Context,
	tierID int64,
	status domain.BookingStatus,
	limit, offset int,
) ([]domain.Booking, error) {
	return r.store.Bookings().ListByTier(ctx, tierID, status, limit, offset)
}
