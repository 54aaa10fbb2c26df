package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

const bookingColumns = `id, tier_id, buyer_name, buyer_email, buyer_phone, buyer_student_id,
	buyer_occupation, quantity, unit_price_cents, payment_ref, payment_proof_url, status,
	created_at, updated_at, confirmed_at`

type BookingRepo struct {
	store *Store
}

// Create inserts a booking record as given.
//
// Returns:
//   - error: repository.ErrConflict if the payment reference was already used.
//   - error: repository.ErrNotFound if the referenced tier does not exist.
func (r *BookingRepo) Create(ctx context.Context, b domain.Booking) error {
	const op = "postgres.BookingRepo.Create"

	db := r.store.handle(ctx)

	_, err := db.Exec(ctx,
		`INSERT INTO bookings (
			id, tier_id, buyer_name, buyer_email, buyer_phone, buyer_student_id,
			buyer_occupation, quantity, unit_price_cents, payment_ref, payment_proof_url,
			status, created_at, updated_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		b.ID, b.TierID, b.Buyer.Name, b.Buyer.Email, b.Buyer.Phone, b.Buyer.StudentID,
		b.Buyer.Occupation, b.Quantity, b.UnitPriceCents, b.PaymentRef, b.PaymentProofURL,
		string(b.Status), b.CreatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Get retrieves a booking by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.Get"

	db := r.store.handle(ctx)

	b, err := scanBooking(db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

// TransitionStatus moves a booking from one status to another in a single conditional
// write. unitPrice, when non-nil, is stored with the new status; confirmed_at is stamped
// when the new status is confirmed.
//
// Returns:
//   - *domain.Booking: the booking as written.
//   - error: repository.ErrStatusMismatch if the booking is missing or not in from.
func (r *BookingRepo) TransitionStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.BookingStatus,
	unitPrice *int64,
	at time.Time,
) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.TransitionStatus"

	db := r.store.handle(ctx)

	b, err := scanBooking(db.QueryRow(ctx,
		`UPDATE bookings
		 SET status = $3,
		     unit_price_cents = COALESCE($4, unit_price_cents),
		     updated_at = $5,
		     confirmed_at = CASE WHEN $3::text = 'confirmed' THEN $5 ELSE confirmed_at END
		 WHERE id = $1 AND status = $2
		 RETURNING `+bookingColumns,
		id, string(from), string(to), unitPrice, at,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, repository.ErrStatusMismatch)
		}
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

// ListByTier lists the bookings of a tier, newest first. An empty status lists all.
func (r *BookingRepo) ListByTier(
	ctx context.Context,
	tierID int64,
	status domain.BookingStatus,
	limit, offset int,
) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListByTier"

	db := r.store.handle(ctx)

	rows, err := db.Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE tier_id = $1 AND ($2::text = '' OR status = $2::text)
		 ORDER BY created_at DESC, id
		 LIMIT $3 OFFSET $4`,
		tierID, string(status), limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var status string

	if err := row.Scan(
		&b.ID,
		&b.TierID,
		&b.Buyer.Name,
		&b.Buyer.Email,
		&b.Buyer.Phone,
		&b.Buyer.StudentID,
		&b.Buyer.Occupation,
		&b.Quantity,
		&b.UnitPriceCents,
		&b.PaymentRef,
		&b.PaymentProofURL,
		&status,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.ConfirmedAt,
	); err != nil {
		return nil, err
	}

	b.Status = domain.BookingStatus(status)

	return &b, nil
}
