package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kirinyoku/tix-booking/internal/clock"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/pricing"
	"github.com/kirinyoku/tix-booking/internal/repository"
	"github.com/kirinyoku/tix-booking/internal/uow"
	"github.com/kirinyoku/tix-booking/internal/validation"
)

// maxTransitionAttempts bounds the re-reads after a lost status race. A booking can change
// status at most twice, so three reads always observe a settled status.
const maxTransitionAttempts = 3

// lifecycleTx runs the status write and the ledger write of one transition together. The
// conditional UPDATEs lock their rows, so READ COMMITTED is enough for exactly-one success.
var lifecycleTx = &pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}

type Store interface {
	Create(ctx context.Context, b domain.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	TransitionStatus(
		ctx context.Context,
		id uuid.UUID,
		from, to domain.BookingStatus,
		unitPrice *int64,
		at time.Time,
	) (*domain.Booking, error)
}

// Ledger is the inventory side of a transition; *inventory.Service satisfies it.
type Ledger interface {
	Tier(ctx context.Context, tierID int64) (*domain.TicketTier, error)
	Reserve(ctx context.Context, tierID int64, qty int) error
	Release(ctx context.Context, tierID int64, qty int) error
	TierChanged(ctx context.Context, tierID int64)
}

// Notifier sends the confirmation message. It must not block on delivery.
type Notifier interface {
	Notify(ctx context.Context, recipient string, b domain.Booking)
}

type Config struct {
	// MaxQuantity caps the quantity of one submission; zero disables the cap.
	MaxQuantity int
}

type Service struct {
	store    Store
	ledger   Ledger
	uow      *uow.UoW
	notifier Notifier
	validate *validator.Validate
	clock    clock.Clock
	logger   *slog.Logger
	cfg      Config
}

func New(
	store Store,
	ledger Ledger,
	runner uow.Runner,
	notifier Notifier,
	clk clock.Clock,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:    store,
		ledger:   ledger,
		uow:      uow.NewUoW(runner),
		notifier: notifier,
		validate: validation.New(),
		clock:    clk,
		logger:   logger,
		cfg:      cfg,
	}
}

// CreateBooking records a buyer submission as a pending booking. No inventory is touched.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: the submission; it is trimmed and the email lowercased before validation.
//
// Returns:
//   - *domain.Booking: the stored pending booking.
//   - error: booking.ValidationError for malformed input, an unknown or inactive tier.
//   - error: booking.ErrSoldOut if the tier has fewer remaining units than requested.
//   - error: booking.ErrDuplicatePaymentRef if the payment reference was already submitted.
func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput) (*domain.Booking, error) {
	const op = "service.booking.CreateBooking"

	in.normalize()

	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, validationError(err))
	}

	if s.cfg.MaxQuantity > 0 && in.Quantity > s.cfg.MaxQuantity {
		return nil, fmt.Errorf("%s: %w", op, ValidationError{
			Field:  "quantity",
			Reason: fmt.Sprintf("at most %d per booking", s.cfg.MaxQuantity),
		})
	}

	tier, err := s.ledger.Tier(ctx, in.TierID)
	if err != nil {
		if errors.Is(err, ErrTierNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ValidationError{Field: "tier_id", Reason: "unknown tier"})
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !tier.Active {
		return nil, fmt.Errorf("%s: %w", op, ValidationError{Field: "tier_id", Reason: "tier is not on sale"})
	}

	// Advisory only: the binding capacity check happens at approval.
	if tier.Availability().Remaining < in.Quantity {
		return nil, fmt.Errorf("%s: %w", op, ErrSoldOut)
	}

	now := s.clock.Now()
	b := domain.Booking{
		ID: uuid.New(),
		Buyer: domain.Buyer{
			Name:       in.Name,
			Email:      in.Email,
			Phone:      in.Phone,
			StudentID:  in.StudentID,
			Occupation: in.Occupation,
		},
		TierID:          in.TierID,
		Quantity:        in.Quantity,
		PaymentRef:      in.PaymentRef,
		PaymentProofURL: in.PaymentProofURL,
		Status:          domain.BookingPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.Create(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicatePaymentRef)
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ValidationError{Field: "tier_id", Reason: "unknown tier"})
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("booking submitted",
		"booking_id", b.ID, "tier_id", b.TierID, "quantity", b.Quantity)

	return &b, nil
}

// Get returns a booking by id.
//
// Returns:
//   - error: booking.ErrBookingNotFound if the booking does not exist.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.Get"

	b, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// SetStatus applies an operator decision to a booking.
//
// Approving moves pending to confirmed, reserving the quantity and locking the unit price
// in the same transaction; approving a confirmed booking returns it unchanged. Rejecting
// moves pending to rejected. Cancelling moves pending or confirmed to cancelled, releasing
// the reservation of a confirmed booking.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: booking id.
//   - target: the requested status.
//   - actingAsOperator: whether the caller holds the operator role.
//
// Returns:
//   - *domain.Booking: the booking after the transition.
//   - error: booking.ErrUnauthorized if the caller is not an operator.
//   - error: booking.ErrBookingNotFound if the booking does not exist.
//   - error: booking.ErrSoldOut if approval would exceed the tier capacity; the booking stays pending.
//   - error: booking.ErrInvalidTransition if the current status does not accept the event.
func (s *Service) SetStatus(
	ctx context.Context,
	id uuid.UUID,
	target domain.BookingStatus,
	actingAsOperator bool,
) (*domain.Booking, error) {
	const op = "service.booking.SetStatus"

	if !actingAsOperator {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	if !target.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ValidationError{Field: "status", Reason: "unknown status"})
	}

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		cur, err := s.store.Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Error("status change on missing booking", "booking_id", id)
				return nil, fmt.Errorf("%s: %w", op, ErrBookingNotFound)
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		b, err := s.transition(ctx, cur, target)
		if errors.Is(err, ErrConcurrentUpdate) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return b, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrConcurrentUpdate)
}

func (s *Service) transition(
	ctx context.Context,
	cur *domain.Booking,
	target domain.BookingStatus,
) (*domain.Booking, error) {
	invalid := InvalidTransitionError{From: cur.Status, To: target}

	switch target {
	case domain.BookingConfirmed:
		switch cur.Status {
		case domain.BookingConfirmed:
			return cur, nil
		case domain.BookingPending:
			return s.approve(ctx, cur)
		}

	case domain.BookingRejected:
		if cur.Status == domain.BookingPending {
			return s.swapStatus(ctx, cur.ID, domain.BookingPending, domain.BookingRejected)
		}

	case domain.BookingCancelled:
		switch cur.Status {
		case domain.BookingPending:
			return s.swapStatus(ctx, cur.ID, domain.BookingPending, domain.BookingCancelled)
		case domain.BookingConfirmed:
			return s.cancelConfirmed(ctx, cur)
		}
	}

	return nil, invalid
}

func (s *Service) approve(ctx context.Context, cur *domain.Booking) (*domain.Booking, error) {
	const op = "service.booking.approve"

	tier, err := s.ledger.Tier(ctx, cur.TierID)
	if err != nil {
		if errors.Is(err, ErrTierNotFound) {
			s.logger.Error("booking references missing tier",
				"booking_id", cur.ID, "tier_id", cur.TierID)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.clock.Now()

	price, err := pricing.CurrentPrice(*tier, now)
	if err != nil {
		s.logger.Error("tier pricing misconfigured", "tier_id", tier.ID, "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out *domain.Booking

	err = s.uow.DoWithOpts(ctx, lifecycleTx, func(ctx context.Context, after func(uow.AfterCommit)) error {
		b, err := s.store.TransitionStatus(ctx, cur.ID,
			domain.BookingPending, domain.BookingConfirmed, &price, now)
		if err != nil {
			if errors.Is(err, repository.ErrStatusMismatch) {
				return ErrConcurrentUpdate
			}
			return err
		}

		if err := s.ledger.Reserve(ctx, b.TierID, b.Quantity); err != nil {
			return err
		}

		out = b

		after(func(ctx context.Context) {
			s.ledger.TierChanged(ctx, b.TierID)
			if s.notifier != nil {
				s.notifier.Notify(ctx, b.Buyer.Email, *b)
			}
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSoldOut) {
			s.logger.Info("approval refused, tier sold out",
				"booking_id", cur.ID, "tier_id", cur.TierID, "quantity", cur.Quantity)
			return nil, fmt.Errorf("%s: %w", op, ErrSoldOut)
		}
		if errors.Is(err, ErrConcurrentUpdate) {
			return nil, ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("booking confirmed",
		"booking_id", out.ID, "tier_id", out.TierID, "unit_price_cents", price)

	return out, nil
}

func (s *Service) cancelConfirmed(ctx context.Context, cur *domain.Booking) (*domain.Booking, error) {
	const op = "service.booking.cancelConfirmed"

	var out *domain.Booking

	err := s.uow.DoWithOpts(ctx, lifecycleTx, func(ctx context.Context, after func(uow.AfterCommit)) error {
		b, err := s.store.TransitionStatus(ctx, cur.ID,
			domain.BookingConfirmed, domain.BookingCancelled, nil, s.clock.Now())
		if err != nil {
			if errors.Is(err, repository.ErrStatusMismatch) {
				return ErrConcurrentUpdate
			}
			return err
		}

		if err := s.ledger.Release(ctx, b.TierID, b.Quantity); err != nil {
			return err
		}

		out = b

		after(func(ctx context.Context) {
			s.ledger.TierChanged(ctx, b.TierID)
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConcurrentUpdate) {
			return nil, ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("confirmed booking cancelled", "booking_id", out.ID, "tier_id", out.TierID)

	return out, nil
}

// swapStatus moves a booking between two statuses that carry no inventory effect.
func (s *Service) swapStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.BookingStatus,
) (*domain.Booking, error) {
	const op = "service.booking.swapStatus"

	b, err := s.store.TransitionStatus(ctx, id, from, to, nil, s.clock.Now())
	if err != nil {
		if errors.Is(err, repository.ErrStatusMismatch) {
			return nil, ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("booking status changed", "booking_id", id, "from", from, "to", to)

	return b, nil
}
