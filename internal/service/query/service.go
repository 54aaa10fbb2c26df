package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

type Config struct {
	DefaultBookingsPage int
	MaxBookingsPage     int
}

// Reader is the read side of the store; *postgres.QueryRepo satisfies it.
type Reader interface {
	GetEventWithTiers(ctx context.Context) (*domain.EventWithTiers, error)
	TierStats(ctx context.Context, tierID int64) (*domain.TierBookingStats, error)
	ListBookingsByTier(
		ctx context.Context,
		tierID int64,
		status domain.BookingStatus,
		limit, offset int,
	) ([]domain.Booking, error)
}

type SummaryCache interface {
	EventSummary(
		ctx context.Context,
		load func(ctx context.Context) (domain.EventWithTiers, error),
	) (domain.EventWithTiers, error)
}

type Service struct {
	reader Reader
	cache  SummaryCache
	cfg    Config
}

// New builds the read service. cache may be nil.
func New(reader Reader, cache SummaryCache, cfg Config) *Service {
	if cfg.DefaultBookingsPage <= 0 {
		cfg.DefaultBookingsPage = 50
	}

	if cfg.MaxBookingsPage <= 0 {
		cfg.MaxBookingsPage = 200
	}

	return &Service{
		reader: reader,
		cache:  cache,
		cfg:    cfg,
	}
}

// EventSummary retrieves the event with its tiers, utilizing a caching layer to improve
// performance.
//
// Parameters:
//   - ctx: request-scoped context.
//
// Returns:
//   - *domain.EventWithTiers: the event and its tiers.
//   - error: query.ErrEventNotFound if no event was configured yet.
func (s *Service) EventSummary(ctx context.Context) (*domain.EventWithTiers, error) {
	const op = "service.query.EventSummary"

	load := func(ctx context.Context) (domain.EventWithTiers, error) {
		e, err := s.reader.GetEventWithTiers(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.EventWithTiers{}, ErrEventNotFound
			}

			return domain.EventWithTiers{}, err
		}

		return *e, nil
	}

	var (
		summary domain.EventWithTiers
		err     error
	)
	if s.cache != nil {
		summary, err = s.cache.EventSummary(ctx, load)
	} else {
		summary, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &summary, nil
}

// TierStats returns booking counts and booked quantities per status for a tier.
//
// Parameters:
//   - ctx: request-scoped context.
//   - tierID: ID of the tier.
//
// Returns:
//   - *domain.TierBookingStats: the aggregated figures.
//   - error: query.ErrTierNotFound if the tier does not exist.
func (s *Service) TierStats(ctx context.Context, tierID int64) (*domain.TierBookingStats, error) {
	const op = "service.query.TierStats"

	stats, err := s.reader.TierStats(ctx, tierID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTierNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return stats, nil
}

// ListTierBookings lists the bookings of a tier, newest first, with an optional status
// filter. Pagination is supported via limit and offset parameters.
//
// Parameters:
//   - ctx: request-scoped context.
//   - tierID: ID of the tier.
//   - status: status filter; empty lists every status.
//   - limit: maximum number of bookings to return (default and max limits are enforced).
//   - offset: number of bookings to skip.
//
// Returns:
//   - []domain.Booking: the page of bookings.
//   - error: query.ErrInvalidFilter if status is not a known booking status.
func (s *Service) ListTierBookings(
	ctx context.Context,
	tierID int64,
	status domain.BookingStatus,
	limit, offset int,
) ([]domain.Booking, error) {
	const op = "service.query.ListTierBookings"

	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidFilter)
	}

	if limit <= 0 {
		limit = s.cfg.DefaultBookingsPage
	}

	if limit > s.cfg.MaxBookingsPage {
		limit = s.cfg.MaxBookingsPage
	}

	if offset < 0 {
		offset = 0
	}

	bookings, err := s.reader.ListBookingsByTier(ctx, tierID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, nil
}
