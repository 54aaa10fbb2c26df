package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/tix-booking/internal/clock"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/pricing"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

// TierStore owns the persisted tier rows. Reserve and Release must each be a single
// conditional write.
type TierStore interface {
	Get(ctx context.Context, id int64) (*domain.TicketTier, error)
	Availability(ctx context.Context, id int64) (domain.TierAvailability, error)
	Reserve(ctx context.Context, id int64, qty int) error
	Release(ctx context.Context, id int64, qty int) error
}

type Cache interface {
	TierAvailability(
		ctx context.Context,
		tierID int64,
		load func(ctx context.Context) (domain.TierAvailability, error),
	) (domain.TierAvailability, error)
	InvalidateTier(ctx context.Context, tierID int64) error
}

type ChangePublisher interface {
	PublishTierChanged(ctx context.Context, tierID int64) error
}

// Service is the inventory ledger: the only writer of a tier's sold count.
type Service struct {
	tiers  TierStore
	cache  Cache
	pubsub ChangePublisher
	clock  clock.Clock
	logger *slog.Logger
}

// New builds the ledger. cache and pubsub may be nil.
func New(
	tiers TierStore,
	cache Cache,
	pubsub ChangePublisher,
	clk clock.Clock,
	logger *slog.Logger,
) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		tiers:  tiers,
		cache:  cache,
		pubsub: pubsub,
		clock:  clk,
		logger: logger,
	}
}

// Reserve atomically adds qty to the sold count of a tier.
//
// Parameters:
//   - ctx: request-scoped context; a transaction carried by it is joined.
//   - tierID: ID of the tier.
//   - qty: number of units, must be positive.
//
// Returns:
//   - error: inventory.ErrSoldOut if sold + qty would exceed capacity.
//   - error: inventory.ErrTierNotFound if the tier does not exist.
func (s *Service) Reserve(ctx context.Context, tierID int64, qty int) error {
	const op = "service.inventory.Reserve"

	if qty <= 0 {
		return fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	if err := s.tiers.Reserve(ctx, tierID, qty); err != nil {
		switch {
		case errors.Is(err, repository.ErrNoCapacity):
			return fmt.Errorf("%s: %w", op, ErrSoldOut)
		case errors.Is(err, repository.ErrNotFound):
			s.logger.Error("reserve on missing tier", "tier_id", tierID)
			return fmt.Errorf("%s: %w", op, ErrTierNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Release atomically subtracts qty from the sold count of a tier, floored at zero.
//
// Returns:
//   - error: inventory.ErrTierNotFound if the tier does not exist.
func (s *Service) Release(ctx context.Context, tierID int64, qty int) error {
	const op = "service.inventory.Release"

	if qty <= 0 {
		return fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	if err := s.tiers.Release(ctx, tierID, qty); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("release on missing tier", "tier_id", tierID)
			return fmt.Errorf("%s: %w", op, ErrTierNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Tier returns the current tier row.
//
// Returns:
//   - error: inventory.ErrTierNotFound if the tier does not exist.
func (s *Service) Tier(ctx context.Context, tierID int64) (*domain.TicketTier, error) {
	const op = "service.inventory.Tier"

	t, err := s.tiers.Get(ctx, tierID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTierNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// CurrentPrice returns the unit price the tier charges right now.
//
// Returns:
//   - error: inventory.ErrTierNotFound if the tier does not exist.
//   - error: pricing.ErrMalformedTier if the tier's prices are inconsistent.
func (s *Service) CurrentPrice(ctx context.Context, tierID int64) (int64, error) {
	const op = "service.inventory.CurrentPrice"

	t, err := s.Tier(ctx, tierID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	price, err := pricing.CurrentPrice(*t, s.clock.Now())
	if err != nil {
		s.logger.Error("tier pricing misconfigured", "tier_id", tierID, "error", err)
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return price, nil
}

// Availability returns {capacity, sold, remaining} for display. The figures may be
// served from cache and lag a just-committed change by at most the cache TTL.
//
// Returns:
//   - error: inventory.ErrTierNotFound if the tier does not exist.
func (s *Service) Availability(ctx context.Context, tierID int64) (domain.TierAvailability, error) {
	const op = "service.inventory.Availability"

	load := func(ctx context.Context) (domain.TierAvailability, error) {
		a, err := s.tiers.Availability(ctx, tierID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.TierAvailability{}, ErrTierNotFound
			}
			return domain.TierAvailability{}, err
		}
		return a, nil
	}

	var (
		a   domain.TierAvailability
		err error
	)
	if s.cache != nil {
		a, err = s.cache.TierAvailability(ctx, tierID, load)
	} else {
		a, err = load(ctx)
	}
	if err != nil {
		return domain.TierAvailability{}, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

// TierChanged drops cached figures of a tier and announces the change. It is meant to run
// after the changing transaction committed; failures are logged only.
func (s *Service) TierChanged(ctx context.Context, tierID int64) {
	if s.cache != nil {
		if err := s.cache.InvalidateTier(ctx, tierID); err != nil {
			s.logger.Warn("invalidate tier cache", "tier_id", tierID, "error", err)
		}
	}

	if s.pubsub != nil {
		if err := s.pubsub.PublishTierChanged(ctx, tierID); err != nil {
			s.logger.Warn("publish tier changed", "tier_id", tierID, "error", err)
		}
	}
}

// Rewarm reloads the cached availability of a tier; used by the tier-changed subscriber.
func (s *Service) Rewarm(ctx context.Context, tierID int64) {
	if _, err := s.Availability(ctx, tierID); err != nil {
		s.logger.Warn("rewarm tier availability", "tier_id", tierID, "error", err)
	}
}
