package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/pricing"
	"github.com/kirinyoku/tix-booking/internal/repository"
	"github.com/kirinyoku/tix-booking/internal/uow"
	"github.com/kirinyoku/tix-booking/internal/validation"
)

// Store is the catalog side of the database; *postgres.CatalogRepo satisfies it.
type Store interface {
	UpsertEvent(ctx context.Context, e domain.Event) (int64, error)
	GetEvent(ctx context.Context) (*domain.Event, error)
	CreateTier(ctx context.Context, t domain.TicketTier) (int64, error)
	UpdateTier(ctx context.Context, id int64, u domain.TierUpdate) (*domain.TicketTier, error)
}

type TierReader interface {
	Get(ctx context.Context, id int64) (*domain.TicketTier, error)
}

type EventCache interface {
	InvalidateEvent(ctx context.Context) error
}

// TierChanges is told about every committed tier write; *inventory.Service satisfies it.
type TierChanges interface {
	TierChanged(ctx context.Context, tierID int64)
}

type EventInput struct {
	Name                string    `json:"name" validate:"required,max=200"`
	Location            string    `json:"location" validate:"max=200"`
	Starts              time.Time `json:"starts_at" validate:"required"`
	Ends                time.Time `json:"ends_at" validate:"required,gtfield=Starts"`
	Currency            string    `json:"currency" validate:"required,len=3,alpha"`
	PaymentInstructions string    `json:"payment_instructions" validate:"max=4000"`
}

type TierInput struct {
	Name               string    `json:"name" validate:"required,max=80"`
	PriceCents         int64     `json:"price_cents" validate:"gte=0"`
	DiscountPriceCents int64     `json:"discount_price_cents" validate:"gte=0"`
	DiscountEndsAt     time.Time `json:"discount_ends_at"`
	Capacity           int       `json:"capacity" validate:"gt=0"`
	Active             bool      `json:"active"`
}

type Service struct {
	store    Store
	tiers    TierReader
	cache    EventCache
	changes  TierChanges
	uow      *uow.UoW
	validate *validator.Validate
	logger   *slog.Logger
}

// New builds the catalog service. cache and changes may be nil.
func New(
	store Store,
	tiers TierReader,
	runner uow.Runner,
	cache EventCache,
	changes TierChanges,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:    store,
		tiers:    tiers,
		cache:    cache,
		changes:  changes,
		uow:      uow.NewUoW(runner),
		validate: validation.New(),
		logger:   logger,
	}
}

// UpsertEvent creates or replaces the singleton event and returns its ID.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: event fields; the currency code is upper-cased.
//
// Returns:
//   - int64: the event ID.
//   - error: catalog.InputError if the input is malformed.
func (s *Service) UpsertEvent(ctx context.Context, in EventInput) (int64, error) {
	const op = "service.catalog.UpsertEvent"

	in.Name = strings.TrimSpace(in.Name)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))

	if err := s.validate.Struct(in); err != nil {
		return 0, fmt.Errorf("%s: %w", op, inputError(err))
	}

	var id int64
	err := s.uow.Do(ctx, func(ctx context.Context, after func(uow.AfterCommit)) error {
		var err error
		id, err = s.store.UpsertEvent(ctx, domain.Event{
			Name:                in.Name,
			Location:            strings.TrimSpace(in.Location),
			Starts:              in.Starts.UTC(),
			Ends:                in.Ends.UTC(),
			Currency:            in.Currency,
			PaymentInstructions: in.PaymentInstructions,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			s.invalidateEvent(ctx)
		})
		return nil
	})

	return id, err
}

// CreateTier adds a tier with nothing sold to the event.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: tier fields.
//
// Returns:
//   - int64: the created tier ID.
//   - error: catalog.InputError if the input is malformed or the prices are inconsistent.
//   - error: catalog.ErrEventNotFound if no event was configured yet.
//   - error: catalog.ErrTierConflict if the event already has a tier with that name.
func (s *Service) CreateTier(ctx context.Context, in TierInput) (int64, error) {
	const op = "service.catalog.CreateTier"

	in.Name = strings.TrimSpace(in.Name)

	if err := s.validate.Struct(in); err != nil {
		return 0, fmt.Errorf("%s: %w", op, inputError(err))
	}

	tier := domain.TicketTier{
		Name:               in.Name,
		PriceCents:         in.PriceCents,
		DiscountPriceCents: in.DiscountPriceCents,
		DiscountEndsAt:     in.DiscountEndsAt.UTC(),
		Capacity:           in.Capacity,
		Active:             in.Active,
	}
	if err := pricing.Validate(tier); err != nil {
		return 0, fmt.Errorf("%s: %w", op, InputError{Field: "discount_price_cents", Reason: err.Error()})
	}

	var id int64
	err := s.uow.Do(ctx, func(ctx context.Context, after func(uow.AfterCommit)) error {
		event, err := s.store.GetEvent(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrEventNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		tier.EventID = event.ID

		id, err = s.store.CreateTier(ctx, tier)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, ErrTierConflict)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			s.tierChanged(ctx, id)
		})
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("tier created", "tier_id", id, "name", tier.Name, "capacity", tier.Capacity)

	return id, nil
}

// UpdateTier edits a tier. Capacity may be lowered only down to the units already sold;
// the sold count itself is never writable here.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of the tier.
//   - u: fields to change; nil fields are kept and a zero DiscountEndsAt clears the window.
//
// Returns:
//   - *domain.TicketTier: the updated tier.
//   - error: catalog.InputError if the merged tier would be malformed.
//   - error: catalog.ErrTierNotFound if the tier does not exist.
//   - error: catalog.ErrCapacityBelowSold if the new capacity is below the sold count.
//   - error: catalog.ErrTierConflict if the new name is taken.
func (s *Service) UpdateTier(ctx context.Context, id int64, u domain.TierUpdate) (*domain.TicketTier, error) {
	const op = "service.catalog.UpdateTier"

	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, fmt.Errorf("%s: %w", op, InputError{Field: "name", Reason: "failed required"})
		}
		u.Name = &name
	}

	if u.Capacity != nil && *u.Capacity <= 0 {
		return nil, fmt.Errorf("%s: %w", op, InputError{Field: "capacity", Reason: "failed gt=0"})
	}

	var out *domain.TicketTier
	err := s.uow.Do(ctx, func(ctx context.Context, after func(uow.AfterCommit)) error {
		cur, err := s.tiers.Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrTierNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := pricing.Validate(mergeTier(*cur, u)); err != nil {
			return fmt.Errorf("%s: %w", op, InputError{Field: "price_cents", Reason: err.Error()})
		}

		t, err := s.store.UpdateTier(ctx, id, u)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrCheckViolation):
				return fmt.Errorf("%s: %w", op, ErrCapacityBelowSold)
			case errors.Is(err, repository.ErrConflict):
				return fmt.Errorf("%s: %w", op, ErrTierConflict)
			case errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("%s: %w", op, ErrTierNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		out = t

		after(func(ctx context.Context) {
			s.tierChanged(ctx, id)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Service) invalidateEvent(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateEvent(ctx); err != nil {
		s.logger.Warn("invalidate event cache", "error", err)
	}
}

func (s *Service) tierChanged(ctx context.Context, tierID int64) {
	if s.changes != nil {
		s.changes.TierChanged(ctx, tierID)
	}
}

// mergeTier applies u to t the way the UPDATE statement does.
func mergeTier(t domain.TicketTier, u domain.TierUpdate) domain.TicketTier {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.PriceCents != nil {
		t.PriceCents = *u.PriceCents
	}
	if u.DiscountPriceCents != nil {
		t.DiscountPriceCents = *u.DiscountPriceCents
	}
	if u.DiscountEndsAt != nil {
		t.DiscountEndsAt = *u.DiscountEndsAt
	}
	if u.Capacity != nil {
		t.Capacity = *u.Capacity
	}
	if u.Active != nil {
		t.Active = *u.Active
	}
	return t
}

func inputError(err error) error {
	field, reason := validation.FirstFailure(err)
	return InputError{Field: field, Reason: reason}
}
