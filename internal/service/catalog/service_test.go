package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

type directRunner struct{}

func (directRunner) RunTx(ctx context.Context, _ *pgx.TxOptions, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeCatalog struct {
	event  *domain.Event
	tiers  map[int64]domain.TicketTier
	nextID int64
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{tiers: make(map[int64]domain.TicketTier)}
}

func (f *fakeCatalog) UpsertEvent(_ context.Context, e domain.Event) (int64, error) {
	e.ID = 1
	f.event = &e
	return e.ID, nil
}

func (f *fakeCatalog) GetEvent(context.Context) (*domain.Event, error) {
	if f.event == nil {
		return nil, repository.ErrNotFound
	}
	return f.event, nil
}

func (f *fakeCatalog) CreateTier(_ context.Context, t domain.TicketTier) (int64, error) {
	for _, other := range f.tiers {
		if other.Name == t.Name {
			return 0, repository.ErrConflict
		}
	}
	f.nextID++
	t.ID = f.nextID
	f.tiers[t.ID] = t
	return t.ID, nil
}

func (f *fakeCatalog) UpdateTier(_ context.Context, id int64, u domain.TierUpdate) (*domain.TicketTier, error) {
	t, ok := f.tiers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	merged := mergeTier(t, u)
	if merged.Capacity < merged.Sold {
		return nil, repository.ErrCheckViolation
	}
	f.tiers[id] = merged
	return &merged, nil
}

func (f *fakeCatalog) Get(_ context.Context, id int64) (*domain.TicketTier, error) {
	t, ok := f.tiers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

type changeLog struct{ tiers []int64 }

func (c *changeLog) TierChanged(_ context.Context, tierID int64) { c.tiers = append(c.tiers, tierID) }

type eventCache struct{ invalidations int }

func (c *eventCache) InvalidateEvent(context.Context) error {
	c.invalidations++
	return nil
}

func newService(f *fakeCatalog) (*Service, *changeLog, *eventCache) {
	changes := &changeLog{}
	cache := &eventCache{}
	return New(f, f, directRunner{}, cache, changes, nil), changes, cache
}

func validEvent() EventInput {
	starts := time.Date(2026, 11, 20, 18, 0, 0, 0, time.UTC)
	return EventInput{
		Name:     "Campus Night",
		Location: "Main Hall",
		Starts:   starts,
		Ends:     starts.Add(5 * time.Hour),
		Currency: "kes",
	}
}

func TestUpsertEvent(t *testing.T) {
	f := newFakeCatalog()
	svc, _, cache := newService(f)

	id, err := svc.UpsertEvent(context.Background(), validEvent())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "KES", f.event.Currency)
	assert.Equal(t, 1, cache.invalidations)

	bad := validEvent()
	bad.Ends = bad.Starts.Add(-time.Hour)
	_, err = svc.UpsertEvent(context.Background(), bad)
	require.ErrorIs(t, err, ErrInvalidInput)

	var ierr InputError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "ends_at", ierr.Field)
}

func TestCreateTier(t *testing.T) {
	f := newFakeCatalog()
	svc, changes, _ := newService(f)
	ctx := context.Background()

	in := TierInput{Name: "Early Bird", PriceCents: 1000, DiscountPriceCents: 800, Capacity: 100, Active: true}

	_, err := svc.CreateTier(ctx, in)
	require.ErrorIs(t, err, ErrEventNotFound)

	_, err = svc.UpsertEvent(ctx, validEvent())
	require.NoError(t, err)

	id, err := svc.CreateTier(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.tiers[id].EventID)
	assert.Equal(t, []int64{id}, changes.tiers)

	_, err = svc.CreateTier(ctx, in)
	assert.ErrorIs(t, err, ErrTierConflict)

	in.Name = "VIP"
	in.DiscountPriceCents = 1500
	_, err = svc.CreateTier(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in.DiscountPriceCents = 0
	in.Capacity = 0
	_, err = svc.CreateTier(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateTier(t *testing.T) {
	f := newFakeCatalog()
	f.tiers[3] = domain.TicketTier{ID: 3, Name: "Regular", PriceCents: 1000, DiscountPriceCents: 800, Capacity: 10, Sold: 6}
	svc, changes, _ := newService(f)
	ctx := context.Background()

	capacity := 5
	_, err := svc.UpdateTier(ctx, 3, domain.TierUpdate{Capacity: &capacity})
	require.ErrorIs(t, err, ErrCapacityBelowSold)

	price := int64(700)
	_, err = svc.UpdateTier(ctx, 3, domain.TierUpdate{PriceCents: &price})
	require.ErrorIs(t, err, ErrInvalidInput)

	capacity = 6
	active := false
	got, err := svc.UpdateTier(ctx, 3, domain.TierUpdate{Capacity: &capacity, Active: &active})
	require.NoError(t, err)
	assert.Equal(t, 6, got.Capacity)
	assert.Equal(t, 6, got.Sold)
	assert.False(t, got.Active)
	assert.Equal(t, []int64{3}, changes.tiers)

	_, err = svc.UpdateTier(ctx, 42, domain.TierUpdate{Active: &active})
	assert.ErrorIs(t, err, ErrTierNotFound)
}
