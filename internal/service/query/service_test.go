package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

type fakeReader struct {
	event     *domain.EventWithTiers
	stats     map[int64]*domain.TierBookingStats
	lastLimit int
	lastOff   int
	loads     int
}

func (f *fakeReader) GetEventWithTiers(context.Context) (*domain.EventWithTiers, error) {
	f.loads++
	if f.event == nil {
		return nil, repository.ErrNotFound
	}
	return f.event, nil
}

func (f *fakeReader) TierStats(_ context.Context, tierID int64) (*domain.TierBookingStats, error) {
	s, ok := f.stats[tierID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeReader) ListBookingsByTier(
	_ context.Context,
	_ int64,
	_ domain.BookingStatus,
	limit, offset int,
) ([]domain.Booking, error) {
	f.lastLimit, f.lastOff = limit, offset
	return []domain.Booking{}, nil
}

type memoCache struct {
	summary *domain.EventWithTiers
}

func (c *memoCache) EventSummary(
	ctx context.Context,
	load func(ctx context.Context) (domain.EventWithTiers, error),
) (domain.EventWithTiers, error) {
	if c.summary != nil {
		return *c.summary, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	c.summary = &v
	return v, nil
}

func TestEventSummary_CachedAfterFirstLoad(t *testing.T) {
	r := &fakeReader{event: &domain.EventWithTiers{
		Event: domain.Event{ID: 1, Name: "Campus Night"},
		Tiers: []domain.TicketTier{{ID: 1, Name: "Early"}},
	}}
	svc := New(r, &memoCache{}, Config{})

	for i := 0; i < 3; i++ {
		got, err := svc.EventSummary(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Campus Night", got.Event.Name)
	}
	assert.Equal(t, 1, r.loads)
}

func TestEventSummary_NotConfigured(t *testing.T) {
	svc := New(&fakeReader{}, nil, Config{})

	_, err := svc.EventSummary(context.Background())
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestTierStats_NotFound(t *testing.T) {
	svc := New(&fakeReader{}, nil, Config{})

	_, err := svc.TierStats(context.Background(), 4)
	assert.ErrorIs(t, err, ErrTierNotFound)
}

func TestListTierBookings_ClampsPage(t *testing.T) {
	r := &fakeReader{}
	svc := New(r, nil, Config{DefaultBookingsPage: 20, MaxBookingsPage: 100})
	ctx := context.Background()

	tests := []struct {
		name          string
		limit, offset int
		wantLimit     int
		wantOffset    int
	}{
		{"default", 0, 0, 20, 0},
		{"capped", 1000, 10, 100, 10},
		{"negative offset", 5, -3, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ListTierBookings(ctx, 1, domain.BookingPending, tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, r.lastLimit)
			assert.Equal(t, tt.wantOffset, r.lastOff)
		})
	}

	_, err := svc.ListTierBookings(ctx, 1, domain.BookingStatus("paid"), 0, 0)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}
