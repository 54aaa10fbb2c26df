package redis

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tix-booking/internal/domain"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "tixbook:v1:tier:7:availability", KeyTierAvailability(7))
	assert.Equal(t, "tixbook:v1:rl:bookings:10.0.0.1", KeyRateLimit("bookings", "10.0.0.1"))
	assert.Equal(t, "tixbook:v1:idem:bookings:abc", KeyIdemBooking("abc"))
}

// newTestClient connects to TEST_REDIS_ADDR and flushes the selected database.
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	require.NoError(t, rdb.FlushDB(ctx).Err())

	return rdb
}

func TestCache_TierAvailabilityLoadsOnceUntilInvalidated(t *testing.T) {
	c := New(newTestClient(t), CacheConfig{})
	ctx := context.Background()

	var loads atomic.Int32
	load := func(context.Context) (domain.TierAvailability, error) {
		loads.Add(1)
		return domain.TierAvailability{TierID: 3, Capacity: 10, Sold: 4, Remaining: 6}, nil
	}

	for i := 0; i < 3; i++ {
		a, err := c.TierAvailability(ctx, 3, load)
		require.NoError(t, err)
		assert.Equal(t, 6, a.Remaining)
	}
	assert.Equal(t, int32(1), loads.Load())

	require.NoError(t, c.InvalidateTier(ctx, 3))
	_, err := c.TierAvailability(ctx, 3, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), loads.Load())
}

func TestIdempotencyStore(t *testing.T) {
	s := NewIdempotencyStore(newTestClient(t), time.Minute)
	ctx := context.Background()
	key := KeyIdemBooking("k-1")

	ok, err := s.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err := s.GetResult(ctx, key)
	require.NoError(t, err)
	assert.False(t, found, "a lock is not a result")

	require.NoError(t, s.SaveResult(ctx, key, `{"id":"b-1"}`))
	payload, found, err := s.GetResult(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"id":"b-1"}`, payload)
}

func TestSlidingWindowLimiter(t *testing.T) {
	l := NewSlidingWindowLimiter(newTestClient(t), 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "bookings", "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := l.Allow(ctx, "bookings", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Positive(t, d.RetryAfter)

	d, err = l.Allow(ctx, "bookings", "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestTiersPubSub(t *testing.T) {
	rdb := newTestClient(t)
	ps := NewTiersPubSub(rdb)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan int64, 1)
	done := make(chan error, 1)
	go func() {
		done <- ps.Subscribe(ctx, func(_ context.Context, tierID int64) {
			select {
			case got <- tierID:
			default:
			}
		})
	}()

	// Publish until the subscription is live.
	require.Eventually(t, func() bool {
		_ = ps.PublishTierChanged(ctx, 9)
		select {
		case id := <-got:
			return id == 9
		default:
			return false
		}
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
