package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/kirinyoku/tix-booking/internal/domain"
)

type CacheConfig struct {
	AvailabilityTTL time.Duration
	EventSummaryTTL time.Duration
}

// Cache is a read-through display cache. Nothing read from it feeds an inventory decision.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
	cfg CacheConfig
}

func New(client *redis.Client, cfg CacheConfig) *Cache {
	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 15 * time.Second
	}

	if cfg.EventSummaryTTL <= 0 {
		cfg.EventSummaryTTL = 60 * time.Second
	}

	return &Cache{rdb: client, cfg: cfg}
}

func (c *Cache) GetString(ctx context.Context, key string) (string, bool, error) {
	s, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return s, true, nil
}

func (c *Cache) SetString(
	ctx context.Context,
	key string,
	val string,
	ttl time.Duration,
) error {
	return c.rdb.Set(ctx, key, val, ttl).Err()
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var zero T

	s, ok, err := c.GetString(ctx, key)
	if err != nil || !ok {
		return zero, ok, err
	}

	var out T
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return zero, false, err
	}

	return out, true, nil
}

func SetJSON(
	ctx context.Context,
	c *Cache,
	key string,
	val any,
	ttl time.Duration,
) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.SetString(ctx, key, string(b), ttl)
}

// GetOrSetJSON returns the cached value under key, or loads, stores and returns it.
// Concurrent misses for the same key share one loader call. A cache read error falls back
// to the loader: the cache is never the source of truth.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if v, ok, err := GetJSON[T](ctx, c, key); err == nil && ok {
		return v, nil
	}

	vAny, err, _ := c.sf.Do(key, func() (any, error) {
		if v2, ok2, err2 := GetJSON[T](ctx, c, key); err2 == nil && ok2 {
			return v2, nil
		}
		v3, err3 := loader(ctx)
		if err3 != nil {
			return nil, err3
		}
		_ = SetJSON(ctx, c, key, v3, ttl)
		return v3, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := vAny.(T)
	if !ok {
		var zero T
		return zero, errors.New("type assertion failed")
	}

	return v, nil
}

func (c *Cache) TierAvailability(
	ctx context.Context,
	tierID int64,
	load func(ctx context.Context) (domain.TierAvailability, error),
) (domain.TierAvailability, error) {
	return GetOrSetJSON(ctx, c, KeyTierAvailability(tierID), c.cfg.AvailabilityTTL, load)
}

func (c *Cache) EventSummary(
	ctx context.Context,
	load func(ctx context.Context) (domain.EventWithTiers, error),
) (domain.EventWithTiers, error) {
	return GetOrSetJSON(ctx, c, KeyEventSummary(), c.cfg.EventSummaryTTL, load)
}

// InvalidateTier drops the availability of a tier and the event summary that embeds it.
func (c *Cache) InvalidateTier(ctx context.Context, tierID int64) error {
	return c.Del(ctx, KeyTierAvailability(tierID), KeyEventSummary())
}

func (c *Cache) InvalidateEvent(ctx context.Context) error {
	return c.Del(ctx, KeyEventSummary())
}
