package service

import (
	"log/slog"

	"github.com/kirinyoku/tix-booking/internal/clock"
	postgres "github.com/kirinyoku/tix-booking/internal/repository/postgres"
	redis "github.com/kirinyoku/tix-booking/internal/repository/redis"
	"github.com/kirinyoku/tix-booking/internal/service/booking"
	"github.com/kirinyoku/tix-booking/internal/service/catalog"
	"github.com/kirinyoku/tix-booking/internal/service/inventory"
	"github.com/kirinyoku/tix-booking/internal/service/query"
)

type Services struct {
	Inventory *inventory.Service
	Booking   *booking.Service
	Query     *query.Service
	Catalog   *catalog.Service
}

type Config struct {
	Booking booking.Config
	Query   query.Config
}

// NewServices wires the services over one store. cache, pubsub and notifier may be nil.
func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redis.TiersPubSub,
	notifier booking.Notifier,
	clk clock.Clock,
	logger *slog.Logger,
	cfg Config,
) *Services {
	var (
		tierCache    inventory.Cache
		summaryCache query.SummaryCache
		eventCache   catalog.EventCache
		publisher    inventory.ChangePublisher
	)
	if cache != nil {
		tierCache, summaryCache, eventCache = cache, cache, cache
	}
	if pubsub != nil {
		publisher = pubsub
	}

	ledger := inventory.New(store.Tiers(), tierCache, publisher, clk, logger)

	return &Services{
		Inventory: ledger,
		Booking:   booking.New(store.Bookings(), ledger, store, notifier, clk, logger, cfg.Booking),
		Query:     query.New(store.Query(), summaryCache, cfg.Query),
		Catalog:   catalog.New(store.Catalog(), store.Tiers(), store, eventCache, ledger, logger),
	}
}
