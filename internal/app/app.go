package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/tix-booking/internal/auth"
	"github.com/kirinyoku/tix-booking/internal/clock"
	"github.com/kirinyoku/tix-booking/internal/config"
	"github.com/kirinyoku/tix-booking/internal/notify"
	"github.com/kirinyoku/tix-booking/internal/postgres"
	"github.com/kirinyoku/tix-booking/internal/proof"
	"github.com/kirinyoku/tix-booking/internal/redis"
	postgresrepo "github.com/kirinyoku/tix-booking/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tix-booking/internal/repository/redis"
	"github.com/kirinyoku/tix-booking/internal/service"
	"github.com/kirinyoku/tix-booking/internal/service/booking"
	httpgin "github.com/kirinyoku/tix-booking/internal/transport/http/gin"
	"github.com/kirinyoku/tix-booking/migrations"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	pool       *pgxpool.Pool
	rdb        *goredis.Client
	pubsub     *redisrepo.TiersPubSub
	services   *service.Services
	notifier   *notify.Async
	closers    []io.Closer
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize dependencies
	pgxPool, err := postgres.New(ctx, postgres.Config{
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Name:     cfg.Postgres.Name,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	if cfg.MigrateOnStart {
		if err := migrations.Apply(ctx, pgxPool); err != nil {
			pgxPool.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, pool: pgxPool, rdb: rdb}

	dispatcher, err := a.dispatchers()
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("failed to initialize notifications: %w", err)
	}
	a.notifier = notify.NewAsync(dispatcher, cfg.Notify.Timeout, logger)

	clk := clock.NewSystem()

	tokens, err := auth.NewIssuer(auth.Config{
		Secret: cfg.Auth.Secret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TTL,
	}, clk)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb, redisrepo.CacheConfig{})
	a.pubsub = redisrepo.NewTiersPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, cfg.Booking.IdempotencyTTL)

	// Initialize services
	a.services = service.NewServices(store, cache, a.pubsub, a.notifier, clk, logger, service.Config{
		Booking: booking.Config{MaxQuantity: cfg.Booking.MaxQuantity},
	})

	proofs := proof.New(store.Proofs(), proof.Config{
		BaseURL:  cfg.Proof.BaseURL,
		MaxBytes: cfg.Proof.MaxBytes,
	})

	// Initialize Gin router
	router := httpgin.NewRouter(httpgin.Deps{
		Services: a.services,
		Proofs:   proofs,
		Tokens:   tokens,
		Idem:     idempotencyStore,
		Limiter:  limiter,
		Health:   a.health,
		Logger:   logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// dispatchers builds the configured confirmation backends. Broker connections are
// registered for Close.
func (a *App) dispatchers() (notify.Dispatcher, error) {
	var out notify.Fanout
	for _, backend := range a.cfg.Notify.Backends {
		switch backend {
		case "log":
			out = append(out, notify.LogDispatcher{Logger: a.logger})
		case "amqp":
			d, err := notify.NewAMQPDispatcher(a.cfg.Notify.AMQPURL, a.cfg.Notify.AMQPQueue)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, d)
			out = append(out, d)
		case "kafka":
			d := notify.NewKafkaDispatcher(a.cfg.Notify.KafkaBrokers, a.cfg.Notify.KafkaTopic)
			a.closers = append(a.closers, d)
			out = append(out, d)
		default:
			return nil, fmt.Errorf("unknown notify backend %q", backend)
		}
	}

	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}

func (a *App) health(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := a.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Re-warm the availability cache of tiers changed by any instance
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, a.services.Inventory.Rewarm)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("tier-changed subscriber: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

// Close drains pending notifications, then releases brokers, Redis and Postgres.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.notifier != nil {
		ctx, cancel := context.WithTimeout(ctx, a.cfg.Notify.Timeout)
		defer cancel()
		if err := a.notifier.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain notifications: %w", err))
		}
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	return errors.Join(errs...)
}
