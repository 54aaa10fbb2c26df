package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server         ServerConfig
	Postgres       PostgresConfig
	Redis          RedisConfig
	Auth           AuthConfig
	Notify         NotifyConfig
	Proof          ProofConfig
	Booking        BookingConfig
	RateLimit      RateLimitConfig
	LogLevel       string
	MigrateOnStart bool
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
}

type AuthConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// NotifyConfig selects the confirmation backends. Backends holds any of "log", "amqp" and
// "kafka"; every listed backend receives each confirmation.
type NotifyConfig struct {
	Backends     []string
	Timeout      time.Duration
	AMQPURL      string
	AMQPQueue    string
	KafkaBrokers []string
	KafkaTopic   string
}

type ProofConfig struct {
	BaseURL  string
	MaxBytes int64
}

type BookingConfig struct {
	MaxQuantity    int
	IdempotencyTTL time.Duration
}

type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := envInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	shutdownTimeout, err := envDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host:            envString("SERVER_HOST", "localhost"),
		Port:            serverPort,
		ShutdownTimeout: shutdownTimeout,
	}

	postgresPort, err := envInt("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresMaxConns, err := envInt("POSTGRES_MAX_CONNS", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	postgresCfg := PostgresConfig{
		User:     postgresUser,
		Password: postgresPassword,
		Name:     postgresDB,
		Host:     envString("POSTGRES_HOST", "localhost"),
		Port:     postgresPort,
		SSLMode:  envString("POSTGRES_SSLMODE", "disable"),
		MaxConns: int32(postgresMaxConns),
	}

	redisDB, err := envInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:     envString("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	authSecret := os.Getenv("AUTH_SECRET")
	if authSecret == "" {
		return nil, fmt.Errorf("%s: missing AUTH_SECRET", op)
	}

	authTTL, err := envDuration("AUTH_TOKEN_TTL", 12*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	authCfg := AuthConfig{
		Secret: authSecret,
		Issuer: envString("AUTH_ISSUER", "tix-booking"),
		TTL:    authTTL,
	}

	notifyCfg, err := notifyConfig()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	proofMaxBytes, err := envInt("PROOF_MAX_BYTES", 5<<20)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	proofCfg := ProofConfig{
		BaseURL:  envString("PUBLIC_BASE_URL", fmt.Sprintf("http://%s:%d", serverCfg.Host, serverCfg.Port)),
		MaxBytes: int64(proofMaxBytes),
	}

	maxQuantity, err := envInt("BOOKING_MAX_QUANTITY", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	idemTTL, err := envDuration("BOOKING_IDEMPOTENCY_TTL", 2*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rlLimit, err := envInt("RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rlWindow, err := envDuration("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	migrate, err := envBool("MIGRATE_ON_START", true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server:         serverCfg,
		Postgres:       postgresCfg,
		Redis:          redisCfg,
		Auth:           authCfg,
		Notify:         notifyCfg,
		Proof:          proofCfg,
		Booking:        BookingConfig{MaxQuantity: maxQuantity, IdempotencyTTL: idemTTL},
		RateLimit:      RateLimitConfig{Limit: rlLimit, Window: rlWindow},
		LogLevel:       envString("LOG_LEVEL", "info"),
		MigrateOnStart: migrate,
	}, nil
}

func notifyConfig() (NotifyConfig, error) {
	timeout, err := envDuration("NOTIFY_TIMEOUT", 10*time.Second)
	if err != nil {
		return NotifyConfig{}, err
	}

	cfg := NotifyConfig{
		Backends:     envList("NOTIFY_BACKENDS", []string{"log"}),
		Timeout:      timeout,
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPQueue:    envString("AMQP_QUEUE", "booking.confirmed"),
		KafkaBrokers: envList("KAFKA_BROKERS", nil),
		KafkaTopic:   envString("KAFKA_TOPIC", "bookings.confirmed"),
	}

	for i, b := range cfg.Backends {
		b = strings.ToLower(b)
		cfg.Backends[i] = b

		switch b {
		case "log":
		case "amqp":
			if cfg.AMQPURL == "" {
				return NotifyConfig{}, fmt.Errorf("missing AMQP_URL for notify backend amqp")
			}
		case "kafka":
			if len(cfg.KafkaBrokers) == 0 {
				return NotifyConfig{}, fmt.Errorf("missing KAFKA_BROKERS for notify backend kafka")
			}
		default:
			return NotifyConfig{}, fmt.Errorf("unknown notify backend %q", b)
		}
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// envList splits a comma-separated value, dropping blanks.
func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
