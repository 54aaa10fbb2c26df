package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_USER", "tix")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "tixbook")
	t.Setenv("AUTH_SECRET", "signing-key")
}

func TestNew_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TTL)
	assert.Equal(t, []string{"log"}, cfg.Notify.Backends)
	assert.Equal(t, "http://localhost:8080", cfg.Proof.BaseURL)
	assert.Equal(t, int64(5<<20), cfg.Proof.MaxBytes)
	assert.Equal(t, 10, cfg.Booking.MaxQuantity)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.True(t, cfg.MigrateOnStart)
}

func TestNew_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PUBLIC_BASE_URL", "https://tickets.example")
	t.Setenv("NOTIFY_BACKENDS", "Log, kafka")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("MIGRATE_ON_START", "false")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://tickets.example", cfg.Proof.BaseURL)
	assert.Equal(t, []string{"log", "kafka"}, cfg.Notify.Backends)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Notify.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.False(t, cfg.MigrateOnStart)
}

func TestNew_Errors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"AUTH_SECRET": ""}, "missing AUTH_SECRET"},
		{"bad port", map[string]string{"SERVER_PORT": "http"}, "invalid SERVER_PORT"},
		{"bad duration", map[string]string{"AUTH_TOKEN_TTL": "soon"}, "invalid AUTH_TOKEN_TTL"},
		{"amqp without url", map[string]string{"NOTIFY_BACKENDS": "amqp"}, "missing AMQP_URL"},
		{"unknown backend", map[string]string{"NOTIFY_BACKENDS": "sms"}, "unknown notify backend"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := New()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
