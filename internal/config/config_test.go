package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/intensity/internal/record"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddress)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 25, cfg.OutboxBatchSize)
	assert.Equal(t, 30*time.Second, cfg.DLQPollInterval)
	assert.Equal(t, 5, cfg.DLQMaxRetries)
	assert.Equal(t, time.Minute, cfg.DLQBaseDelay)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, record.DefaultThresholds, cfg.Thresholds())
	assert.True(t, cfg.Logging().ToStdout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", ":9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("INTENSITY_HIGH_THRESHOLD", "9")
	t.Setenv("LOG_FORMAT_JSON", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddress)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, 9, cfg.Thresholds().High)
	assert.True(t, cfg.Logging().FormatJSON)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memcached")
	_, err := Load()
	require.ErrorContains(t, err, "CACHE_BACKEND")

	t.Setenv("CACHE_BACKEND", "none")
	t.Setenv("INTENSITY_LOW_THRESHOLD", "7")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("INTENSITY_LOW_THRESHOLD", "3")
	t.Setenv("DLQ_BATCH_SIZE", "0")
	_, err = Load()
	require.ErrorContains(t, err, "DLQ_BATCH_SIZE")
}
