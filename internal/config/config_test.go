package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lokeshwarrior12/FineDine/internal/common/database"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, database.DriverPostgres, cfg.DBConfig.Driver)
	assert.False(t, cfg.KafkaConfig.Enabled)
	assert.False(t, cfg.RedisConfig.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.CouponConfig.IdempotencyTTL)
	assert.Equal(t, uint64(3), cfg.CouponConfig.TxMaxRetries)
}

func TestLoad_FromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SERVICE_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("EXPIRY_SWEEP_SPEC", "@every 30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaConfig.Brokers)
	assert.True(t, cfg.KafkaConfig.Enabled)
	assert.True(t, cfg.RedisConfig.Enabled)
	assert.Equal(t, "s3cret", cfg.JWTConfig.Secret)
	assert.Equal(t, "@every 30s", cfg.CouponConfig.ExpirySweepSpec)
}

// chdir is testing.T.Chdir for toolchains older than Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
