package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WALLET_ALLOW_NEGATIVE", "")
	t.Setenv("BROKER_KIND", "")
	cfg := Load()
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.False(t, cfg.Policy.WalletAllowNegative)
	assert.True(t, cfg.Policy.AllowBackdatedExpiry)
	assert.Equal(t, "none", cfg.Broker.Kind)
	assert.Equal(t, "@every 15m", cfg.Jobs.ReconcileCron)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("WALLET_ALLOW_NEGATIVE", "true")
	t.Setenv("TICKETS_ALLOW_BACKDATED_EXPIRY", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("BOOKING_LOCK_TTL", "3s")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.True(t, cfg.Policy.WalletAllowNegative)
	assert.False(t, cfg.Policy.AllowBackdatedExpiry)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Broker.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, 0, cfg.Redis.DB)
}
