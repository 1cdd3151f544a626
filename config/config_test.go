package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Server.Mode)

	assert.Equal(t, 3002, cfg.Orchestrator.Port)
	assert.Equal(t, 500, cfg.Orchestrator.IdempotencyCapacity)
	assert.Equal(t, 15*time.Minute, cfg.Orchestrator.IdempotencyTTL)
	assert.Equal(t, 1, cfg.Orchestrator.Retries)

	assert.Equal(t, 3001, cfg.Merchant.Port)
	assert.Equal(t, "http://localhost:3002", cfg.Merchant.OrchestratorURL)
	assert.Equal(t, 15*time.Second, cfg.Merchant.ForwardTimeout)
	assert.Equal(t, "http://localhost:3001/merchant/callback", cfg.Merchant.CallbackURL())

	assert.Equal(t, 10*time.Second, cfg.Callback.Timeout)
	assert.Empty(t, cfg.Callback.Secret)

	assert.Equal(t, "sandbox", cfg.Braintree.Environment)
	assert.False(t, cfg.Braintree.HasCredentials())

	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "payment-results", cfg.Kafka.Topic)

	assert.Equal(t, int64(100), cfg.RateLimit.Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
}

func TestLoad_FromYAMLFile(t *testing.T) {
	content := []byte(`
server:
  host: "127.0.0.1"
  mode: "release"
orchestrator:
  port: 4002
  idempotency_capacity: 50
  idempotency_ttl: "1m"
merchant:
  port: 4001
  orchestrator_url: "http://orchestrator:4002"
  public_url: "https://shop.example.com/"
braintree:
  merchant_id: "mid"
  public_key: "pub"
  private_key: "priv"
redis:
  enabled: true
  host: "redis.example.com"
  port: 6380
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
  topic: "results"
log:
  level: "debug"
  pretty: true
`)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, content, 0644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 4002, cfg.Orchestrator.Port)
	assert.Equal(t, 50, cfg.Orchestrator.IdempotencyCapacity)
	assert.Equal(t, time.Minute, cfg.Orchestrator.IdempotencyTTL)
	assert.Equal(t, "http://orchestrator:4002", cfg.Merchant.OrchestratorURL)
	assert.Equal(t, "https://shop.example.com/merchant/callback", cfg.Merchant.CallbackURL())
	assert.True(t, cfg.Braintree.HasCredentials())
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.example.com:6380", cfg.Redis.Addr())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "results", cfg.Kafka.Topic)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PAYRELAY_MERCHANT_PORT", "5001")
	t.Setenv("PAYRELAY_BRAINTREE_MERCHANT_ID", "env-merchant")
	t.Setenv("PAYRELAY_CALLBACK_SECRET", "env-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5001, cfg.Merchant.Port)
	assert.Equal(t, "env-merchant", cfg.Braintree.MerchantID)
	assert.Equal(t, "env-secret", cfg.Callback.Secret)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Orchestrator: OrchestratorConfig{IdempotencyCapacity: 500, Retries: 1},
			Merchant:     MerchantConfig{OrchestratorURL: "http://localhost:3002"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"negative retries", func(c *Config) { c.Orchestrator.Retries = -1 }, false},
		{"zero capacity", func(c *Config) { c.Orchestrator.IdempotencyCapacity = 0 }, false},
		{"no orchestrator url", func(c *Config) { c.Merchant.OrchestratorURL = "" }, false},
		{"kafka without topic", func(c *Config) {
			c.Kafka = KafkaConfig{Enabled: true, Brokers: []string{"k:9092"}}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
