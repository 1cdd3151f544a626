package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds configuration for both the orchestrator and the merchant gateway.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Merchant     MerchantConfig     `mapstructure:"merchant"`
	Callback     CallbackConfig     `mapstructure:"callback"`
	Braintree    BraintreeConfig    `mapstructure:"braintree"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type OrchestratorConfig struct {
	Port                int           `mapstructure:"port"`
	ProcessorTimeout    time.Duration `mapstructure:"processor_timeout"`
	IdempotencyCapacity int           `mapstructure:"idempotency_capacity"`
	IdempotencyTTL      time.Duration `mapstructure:"idempotency_ttl"`
	Retries             int           `mapstructure:"retries"`
}

type MerchantConfig struct {
	Port            int           `mapstructure:"port"`
	OrchestratorURL string        `mapstructure:"orchestrator_url"`
	ForwardTimeout  time.Duration `mapstructure:"forward_timeout"`
	PublicURL       string        `mapstructure:"public_url"` // empty = http://localhost:<port>
	StatusCapacity  int           `mapstructure:"status_capacity"`
	StatusTTL       time.Duration `mapstructure:"status_ttl"`
}

// CallbackURL returns the default callback endpoint handed to the orchestrator.
func (m MerchantConfig) CallbackURL() string {
	base := strings.TrimRight(m.PublicURL, "/")
	if base == "" {
		base = fmt.Sprintf("http://localhost:%d", m.Port)
	}
	return base + "/merchant/callback"
}

type CallbackConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Secret  string        `mapstructure:"secret"` // empty = callbacks are not signed
}

type BraintreeConfig struct {
	Environment string `mapstructure:"environment"` // sandbox, production
	MerchantID  string `mapstructure:"merchant_id"`
	PublicKey   string `mapstructure:"public_key"`
	PrivateKey  string `mapstructure:"private_key"`
	Simulate    bool   `mapstructure:"simulate"`
}

// HasCredentials reports whether all three gateway credentials are set.
func (b BraintreeConfig) HasCredentials() bool {
	return b.MerchantID != "" && b.PublicKey != "" && b.PrivateKey != ""
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int64         `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"` // empty = allow all
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from a .env file, a YAML file and environment variables.
// Environment variables override file values. Prefix: PAYRELAY_.
// Nested keys use underscore: PAYRELAY_MERCHANT_PORT, PAYRELAY_BRAINTREE_MERCHANT_ID, etc.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("orchestrator.port", 3002)
	v.SetDefault("orchestrator.processor_timeout", "30s")
	v.SetDefault("orchestrator.idempotency_capacity", 500)
	v.SetDefault("orchestrator.idempotency_ttl", "15m")
	v.SetDefault("orchestrator.retries", 1)
	v.SetDefault("merchant.port", 3001)
	v.SetDefault("merchant.orchestrator_url", "http://localhost:3002")
	v.SetDefault("merchant.forward_timeout", "15s")
	v.SetDefault("merchant.public_url", "")
	v.SetDefault("merchant.status_capacity", 10000)
	v.SetDefault("merchant.status_ttl", "24h")
	v.SetDefault("callback.timeout", "10s")
	v.SetDefault("callback.secret", "")
	v.SetDefault("braintree.environment", "sandbox")
	v.SetDefault("braintree.merchant_id", "")
	v.SetDefault("braintree.public_key", "")
	v.SetDefault("braintree.private_key", "")
	v.SetDefault("braintree.simulate", false)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "payment-results")
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.limit", 100)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// PAYRELAY_BRAINTREE_MERCHANT_ID -> braintree.merchant_id
	v.SetEnvPrefix("PAYRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values the services cannot start with.
func (c *Config) Validate() error {
	if c.Orchestrator.Retries < 0 {
		return fmt.Errorf("orchestrator.retries must be >= 0, got %d", c.Orchestrator.Retries)
	}
	if c.Orchestrator.IdempotencyCapacity <= 0 {
		return fmt.Errorf("orchestrator.idempotency_capacity must be > 0, got %d", c.Orchestrator.IdempotencyCapacity)
	}
	if c.Merchant.OrchestratorURL == "" {
		return errors.New("merchant.orchestrator_url is required")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	return nil
}
