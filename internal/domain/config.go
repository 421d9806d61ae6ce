package domain

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds the complete Kestrel configuration, populated from the
// environment (and an optional .env file).
type Config struct {
	Server     ServerConfig
	Detection  DetectionConfig
	Repository RepositoryConfig
	Cache      CacheConfig
	EventBus   EventBusConfig

	// Seed inserts the default users and rules on first start.
	Seed bool `env:"KESTREL_SEED" envDefault:"true"`

	// Debug enables debug-level logging.
	Debug bool `env:"KESTREL_DEBUG" envDefault:"false"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `env:"KESTREL_HOST" envDefault:"0.0.0.0"`
	Port         int    `env:"KESTREL_PORT" envDefault:"8080"`
	ReadTimeout  int    `env:"KESTREL_READ_TIMEOUT" envDefault:"30"`  // seconds
	WriteTimeout int    `env:"KESTREL_WRITE_TIMEOUT" envDefault:"30"` // seconds
}

// DetectionConfig tunes the built-in fraud heuristics.
type DetectionConfig struct {
	// MaxAmountThreshold is the amount above which the high-amount
	// heuristic fires. Kept as a string so it parses into an exact decimal.
	MaxAmountThreshold string `env:"KESTREL_MAX_AMOUNT_THRESHOLD" envDefault:"10000.00"`

	// Velocity heuristic: flag when the user has at least
	// MaxTransactionsPerWindow transactions in the trailing window.
	VelocityWindowMinutes    int `env:"KESTREL_VELOCITY_WINDOW_MINUTES" envDefault:"60"`
	MaxTransactionsPerWindow int `env:"KESTREL_MAX_TXNS_PER_WINDOW" envDefault:"5"`
}

// AmountThreshold parses MaxAmountThreshold into a decimal.
func (d DetectionConfig) AmountThreshold() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(d.MaxAmountThreshold)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse max amount threshold %q: %w", d.MaxAmountThreshold, err)
	}
	return amount, nil
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `env:"KESTREL_DB_DRIVER" envDefault:"sqlite"`

	// SQLite specific
	SQLitePath string `env:"KESTREL_SQLITE_PATH" envDefault:"./kestrel.db"`

	// PostgreSQL specific
	PostgresHost     string `env:"KESTREL_PG_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"KESTREL_PG_PORT" envDefault:"5432"`
	PostgresUser     string `env:"KESTREL_PG_USER"`
	PostgresPassword string `env:"KESTREL_PG_PASSWORD"`
	PostgresDB       string `env:"KESTREL_PG_DB" envDefault:"kestrel"`
	PostgresSSLMode  string `env:"KESTREL_PG_SSLMODE"`

	// Connection pool settings
	MaxOpenConns    int           `env:"KESTREL_DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"KESTREL_DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"KESTREL_DB_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `env:"KESTREL_CACHE_TYPE" envDefault:"memory"`

	// Local LRU cache settings
	LocalMaxSize int           `env:"KESTREL_CACHE_MAX_SIZE" envDefault:"10000"`
	LocalTTL     time.Duration `env:"KESTREL_CACHE_TTL" envDefault:"5m"`

	// Redis settings
	RedisAddr     string `env:"KESTREL_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"KESTREL_REDIS_PASSWORD"`
	RedisDB       int    `env:"KESTREL_REDIS_DB" envDefault:"0"`

	// RuleTTL bounds staleness of the cached active rule set.
	// Zero disables rule caching so every analysis re-reads the store.
	RuleTTL time.Duration `env:"KESTREL_RULE_CACHE_TTL" envDefault:"0s"`
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `env:"KESTREL_BUS_TYPE" envDefault:"channel"`

	// Channel settings
	ChannelBufferSize int `env:"KESTREL_BUS_BUFFER_SIZE" envDefault:"1000"`

	// NATS settings
	NATSUrl           string `env:"KESTREL_NATS_URL" envDefault:"nats://localhost:4222"`
	NATSToken         string `env:"KESTREL_NATS_TOKEN"`
	NATSMaxReconnects int    `env:"KESTREL_NATS_MAX_RECONNECTS" envDefault:"10"`
	NATSReconnectWait int    `env:"KESTREL_NATS_RECONNECT_WAIT" envDefault:"5"` // seconds
}

// LoadConfig reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func LoadConfig() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if _, err := cfg.Detection.AmountThreshold(); err != nil {
		return nil, err
	}
	return cfg, nil
}
