package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/shopspring/decimal"

	"github.com/univlib/lending-system/internal/core/domain"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	Lending  LendingConfig
	Dispatch DispatchConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	SQLite   SQLiteConfig
	Kafka    KafkaConfig
}

// LendingConfig holds the base policy and the optional CSV catalog seed.
type LendingConfig struct {
	LoanPeriodDays int    `env:"LOAN_PERIOD_DAYS, default=14"`
	MaxRenewals    int    `env:"MAX_RENEWALS,     default=2"`
	DailyFine      string `env:"DAILY_FINE,       default=0.50"`
	CatalogDir     string `env:"CATALOG_DIR"`
}

type DispatchConfig struct {
	Workers int `env:"DISPATCH_WORKERS, default=4"`
}

// MongoConfig is disabled when URI is empty.
type MongoConfig struct {
	URI      string        `env:"MONGO_URI"`
	Database string        `env:"MONGO_DB,      default=lending_system"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

// RedisConfig is disabled when Addr is empty.
type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB, default=0"`
	IdempotencyTTL time.Duration `env:"REDIS_IDEMPOTENCY_TTL, default=24h"`
}

// SQLiteConfig is disabled when Path is empty.
type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH"`
}

// KafkaConfig is disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS"`
	Topic   string   `env:"KAFKA_TOPIC, default=lending.loan-events"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from an arbitrary lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if _, err := cfg.BasePolicy(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// BasePolicy builds the library-wide policy from the lending settings.
func (c *Config) BasePolicy() (domain.Policy, error) {
	fine, err := decimal.NewFromString(c.Lending.DailyFine)
	if err != nil {
		return domain.Policy{}, fmt.Errorf("%w: daily fine %q", domain.ErrInvalidPolicy, c.Lending.DailyFine)
	}
	return domain.NewPolicy(c.Lending.LoanPeriodDays, c.Lending.MaxRenewals, fine)
}
