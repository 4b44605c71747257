package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"devquest"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`

	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
	SchedulerBatchSize int           `env:"SCHEDULER_BATCH_SIZE" envDefault:"50"`
	EventDedupTTL      time.Duration `env:"EVENT_DEDUP_TTL" envDefault:"168h"`

	BusBufferSize   int           `env:"BUS_BUFFER_SIZE" envDefault:"128"`
	BusMaxAttempts  int           `env:"BUS_MAX_ATTEMPTS" envDefault:"5"`
	BusRetryBackoff time.Duration `env:"BUS_RETRY_BACKOFF" envDefault:"200ms"`

	SeedBadgeCatalog bool `env:"SEED_BADGE_CATALOG" envDefault:"true"`

	EnableVotingWindowScheduler bool `env:"ENABLE_VOTING_WINDOW_SCHEDULER" envDefault:"true"`
	EnableAchievementConsumer   bool `env:"ENABLE_ACHIEVEMENT_CONSUMER" envDefault:"true"`
	EnableAccountConsumer       bool `env:"ENABLE_ACCOUNT_CONSUMER" envDefault:"true"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.ServiceName = strings.TrimSpace(cfg.ServiceName)
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, errors.New("SERVICE_NAME must not be empty"))
	}
	if c.WorkerPollInterval <= 0 {
		errs = append(errs, errors.New("WORKER_POLL_INTERVAL must be positive"))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, errors.New("OUTBOX_BATCH_SIZE must be positive"))
	}
	if c.SchedulerBatchSize <= 0 {
		errs = append(errs, errors.New("SCHEDULER_BATCH_SIZE must be positive"))
	}
	if c.BusBufferSize <= 0 {
		errs = append(errs, errors.New("BUS_BUFFER_SIZE must be positive"))
	}
	if c.BusMaxAttempts <= 0 {
		errs = append(errs, errors.New("BUS_MAX_ATTEMPTS must be positive"))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q is not json or text", c.LogFormat))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LOG_LEVEL.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
