package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is read from the environment, falling back to a .env file and then
// to the defaults below.
type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBAutoMigrate bool   `mapstructure:"DB_AUTO_MIGRATE"`

	WebhookURL     string `mapstructure:"WEBHOOK_URL"`
	WebhookSecret  string `mapstructure:"WEBHOOK_SECRET"`
	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`

	WorkerPollInterval time.Duration `mapstructure:"WORKER_POLL_INTERVAL"`
	WorkerMaxAttempts  int           `mapstructure:"WORKER_MAX_ATTEMPTS"`
}

var defaults = map[string]any{
	"PORT":                 "3000",
	"ENV":                  "development",
	"LOG_LEVEL":            "info",
	"STORAGE_DRIVER":       DriverPostgres,
	"DATABASE_URL":         "",
	"DB_MAX_CONNS":         10,
	"DB_AUTO_MIGRATE":      true,
	"WEBHOOK_URL":          "",
	"WEBHOOK_SECRET":       "",
	"RABBITMQ_URL":         "",
	"EVENTS_EXCHANGE":      "ledger_events",
	"WORKER_POLL_INTERVAL": "5s",
	"WORKER_MAX_ATTEMPTS":  5,
}

// LoadConfig reads <path>/.env if present. Real environment variables always win.
func LoadConfig(path string) (Config, error) {
	for key, value := range defaults {
		viper.SetDefault(key, value)
		if err := viper.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	viper.AutomaticEnv()

	dotenv, err := godotenv.Read(filepath.Join(path, ".env"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("No .env file found, relying on system environment variables")
	case err != nil:
		return Config{}, fmt.Errorf("read .env: %w", err)
	default:
		file := make(map[string]any, len(dotenv))
		for k, v := range dotenv {
			file[k] = v
		}
		if err := viper.MergeConfigMap(file); err != nil {
			return Config{}, fmt.Errorf("merge .env: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want %s or %s)", c.StorageDriver, DriverPostgres, DriverMemory)
	}
	if c.WorkerMaxAttempts < 1 {
		return errors.New("WORKER_MAX_ATTEMPTS must be at least 1")
	}
	if c.WorkerPollInterval <= 0 {
		return errors.New("WORKER_POLL_INTERVAL must be positive")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// EventsEnabled reports whether any event sink is configured.
func (c Config) EventsEnabled() bool {
	return c.WebhookURL != "" || c.RabbitMQURL != ""
}
