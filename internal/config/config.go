// Package config loads service settings from an optional YAML file with
// PIKTRAM_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/robfig/cron/v3"
)

// Database drivers accepted by DB.Driver.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

type Config struct {
	LogLevel  string    `yaml:"log_level" env:"PIKTRAM_LOG_LEVEL" env-default:"INFO"`
	HTTP      HTTP      `yaml:"http"`
	DB        DB        `yaml:"db"`
	Reconcile Reconcile `yaml:"reconcile"`
	Slack     Slack     `yaml:"slack"`
}

type HTTP struct {
	Address         string        `yaml:"address" env:"PIKTRAM_ADDR" env-default:":8080"`
	StaticDir       string        `yaml:"static_dir" env:"PIKTRAM_STATIC_DIR" env-default:"web/dist"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"PIKTRAM_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type DB struct {
	Driver string `yaml:"driver" env:"PIKTRAM_DB_DRIVER" env-default:"sqlite3"`
	DSN    string `yaml:"dsn" env:"PIKTRAM_DB_DSN" env-default:"data/piktram.db"`
}

// Reconcile tunes how task mutations keep project progress in step.
type Reconcile struct {
	Transactional bool `yaml:"transactional" env:"PIKTRAM_TRANSACTIONAL" env-default:"false"`
	// SweepSchedule is a 5-field cron expression or a descriptor such as
	// "@hourly". Empty disables the sweep.
	SweepSchedule string `yaml:"sweep_schedule" env:"PIKTRAM_SWEEP_SCHEDULE"`
}

type Slack struct {
	WebhookURL string `yaml:"webhook_url" env:"PIKTRAM_SLACK_WEBHOOK_URL"`
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Load reads configPath when it exists and applies the environment on top.
// An empty or missing path reads the environment only.
func Load(configPath string) (Config, error) {
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("cannot read env: %w", err)
		}
		return cfg, cfg.Validate()
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		var pe *os.PathError
		if !errors.As(err, &pe) {
			return Config{}, fmt.Errorf("cannot read config %q: %w", configPath, err)
		}
		cfg = Config{}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("cannot read env: %w", err)
		}
	}
	return cfg, cfg.Validate()
}

// MustLoad is Load that exits the process on error.
func MustLoad(configPath string) Config {
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("config: %s", err)
	}
	return cfg
}

// Validate checks values cleanenv cannot check on its own.
func (c Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("db.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DB.Driver))
	}
	if strings.TrimSpace(c.DB.DSN) == "" {
		errs = append(errs, errors.New("db.dsn is required"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Reconcile.SweepSchedule != "" {
		if _, err := cronParser.Parse(c.Reconcile.SweepSchedule); err != nil {
			errs = append(errs, fmt.Errorf("reconcile.sweep_schedule: %w", err))
		}
	}
	if c.HTTP.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// Level returns the slog level for LogLevel, INFO when unparsable.
func (c Config) Level() slog.Level {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Logger builds the process logger.
func (c Config) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: c.Level()}))
}

func parseLevel(raw string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}
