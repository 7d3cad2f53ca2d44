// Package config loads search settings from YAML and the environment, and
// server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"vrpls/internal/opt"
)

type file struct {
	Search opt.Config `yaml:"search"`
}

// LoadSearch reads the optional YAML file at path over the defaults and then
// applies CVRP_* environment overrides.
func LoadSearch(path string) (opt.Config, error) {
	cfg := opt.DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return opt.Config{}, fmt.Errorf("read config: %w", err)
		}
		f := file{Search: cfg}
		if err := yaml.Unmarshal(b, &f); err != nil {
			return opt.Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = f.Search
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return opt.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return opt.Config{}, fmt.Errorf("invalid search config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *opt.Config, getenv func(string) string) error {
	if v := getenv("CVRP_TIMEOUT"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("CVRP_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v := getenv("CVRP_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("CVRP_WORKERS: want a positive integer, got %q", v)
		}
		cfg.Workers = n
	}
	if v := getenv("CVRP_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CVRP_SEED: %w", err)
		}
		cfg.Seed = n
	}
	if v := getenv("CVRP_OPERATORS"); v != "" {
		cfg.Operators = splitList(v)
	}
	return nil
}

// parseSeconds accepts a Go duration ("90s", "2m") or a bare number of seconds.
func parseSeconds(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("want a duration or positive seconds, got %q", v)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Server holds the API server settings.
type Server struct {
	Port               string
	DatabaseURL        string
	RedisURL           string
	DBMigrate          bool
	MigrationsDir      string
	WebhookMaxAttempts int
	EventRatePerSec    float64
	SearchConfigPath   string
}

// LoadServer reads server settings from the environment.
func LoadServer() Server {
	return serverFrom(os.Getenv)
}

func serverFrom(getenv func(string) string) Server {
	s := Server{
		Port:               "8080",
		DatabaseURL:        strings.TrimSpace(getenv("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(getenv("REDIS_URL")),
		DBMigrate:          getenv("DB_MIGRATE") != "false",
		MigrationsDir:      "db/migrations",
		WebhookMaxAttempts: 10,
		EventRatePerSec:    5,
		SearchConfigPath:   getenv("CVRP_CONFIG"),
	}
	if v := getenv("PORT"); v != "" {
		s.Port = v
	}
	if v := getenv("MIGRATIONS_DIR"); v != "" {
		s.MigrationsDir = v
	}
	if n, err := strconv.Atoi(getenv("WEBHOOK_MAX_ATTEMPTS")); err == nil && n > 0 {
		s.WebhookMaxAttempts = n
	}
	if f, err := strconv.ParseFloat(getenv("EVENT_RATE_PER_SEC"), 64); err == nil && f > 0 {
		s.EventRatePerSec = f
	}
	return s
}
