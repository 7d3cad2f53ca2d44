package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrpls/internal/opt"
)

func TestLoadSearchDefaults(t *testing.T) {
	cfg, err := LoadSearch("")
	require.NoError(t, err)
	assert.Equal(t, opt.DefaultConfig(), cfg)
}

func TestLoadSearchFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
search:
  timeout: 45s
  workers: 3
  stagnationTimeout: 5s
  operators: [two-opt, arc-exchange]
  dropFailedCandidates: true
`), 0o600))

	t.Setenv("CVRP_WORKERS", "6")
	t.Setenv("CVRP_SEED", "77")
	cfg, err := LoadSearch(path)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, 6, cfg.Workers, "env wins over file")
	assert.Equal(t, int64(77), cfg.Seed)
	assert.Equal(t, 5*time.Second, cfg.StagnationTimeout)
	assert.Equal(t, 30*time.Second, cfg.RestartPeriod, "unset keys keep defaults")
	assert.Equal(t, []string{"two-opt", "arc-exchange"}, cfg.Operators)
	assert.True(t, cfg.DropFailedCandidates)
}

func TestLoadSearchRejectsBadInput(t *testing.T) {
	t.Setenv("CVRP_OPERATORS", "two-opt, bogus")
	_, err := LoadSearch("")
	assert.ErrorContains(t, err, `unknown operator "bogus"`)

	t.Setenv("CVRP_OPERATORS", "")
	t.Setenv("CVRP_WORKERS", "0")
	_, err = LoadSearch("")
	assert.ErrorContains(t, err, "CVRP_WORKERS")

	t.Setenv("CVRP_WORKERS", "")
	_, err = LoadSearch(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestParseSeconds(t *testing.T) {
	d, err := parseSeconds("295")
	require.NoError(t, err)
	assert.Equal(t, 295*time.Second, d)

	d, err = parseSeconds("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = parseSeconds("-3")
	assert.Error(t, err)
}

func TestServerFromEnv(t *testing.T) {
	env := map[string]string{
		"PORT":                 "9090",
		"DATABASE_URL":         " postgres://x ",
		"DB_MIGRATE":           "false",
		"WEBHOOK_MAX_ATTEMPTS": "4",
		"EVENT_RATE_PER_SEC":   "nope",
	}
	s := serverFrom(func(k string) string { return env[k] })
	assert.Equal(t, "9090", s.Port)
	assert.Equal(t, "postgres://x", s.DatabaseURL)
	assert.False(t, s.DBMigrate)
	assert.Equal(t, 4, s.WebhookMaxAttempts)
	assert.Equal(t, 5.0, s.EventRatePerSec)
	assert.Equal(t, "db/migrations", s.MigrationsDir)
}
