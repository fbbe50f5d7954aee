package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "occurd.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8099", cfg.Listen)
	assert.Equal(t, "UTC", cfg.DefaultTimezone)
	assert.True(t, cfg.ExpansionEnabled())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Loading the freshly written file round-trips.
	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Listen, again.Listen)
	assert.Equal(t, cfg.MaxOccurrencesPerRule, again.MaxOccurrencesPerRule)
}

func TestLoad_PartialConfigIsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "occurd.yaml")
	raw := []byte(`
default_timezone: America/Denver
feeds:
  - url: https://cal.example.com/a.ics
    name: Team
  - id: personal
    url: https://cal.example.com/b.ics
enable_rrule_expansion: false
`)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "America/Denver", cfg.DefaultTimezone)
	assert.Equal(t, "127.0.0.1:8099", cfg.Listen, "missing listen falls back to default")
	assert.Equal(t, "*/15 * * * *", cfg.RefreshCron)
	assert.Equal(t, 500, cfg.MaxOccurrencesPerRule)

	require.Len(t, cfg.Feeds, 2)
	assert.Equal(t, "feed-1", cfg.Feeds[0].ID, "feeds without an id get a positional one")
	assert.Equal(t, "personal", cfg.Feeds[1].ID)

	assert.False(t, cfg.ExpansionEnabled(), "explicit false must survive normalization")
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "occurd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feeds: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSave_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "occurd.yaml")

	cfg := DefaultConfig()
	cfg.Listen = "0.0.0.0:9100"
	cfg.Feeds = []FeedConfig{{ID: "work", URL: "https://cal.example.com/w.ics", Name: "Work"}}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9100", loaded.Listen)
	require.Len(t, loaded.Feeds, 1)
	assert.Equal(t, "work", loaded.Feeds[0].ID)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "occurd.yaml", entries[0].Name())
}

func TestConfig_Bridges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxOccurrencesPerRule = 42
	cfg.ExpansionDaysWindow = 30
	cfg.ExpansionTimeBudgetMS = 1500
	cfg.ExpansionYieldFrequency = 10
	cfg.WorkerConcurrency = 2
	cfg.FetchTimeoutSeconds = 3
	disabled := false
	cfg.EnableRRuleExpansion = &disabled
	cfg.Feeds = []FeedConfig{{ID: "a", URL: "https://x/a.ics", Name: "A"}}

	opts := cfg.ExpandOptions()
	assert.Equal(t, 42, opts.MaxOccurrences)
	assert.Equal(t, 30, opts.HorizonDays)
	assert.Equal(t, 1500*time.Millisecond, opts.TimeBudget)
	assert.Equal(t, 10, opts.YieldEvery)

	ccfg := cfg.ConsolidateConfig()
	assert.Equal(t, 2, ccfg.WorkerConcurrency)
	assert.False(t, ccfg.EnableExpansion)

	fopts := cfg.FetcherOptions()
	assert.Equal(t, 3*time.Second, fopts.Timeout)

	srcs := cfg.Sources()
	require.Len(t, srcs, 1)
	assert.Equal(t, "a", srcs[0].ID)
	assert.Equal(t, "https://x/a.ics", srcs[0].URL)
	assert.Equal(t, "A", srcs[0].Name)
}
