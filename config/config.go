// Package config provides the YAML configuration surface of the occurd
// daemon, including first-run config creation and atomic saves.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/calyptra/liboccur/consolidate"
	"github.com/calyptra/liboccur/expand"
	"github.com/calyptra/liboccur/ics"
)

// FeedConfig describes a single ICS subscription.
type FeedConfig struct {
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id"`
	// URL is the ICS endpoint.
	URL string `yaml:"url"`
	// Name is a human-friendly label.
	Name string `yaml:"name"`
}

// Config is the top-level daemon configuration.
type Config struct {
	// Listen is the HTTP listen address of the API.
	Listen string `yaml:"listen"`

	// DefaultTimezone is the zone assumed for feed values that carry no
	// timezone of their own, and the display zone of the renderers.
	DefaultTimezone string `yaml:"default_timezone"`

	// RefreshCron is a five-field cron schedule for feed refresh.
	RefreshCron string `yaml:"refresh"`

	// HorizonDays is the number of future days the daemon serves.
	HorizonDays int `yaml:"horizon_days"`

	// FetchTimeoutSeconds bounds one feed HTTP round trip.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`

	// Feeds is the list of subscribed ICS sources.
	Feeds []FeedConfig `yaml:"feeds"`

	// WorkerConcurrency is the number of rule expansions allowed to run
	// at once within one scheduling context.
	WorkerConcurrency int `yaml:"rrule_worker_concurrency"`

	// MaxOccurrencesPerRule caps how many instances one rule may emit.
	MaxOccurrencesPerRule int `yaml:"max_occurrences_per_rule"`

	// ExpansionDaysWindow caps how far past "now" rules are expanded,
	// independent of the serving horizon above.
	ExpansionDaysWindow int `yaml:"expansion_days_window"`

	// ExpansionTimeBudgetMS bounds the wall-clock time of one rule
	// expansion. Zero disables the budget.
	ExpansionTimeBudgetMS int `yaml:"expansion_time_budget_ms_per_rule"`

	// ExpansionYieldFrequency is the number of iterator steps between
	// cooperative yield points during expansion.
	ExpansionYieldFrequency int `yaml:"expansion_yield_frequency"`

	// EnableRRuleExpansion is the expansion kill switch. Absent means
	// enabled; only an explicit false disables expansion.
	EnableRRuleExpansion *bool `yaml:"enable_rrule_expansion"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	enabled := true
	return &Config{
		Listen:                  "127.0.0.1:8099",
		DefaultTimezone:         "UTC",
		RefreshCron:             "*/15 * * * *",
		HorizonDays:             7,
		FetchTimeoutSeconds:     15,
		Feeds:                   []FeedConfig{},
		WorkerConcurrency:       4,
		MaxOccurrencesPerRule:   500,
		ExpansionDaysWindow:     365,
		ExpansionTimeBudgetMS:   2000,
		ExpansionYieldFrequency: 50,
		EnableRRuleExpansion:    &enabled,
	}
}

// Normalize fills in missing or zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.DefaultTimezone == "" {
		c.DefaultTimezone = def.DefaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = def.HorizonDays
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = def.FetchTimeoutSeconds
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	for i := range c.Feeds {
		if c.Feeds[i].ID == "" {
			c.Feeds[i].ID = fmt.Sprintf("feed-%d", i+1)
		}
	}
	if c.WorkerConcurrency <= 0 {
		c.WorkerConcurrency = def.WorkerConcurrency
	}
	if c.MaxOccurrencesPerRule <= 0 {
		c.MaxOccurrencesPerRule = def.MaxOccurrencesPerRule
	}
	if c.ExpansionDaysWindow <= 0 {
		c.ExpansionDaysWindow = def.ExpansionDaysWindow
	}
	if c.ExpansionTimeBudgetMS < 0 {
		c.ExpansionTimeBudgetMS = def.ExpansionTimeBudgetMS
	}
	if c.ExpansionYieldFrequency <= 0 {
		c.ExpansionYieldFrequency = def.ExpansionYieldFrequency
	}
	if c.EnableRRuleExpansion == nil {
		enabled := true
		c.EnableRRuleExpansion = &enabled
	}
}

// ExpansionEnabled reports the kill-switch state.
func (c *Config) ExpansionEnabled() bool {
	return c.EnableRRuleExpansion == nil || *c.EnableRRuleExpansion
}

// ExpandOptions bridges the configuration into expansion options.
func (c *Config) ExpandOptions() expand.Options {
	return expand.Options{
		MaxOccurrences: c.MaxOccurrencesPerRule,
		HorizonDays:    c.ExpansionDaysWindow,
		TimeBudget:     time.Duration(c.ExpansionTimeBudgetMS) * time.Millisecond,
		YieldEvery:     c.ExpansionYieldFrequency,
	}
}

// ConsolidateConfig bridges the configuration into a consolidator
// configuration.
func (c *Config) ConsolidateConfig() consolidate.Config {
	return consolidate.Config{
		Expansion:         c.ExpandOptions(),
		WorkerConcurrency: c.WorkerConcurrency,
		EnableExpansion:   c.ExpansionEnabled(),
	}
}

// FetcherOptions bridges the configuration into feed fetcher options.
func (c *Config) FetcherOptions() ics.FetcherOptions {
	opts := ics.DefaultFetcherOptions
	opts.Timeout = time.Duration(c.FetchTimeoutSeconds) * time.Second
	return opts
}

// Sources lists the configured feeds as fetcher sources.
func (c *Config) Sources() []ics.Source {
	out := make([]ics.Source, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		out = append(out, ics.Source{ID: f.ID, URL: f.URL, Name: f.Name})
	}
	return out
}

// Load loads configuration from the given YAML path. A missing file is
// a first run: the default configuration is written there (0600, parent
// directory created) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to the given path atomically: temp file
// in the same directory, fsync, chmod 0600, rename.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".occurd-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
