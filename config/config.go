/*
Package config loads run configuration for the consolidation pipeline.

PURPOSE:
  One YAML file (or environment fallbacks) describes a run: which operator's
  tariff applies, which sites to keep, how extra and night minutes round,
  and any holiday-date overrides. The file is optional; the zero config is a
  valid all-sites, no-rounding run.
*/
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/groundside/shift-engine/billing"
)

// RoundingConfig selects one rounding policy.
type RoundingConfig struct {
	Mode string `yaml:"mode"` // none, floor, ceiling, nearest
	Step int    `yaml:"step"` // granularity in minutes
}

// Config defines one consolidation run.
type Config struct {
	Operator string   `yaml:"operator"`
	PolicyID string   `yaml:"policy_id"`
	Sites    []string `yaml:"sites"`

	ExtraRounding RoundingConfig `yaml:"extra_rounding"`
	NightRounding RoundingConfig `yaml:"night_rounding"`

	// HolidayOverride, when non-empty, replaces the computed holiday
	// calendar with exactly these dates (YYYY-MM-DD).
	HolidayOverride []string `yaml:"holiday_override"`

	// PolicyFiles lists extra JSON tariff definitions to register on top
	// of the built-in presets.
	PolicyFiles []string `yaml:"policy_files"`
}

// Load reads a YAML config file. An empty path falls back to the
// SHIFT_ENGINE_CONFIG environment variable, then to the zero config.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		path = os.Getenv("SHIFT_ENGINE_CONFIG")
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the parts that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	for _, r := range []RoundingConfig{c.ExtraRounding, c.NightRounding} {
		switch r.Mode {
		case "", "none", "floor", "ceiling", "nearest":
		default:
			return fmt.Errorf("unknown rounding mode %q", r.Mode)
		}
	}
	for _, d := range c.HolidayOverride {
		if _, err := time.Parse("2006-01-02", strings.TrimSpace(d)); err != nil {
			return fmt.Errorf("invalid holiday override date %q", d)
		}
	}
	return nil
}

// SiteCodes converts the site filter to billing identifiers.
func (c Config) SiteCodes() []billing.SiteCode {
	out := make([]billing.SiteCode, 0, len(c.Sites))
	for _, s := range c.Sites {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, billing.SiteCode(strings.ToUpper(s)))
		}
	}
	return out
}

// Rounding converts a rounding selection to the billing policy.
func (r RoundingConfig) Rounding() billing.Rounding {
	mode := billing.RoundingMode(r.Mode)
	if r.Mode == "" {
		mode = billing.RoundNone
	}
	return billing.Rounding{Mode: mode, Step: r.Step}
}

// Calendar builds the holiday calendar for the run: computing by default,
// override-only when the config lists dates. Validate has already checked
// the date format.
func (c Config) Calendar() *billing.Calendar {
	if len(c.HolidayOverride) == 0 {
		return billing.NewCalendar()
	}
	dates := make([]time.Time, 0, len(c.HolidayOverride))
	for _, d := range c.HolidayOverride {
		t, err := time.Parse("2006-01-02", strings.TrimSpace(d))
		if err != nil {
			continue
		}
		dates = append(dates, t)
	}
	return billing.NewOverrideCalendar(billing.NewHolidaySet(dates...))
}
