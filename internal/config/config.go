// Package config loads optional threshold overrides for the evaluator.
// All tuning is call-argument driven per spec.md §6 ("no environment
// variables control behavior"); this package only adds a TOML file as an
// alternative to hand-writing flags for every one of the twelve tier
// threshold values.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"mobiusrecall/internal/tier"
)

// TierOverride mirrors tier.Thresholds with TOML tags. Fields are pointers
// so Normalize can tell an absent key (nil, left at its compiled-in
// default) from an explicit value; an explicit 0 is applied like any
// other value.
type TierOverride struct {
	PHashMax    *int     `toml:"phash_max"`
	DHashMax    *int     `toml:"dhash_max"`
	FeatureMin  *float64 `toml:"feature_min"`
	FallbackMin *float64 `toml:"fallback_min"`
}

// Config is the optional on-disk override document.
type Config struct {
	Thresholds struct {
		Icon  TierOverride `toml:"icon"`
		Mid   TierOverride `toml:"mid"`
		Board TierOverride `toml:"board"`
	} `toml:"thresholds"`

	Acceptance struct {
		RecallFloor        *float64 `toml:"recall_floor"`
		FalsePositiveCeil  *int     `toml:"false_positive_ceiling"`
	} `toml:"acceptance"`
}

// Load reads and parses a TOML override file. A missing path is not an
// error: it simply means "use compiled-in defaults", the same way
// spindle's config.Load tolerates an absent config for `spindle config
// init` bootstrapping.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Acceptance holds the two constants gating the pass/fail verdict.
type Acceptance struct {
	RecallFloor       float64
	FalsePositiveCeil int
}

// DefaultAcceptance returns spec.md §4.5's fixed acceptance constants.
func DefaultAcceptance() Acceptance {
	return Acceptance{RecallFloor: 0.90, FalsePositiveCeil: 2}
}

// Normalize merges the override document onto the compiled-in defaults,
// returning the effective tier table and acceptance constants.
func (c *Config) Normalize() (tier.Table, Acceptance) {
	table := tier.Default()
	acc := DefaultAcceptance()
	if c == nil {
		return table, acc
	}

	apply := func(t tier.Tier, o TierOverride) {
		th := table[t]
		if o.PHashMax != nil {
			th.PHashMax = *o.PHashMax
		}
		if o.DHashMax != nil {
			th.DHashMax = *o.DHashMax
		}
		if o.FeatureMin != nil {
			th.FeatureMin = *o.FeatureMin
		}
		if o.FallbackMin != nil {
			th.FallbackMin = *o.FallbackMin
		}
		table[t] = th
	}
	apply(tier.ICON, c.Thresholds.Icon)
	apply(tier.MID, c.Thresholds.Mid)
	apply(tier.BOARD, c.Thresholds.Board)

	if c.Acceptance.RecallFloor != nil {
		acc.RecallFloor = *c.Acceptance.RecallFloor
	}
	if c.Acceptance.FalsePositiveCeil != nil {
		acc.FalsePositiveCeil = *c.Acceptance.FalsePositiveCeil
	}

	return table, acc
}

// Validate rejects override values that could never produce a sane
// evaluation (negative distances, similarities outside [0,1]).
func (c *Config) Validate() error {
	check := func(name string, o TierOverride) error {
		if o.PHashMax != nil && *o.PHashMax < 0 {
			return fmt.Errorf("thresholds.%s.phash_max must be >= 0", name)
		}
		if o.DHashMax != nil && *o.DHashMax < 0 {
			return fmt.Errorf("thresholds.%s.dhash_max must be >= 0", name)
		}
		if o.FeatureMin != nil && (*o.FeatureMin < 0 || *o.FeatureMin > 1) {
			return fmt.Errorf("thresholds.%s.feature_min must be in [0,1]", name)
		}
		if o.FallbackMin != nil && (*o.FallbackMin < 0 || *o.FallbackMin > 1) {
			return fmt.Errorf("thresholds.%s.fallback_min must be in [0,1]", name)
		}
		return nil
	}
	if err := check("icon", c.Thresholds.Icon); err != nil {
		return err
	}
	if err := check("mid", c.Thresholds.Mid); err != nil {
		return err
	}
	if err := check("board", c.Thresholds.Board); err != nil {
		return err
	}
	if c.Acceptance.RecallFloor != nil && (*c.Acceptance.RecallFloor < 0 || *c.Acceptance.RecallFloor > 1) {
		return fmt.Errorf("acceptance.recall_floor must be in [0,1]")
	}
	if c.Acceptance.FalsePositiveCeil != nil && *c.Acceptance.FalsePositiveCeil < 0 {
		return fmt.Errorf("acceptance.false_positive_ceiling must be >= 0")
	}
	return nil
}
