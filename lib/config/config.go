// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/lanternworks/lantern/pipeline"
	"github.com/lanternworks/lantern/target"
)

// Config is the full pipeline configuration. Level fields are level
// names ("trace" through "critical"); durations are Go duration
// strings ("500ms", "2s").
type Config struct {
	// QueueCapacity is the producer queue size. Zero selects the
	// pipeline default.
	QueueCapacity int `yaml:"queue_capacity"`

	// MaxBatch caps messages drained per flush. Zero selects the
	// pipeline default.
	MaxBatch int `yaml:"max_batch"`

	// AutoFlushInterval is the tick accumulation threshold. Empty
	// selects the pipeline default.
	AutoFlushInterval string `yaml:"auto_flush_interval"`

	// GlobalMinimum is the authority's starting global minimum
	// level. Empty selects the pipeline default.
	GlobalMinimum string `yaml:"global_minimum"`

	// TagOverrides and CategoryOverrides seed the authority.
	TagOverrides      map[string]string `yaml:"tag_overrides"`
	CategoryOverrides map[string]string `yaml:"category_overrides"`

	// Profiles are named override bundles available to
	// ApplyProfile. ActiveProfile, when set, names the profile
	// applied at build time (overriding TagOverrides and
	// CategoryOverrides).
	Profiles      []ProfileConfig `yaml:"profiles"`
	ActiveProfile string          `yaml:"active_profile"`

	// Targets are constructed and registered in order.
	Targets []target.Config `yaml:"targets"`
}

// ProfileConfig is one named override bundle.
type ProfileConfig struct {
	Name              string            `yaml:"name"`
	TagOverrides      map[string]string `yaml:"tag_overrides"`
	CategoryOverrides map[string]string `yaml:"category_overrides"`
}

// Load reads and parses the config file at path. The extension
// selects the format: .yaml/.yml is parsed as YAML, .json/.jsonc has
// comments and trailing commas stripped first (JSON is a YAML subset,
// so one decoder serves both).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	default:
		return nil, fmt.Errorf("config: %s: unsupported extension (want .yaml, .yml, .json, or .jsonc)", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks level names, duration syntax, profile references,
// and target configs without constructing anything.
func (c *Config) Validate() error {
	if c.GlobalMinimum != "" {
		if _, err := pipeline.ParseLevel(c.GlobalMinimum); err != nil {
			return fmt.Errorf("global_minimum: %w", err)
		}
	}
	if c.AutoFlushInterval != "" {
		if _, err := time.ParseDuration(c.AutoFlushInterval); err != nil {
			return fmt.Errorf("auto_flush_interval: %w", err)
		}
	}
	if err := validateOverrides(c.TagOverrides); err != nil {
		return fmt.Errorf("tag_overrides: %w", err)
	}
	if err := validateOverrides(c.CategoryOverrides); err != nil {
		return fmt.Errorf("category_overrides: %w", err)
	}

	names := make(map[string]struct{}, len(c.Profiles))
	for i, profile := range c.Profiles {
		if profile.Name == "" {
			return fmt.Errorf("profiles[%d]: name is required", i)
		}
		if _, dup := names[profile.Name]; dup {
			return fmt.Errorf("profiles[%d]: duplicate name %q", i, profile.Name)
		}
		names[profile.Name] = struct{}{}
		if err := validateOverrides(profile.TagOverrides); err != nil {
			return fmt.Errorf("profile %s: tag_overrides: %w", profile.Name, err)
		}
		if err := validateOverrides(profile.CategoryOverrides); err != nil {
			return fmt.Errorf("profile %s: category_overrides: %w", profile.Name, err)
		}
	}
	if c.ActiveProfile != "" {
		if _, ok := names[c.ActiveProfile]; !ok {
			return fmt.Errorf("active_profile: no profile named %q", c.ActiveProfile)
		}
	}

	for i := range c.Targets {
		if c.Targets[i].Type == "" {
			return fmt.Errorf("targets[%d]: type is required", i)
		}
		if _, err := c.Targets[i].Filter(); err != nil {
			return fmt.Errorf("targets[%d]: %w", i, err)
		}
	}
	return nil
}

func validateOverrides(overrides map[string]string) error {
	for key, levelName := range overrides {
		if key == "" {
			return fmt.Errorf("empty override key")
		}
		if _, err := pipeline.ParseLevel(levelName); err != nil {
			return err
		}
	}
	return nil
}

// Profile resolves a named profile to the pipeline's representation.
func (c *Config) Profile(name string) (pipeline.Profile, bool) {
	for _, pc := range c.Profiles {
		if pc.Name != name {
			continue
		}
		profile := pipeline.Profile{
			Name:              pc.Name,
			TagOverrides:      make(map[pipeline.Tag]pipeline.Level, len(pc.TagOverrides)),
			CategoryOverrides: make(map[string]pipeline.Level, len(pc.CategoryOverrides)),
		}
		for tagName, levelName := range pc.TagOverrides {
			level, _ := pipeline.ParseLevel(levelName)
			profile.TagOverrides[pipeline.ParseTag(tagName)] = level
		}
		for category, levelName := range pc.CategoryOverrides {
			level, _ := pipeline.ParseLevel(levelName)
			profile.CategoryOverrides[category] = level
		}
		return profile, true
	}
	return pipeline.Profile{}, false
}

// Build constructs the configured pipeline: authority with overrides
// (or the active profile), manager, and every target registered in
// declaration order. The caller owns the returned manager and must
// Close it. A nil logger discards the pipeline's operational
// messages.
//
// Build validates first, so a Config assembled in code (rather than
// through Load) gets the same checks.
func (c *Config) Build(logger *slog.Logger) (*pipeline.Manager, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	globalMin := pipeline.DefaultGlobalMinimum
	if c.GlobalMinimum != "" {
		globalMin, _ = pipeline.ParseLevel(c.GlobalMinimum)
	}
	authority := pipeline.NewAuthority(globalMin)

	if c.ActiveProfile != "" {
		profile, _ := c.Profile(c.ActiveProfile)
		authority.ApplyProfile(profile)
	} else {
		for tagName, levelName := range c.TagOverrides {
			level, _ := pipeline.ParseLevel(levelName)
			authority.SetTagOverride(pipeline.ParseTag(tagName), level)
		}
		for category, levelName := range c.CategoryOverrides {
			level, _ := pipeline.ParseLevel(levelName)
			authority.SetCategoryOverride(category, level)
		}
	}

	var interval time.Duration
	if c.AutoFlushInterval != "" {
		interval, _ = time.ParseDuration(c.AutoFlushInterval)
	}

	manager := pipeline.NewManager(pipeline.Options{
		QueueCapacity:     c.QueueCapacity,
		MaxBatch:          c.MaxBatch,
		AutoFlushInterval: interval,
		Authority:         authority,
		Logger:            logger,
	})

	for i := range c.Targets {
		built, err := c.Targets[i].CreateTarget()
		if err != nil {
			// Targets built so far hold resources; release them
			// before reporting.
			manager.Close()
			return nil, fmt.Errorf("config: targets[%d]: %w", i, err)
		}
		manager.RegisterTarget(built)
	}
	return manager, nil
}
