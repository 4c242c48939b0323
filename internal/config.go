package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultLockStaleAfter is the staleness threshold after which a lock whose
// holder stopped refreshing it may be reclaimed.
const DefaultLockStaleAfter = 5 * time.Minute

// ConfigFileName is the optional per-store configuration file.
const ConfigFileName = "config.yaml"

// Config is the on-disk configuration schema.
type Config struct {
	// LockStaleAfter is a Go duration string, e.g. "5m".
	LockStaleAfter string `yaml:"lock_stale_after,omitempty"`
	// DurableAppends controls whether every transcript append is fsynced
	// before returning. Defaults to true.
	DurableAppends *bool `yaml:"durable_appends,omitempty"`
}

// Settings is the resolved runtime configuration.
type Settings struct {
	LockStaleAfter time.Duration
	DurableAppends bool
}

// DefaultSettings returns the settings used when no config file is present.
func DefaultSettings() *Settings {
	return &Settings{
		LockStaleAfter: DefaultLockStaleAfter,
		DurableAppends: true,
	}
}

// LoadSettings reads <root>/config.yaml when it exists. A missing file yields
// defaults; an unreadable or invalid file yields defaults with a warning,
// so a bad config never blocks a run.
func LoadSettings(root string) *Settings {
	return LoadSettingsFile(filepath.Join(root, ConfigFileName))
}

// LoadSettingsFile reads settings from an explicit config file path
// (--config) with the same degrade-to-defaults behavior as LoadSettings.
func LoadSettingsFile(path string) *Settings {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			LogWarn("Failed to read config %s: %v (using defaults)", path, err)
		}
		return settings
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		LogWarn("Failed to parse config %s: %v (using defaults)", path, err)
		return settings
	}

	if cfg.LockStaleAfter != "" {
		d, err := time.ParseDuration(cfg.LockStaleAfter)
		if err != nil || d <= 0 {
			LogWarn("Invalid lock_stale_after %q in %s (using default %s)", cfg.LockStaleAfter, path, DefaultLockStaleAfter)
		} else {
			settings.LockStaleAfter = d
		}
	}
	if cfg.DurableAppends != nil {
		settings.DurableAppends = *cfg.DurableAppends
	}

	return settings
}

// SaveConfig writes a config file into the store root.
func SaveConfig(root string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("failed to create store root: %w", err)
	}
	return os.WriteFile(filepath.Join(root, ConfigFileName), data, 0644)
}
