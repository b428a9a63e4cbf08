package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global
// config, defaults. Missing files are not errors; malformed JSON is.
func Load(globalPath, projectPath string) (*Settings, error) {
	cfg := DefaultSettings()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}
	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads configuration from the conventional paths.
// Global: ~/.mlprocess/config.json
// Project: .mlprocess/config.json (relative to cwd)
func LoadDefault() (*Settings, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	globalPath := filepath.Join(homeDir, ".mlprocess", "config.json")
	projectPath := filepath.Join(".mlprocess", "config.json")

	return Load(globalPath, projectPath)
}

// mergeConfigFile overlays the keys set in a JSON config file onto
// base. Missing files are silently skipped.
func mergeConfigFile(base *Settings, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded fileSettings
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if loaded.Threads != nil {
		base.Threads = *loaded.Threads
	}
	if loaded.Instances != nil {
		base.Instances = *loaded.Instances
	}
	if loaded.RetrieveCount != nil {
		base.RetrieveCount = *loaded.RetrieveCount
	}
	if loaded.WorkDir != nil {
		base.WorkDir = *loaded.WorkDir
	}
	if loaded.LogLevel != nil {
		base.LogLevel = *loaded.LogLevel
	}
	return nil
}
