// Package vdconfig provides configuration loading for the virtdoc tool.
//
// Configuration lives in a virtdoc.toml file, discovered by walking up the
// directory tree from the current directory, or specified explicitly via
// the VIRTDOC_CONFIG environment variable or the --config flag.
package vdconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ConfigTOML is the config filename.
const ConfigTOML = "virtdoc.toml"

// EnvConfig is the environment variable for specifying config file path.
const EnvConfig = "VIRTDOC_CONFIG"

// Config holds the virtdoc configuration.
type Config struct {
	// Languages lists the embedded-document language IDs to track.
	Languages []string `toml:"languages"`

	// Include lists glob patterns of files to load, relative to the
	// scanned directory. Empty means every markdown file.
	Include []string `toml:"include"`

	// Watch keeps the tool running and resyncing on file changes.
	Watch bool `toml:"watch"`

	// Verbose enables debug logging.
	Verbose bool `toml:"verbose"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Languages: []string{"go", "python", "sh"},
	}
}

// Load loads configuration from the specified TOML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing TOML config %s: %w", path, err)
	}
	return cfg, nil
}

// Discover searches for a configuration file.
//
// Resolution order:
//  1. If VIRTDOC_CONFIG is set, use that path.
//  2. Walk up from startDir looking for virtdoc.toml.
//
// Returns the loaded config, the path it came from, and any error. When no
// config is found, returns (DefaultConfig(), "", nil).
func Discover(startDir string) (*Config, string, error) {
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		cfg, err := Load(envPath)
		if err != nil {
			return nil, "", fmt.Errorf("loading config from %s: %w", EnvConfig, err)
		}
		return cfg, envPath, nil
	}

	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("getting working directory: %w", err)
		}
	}

	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		path := filepath.Join(dir, ConfigTOML)
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			if err != nil {
				return nil, "", err
			}
			return cfg, path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return DefaultConfig(), "", nil
		}
		dir = parent
	}
}
