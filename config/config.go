// Package config loads the host binary's settings: the server and bind
// addresses, display name, jitter buffer capacity, and logging options
// (spec.md §6 "Core-level configuration"). None of this is part of the
// protocol core; it exists purely to construct one.
package config

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

// Defaults mirror the reference listener binary's own defaults.
const (
	DefaultServerAddress = "127.0.0.1:22124"
	DefaultBindAddress   = "0.0.0.0:0"
	DefaultDisplayName   = "listener"
	DefaultJitterBuffer  = 96
)

// Config is the full set of host-level settings. Every field has a
// sensible zero value so a Config read from an empty or partial file
// still merges correctly with flag overrides.
type Config struct {
	ServerAddress  string `yaml:"server_address"`
	BindAddress    string `yaml:"bind_address"`
	DisplayName    string `yaml:"display_name"`
	JitterCapacity int    `yaml:"jitter_capacity"`

	ControlSocketAddress string `yaml:"control_socket_address"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls where and how the host logs.
type LoggingConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns a Config populated with the reference binary's defaults.
func Default() Config {
	return Config{
		ServerAddress:  DefaultServerAddress,
		BindAddress:    DefaultBindAddress,
		DisplayName:    DefaultDisplayName,
		JitterCapacity: DefaultJitterBuffer,
	}
}

// Load reads and parses a YAML config file at path, starting from
// Default() so any field the file omits keeps its default value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: reading file")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: parsing yaml")
	}

	return cfg, nil
}
