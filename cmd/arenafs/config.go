package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config contains the mount configuration. Values can come from a YAML
// config file, with command-line flags taking precedence.
type Config struct {
	// MountPoint is the directory the filesystem is mounted on
	MountPoint string `yaml:"mount_point"`

	// BackingFile mirrors the arena to persistent storage; empty means
	// a purely in-memory filesystem that vanishes on exit
	BackingFile string `yaml:"backing_file"`

	// Size is the arena size in bytes for a fresh arena; ignored when
	// the backing file already exists and is non-empty
	Size int64 `yaml:"size"`

	// ReadOnly mounts the filesystem read-only
	ReadOnly bool `yaml:"read_only"`

	// Debug enables FUSE protocol tracing
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Size: 1 << 20, // 1MB
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
