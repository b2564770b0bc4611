package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the config file location when set.
const EnvConfigPath = "UNPACK_CONFIG"

type Config struct {
	DestDir       string `yaml:"dest_dir"`
	ProgressEvery int    `yaml:"progress_every"`
	MaxEntrySize  uint64 `yaml:"max_entry_size"`
	Color         bool   `yaml:"color"`
}

func DefaultConfig() *Config {
	return &Config{
		DestDir:       ".",
		ProgressEvery: 256,
		MaxEntrySize:  0, // unlimited
		Color:         true,
	}
}

func ConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return ExpandPath(p)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".unpack", "config.yaml"), nil
}

func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.ProgressEvery <= 0 {
		return nil, fmt.Errorf("parsing %s: progress_every must be positive, got %d", path, cfg.ProgressEvery)
	}

	return cfg, nil
}

func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding %s: %w", path, err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
