package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding a config file path. It
// is consulted after -config.
const EnvConfig = "ROBOMAP_CONFIG"

// Load builds the configuration from defaults, then the first config file
// found, then flags, and validates the result.
func Load() (*Config, error) {
	cfg := Default()

	path, explicit := ConfigPath(), true
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path, explicit = findConfigFile(), false
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("loading config from %s: %w", path, err)
			}
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// searchPaths lists where the daemon looks for config.yaml, in order.
func searchPaths() []string {
	paths := []string{
		"robomap.yaml",
		"config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/robomap/config.yaml")
	}
	return paths
}

func findConfigFile() string {
	for _, path := range searchPaths() {
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Robomap")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Robomap")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "robomap")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "robomap")
	}
}

// loadFromFile merges a YAML file over cfg. Unknown keys are an error.
func loadFromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
