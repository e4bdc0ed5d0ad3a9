package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"testprobe/pkg/logging"

	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

// LoadConfig loads config.yaml from the given directory, falling back to
// GetDefaultConfig when the file is absent, then validates the result.
func LoadConfig(configPath string) (ProbeConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	cfg := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "No config.yaml found at %s, using defaults", configFilePath)
			return cfg, Validate(cfg)
		}
		return ProbeConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ProbeConfig{}, fmt.Errorf("error parsing config from %s: %w", configFilePath, err)
	}
	logging.Info("Config", "Loaded configuration from %s", configFilePath)

	if err := Validate(cfg); err != nil {
		return ProbeConfig{}, err
	}
	return cfg, nil
}
