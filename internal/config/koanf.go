// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config file locations searched in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/merlion/config.yaml",
	"/etc/merlion/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPathEnvVar overrides the .env file path.
const DotEnvPathEnvVar = "DOTENV_PATH"

// Load builds the configuration. Precedence, lowest first:
// struct defaults, YAML file, .env file, process environment.
// Variables already set in the process win over the .env file.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadDotEnv copies a .env file into the process environment.
// A missing file is not an error.
func loadDotEnv() error {
	path := os.Getenv(DotEnvPathEnvVar)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as env strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"scheduler.prefetch",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variables to koanf paths. The provider
// credential names are the ones the dashboard deployments already use.
var envMappings = map[string]string{
	"lta_api_key":           "providers.datamall.api_key",
	"datamall_base_url":     "providers.datamall.base_url",
	"data_gov_api":          "providers.datagov.api_key",
	"datagov_base_url":      "providers.datagov.base_url",
	"onemap_email":          "providers.onemap.email",
	"onemap_email_password": "providers.onemap.password",
	"onemap_api_key":        "providers.onemap.api_key",
	"onemap_base_url":       "providers.onemap.base_url",

	"http_host":    "server.host",
	"http_port":    "server.port",
	"cors_origins": "server.cors_origins",
	"rate_limit":   "server.rate_limit",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"pool_size":         "scheduler.pool_size",
	"fetch_timeout":     "scheduler.fetch_timeout",
	"straggler_timeout": "scheduler.straggler_timeout",
	"refresh_interval":  "scheduler.refresh_interval",
	"prefetch_sources":  "scheduler.prefetch",

	"bootstrap_enabled": "bootstrap.enabled",
	"data_dir":          "bootstrap.data_dir",

	"bus_stop_min_zoom":   "viewport.bus_stop_min_zoom",
	"speed_band_min_zoom": "viewport.speed_band_min_zoom",
	"carpark_min_zoom":    "viewport.carpark_min_zoom",
}

// envTransformFunc returns "" for unmapped variables so unrelated
// environment does not leak into the config.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// normalize fills source IDs from their registry keys.
func (c *Config) normalize() {
	for key, src := range c.Sources {
		if src.ID == "" {
			src.ID = key
			c.Sources[key] = src
		}
	}
}
