// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points the loader at an empty directory so a developer's
// config.yaml or .env never leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "missing.yaml"))
	t.Setenv(DotEnvPathEnvVar, filepath.Join(dir, "missing.env"))
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Scheduler.PoolSize != 10 {
		t.Errorf("PoolSize = %d, want 10", cfg.Scheduler.PoolSize)
	}
	if got := cfg.Sources["psi"].TTL; got != time.Minute {
		t.Errorf("psi TTL = %v, want 1m", got)
	}
	if got := cfg.Sources["erp-gantry"].TTL; got != 24*time.Hour {
		t.Errorf("erp-gantry TTL = %v, want 24h", got)
	}
	if cfg.Viewport.BusStopMinZoom != 15 {
		t.Errorf("BusStopMinZoom = %d, want 15", cfg.Viewport.BusStopMinZoom)
	}
	if len(cfg.Sources) != 29 {
		t.Errorf("expected 29 default sources, got %d", len(cfg.Sources))
	}
	if got := cfg.Sources["bus-arrival"]; got.Endpoint != "/v3/BusArrival" || got.TTL != 30*time.Second || got.Paginated {
		t.Errorf("bus-arrival = %+v", got)
	}
	for _, id := range []string{"rainfall", "air-temperature", "relative-humidity", "wind-speed"} {
		if got := cfg.Sources[id]; got.Endpoint != "/v2/real-time/api/"+id || got.Provider != ProviderDataGov {
			t.Errorf("%s = %+v", id, got)
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8050 {
		t.Errorf("Port = %d, want 8050", cfg.Server.Port)
	}
	if cfg.Sources["bus-stop"].Endpoint != "/BusStops" {
		t.Errorf("bus-stop endpoint = %q", cfg.Sources["bus-stop"].Endpoint)
	}
	if !cfg.Sources["bus-stop"].Paginated {
		t.Error("bus-stop should be paginated")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("LTA_API_KEY", "lta-secret")
	t.Setenv("DATA_GOV_API", "gov-secret")
	t.Setenv("ONEMAP_EMAIL", "a@example.com")
	t.Setenv("ONEMAP_EMAIL_PASSWORD", "pw")
	t.Setenv("POOL_SIZE", "4")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("PREFETCH_SOURCES", "psi, uv")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Providers.DataMall.APIKey != "lta-secret" {
		t.Errorf("DataMall.APIKey = %q", cfg.Providers.DataMall.APIKey)
	}
	if cfg.Providers.DataGov.APIKey != "gov-secret" {
		t.Errorf("DataGov.APIKey = %q", cfg.Providers.DataGov.APIKey)
	}
	if cfg.Providers.OneMap.Password != "pw" {
		t.Errorf("OneMap.Password = %q", cfg.Providers.OneMap.Password)
	}
	if cfg.Scheduler.PoolSize != 4 {
		t.Errorf("PoolSize = %d, want 4", cfg.Scheduler.PoolSize)
	}
	if cfg.Scheduler.FetchTimeout != 3*time.Second {
		t.Errorf("FetchTimeout = %v, want 3s", cfg.Scheduler.FetchTimeout)
	}
	if strings.Join(cfg.Scheduler.Prefetch, ",") != "psi,uv" {
		t.Errorf("Prefetch = %v", cfg.Scheduler.Prefetch)
	}
	if missing := cfg.MissingCredentials(); len(missing) != 0 {
		t.Errorf("expected no missing credentials, got %v", missing)
	}
}

func TestLoad_YAMLAndDotEnv(t *testing.T) {
	dir := isolate(t)

	yamlPath := filepath.Join(dir, "config.yaml")
	yamlBody := `
sources:
  psi:
    ttl: 30s
  rainfall:
    provider: datagov
    auth: static_key
    endpoint: /v2/real-time/api/rainfall
    ttl: 5m
`
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0o600); err != nil {
		t.Fatal(err)
	}
	envPath := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envPath, []byte("LTA_API_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, yamlPath)
	t.Setenv(DotEnvPathEnvVar, envPath)
	// godotenv never overrides a set variable, even an empty one.
	t.Setenv("LTA_API_KEY", "")
	os.Unsetenv("LTA_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.Sources["psi"].TTL; got != 30*time.Second {
		t.Errorf("psi TTL = %v, want 30s", got)
	}
	if cfg.Sources["psi"].Endpoint != "/v2/real-time/api/psi" {
		t.Errorf("psi endpoint should keep its default, got %q", cfg.Sources["psi"].Endpoint)
	}
	rain, ok := cfg.Sources["rainfall"]
	if !ok {
		t.Fatal("rainfall source not registered")
	}
	if rain.ID != "rainfall" {
		t.Errorf("rainfall ID = %q, want filled from key", rain.ID)
	}
	if cfg.Providers.DataMall.APIKey != "from-dotenv" {
		t.Errorf("DataMall.APIKey = %q, want from-dotenv", cfg.Providers.DataMall.APIKey)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero pool", func(c *Config) { c.Scheduler.PoolSize = 0 }},
		{"unknown prefetch", func(c *Config) { c.Scheduler.Prefetch = []string{"nope"} }},
		{"id mismatch", func(c *Config) {
			s := c.Sources["psi"]
			s.ID = "uv"
			c.Sources["psi"] = s
		}},
		{"bad provider", func(c *Config) {
			s := c.Sources["psi"]
			s.Provider = "ftp"
			c.Sources["psi"] = s
		}},
		{"session token on datamall", func(c *Config) {
			s := c.Sources["bus-stop"]
			s.Auth = AuthSessionToken
			c.Sources["bus-stop"] = s
		}},
		{"dataset path escape", func(c *Config) { c.Bootstrap.Datasets["x"] = "../etc/passwd" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestMissingCredentials(t *testing.T) {
	cfg := defaultConfig()
	missing := cfg.MissingCredentials()

	has := func(id string) bool {
		for _, m := range missing {
			if m == id {
				return true
			}
		}
		return false
	}
	if !has("bus-stop") || !has("nearby-mrt") || !has("psi") {
		t.Errorf("expected keyed sources to be reported, got %v", missing)
	}
	if has("weather") {
		t.Error("weather needs no credentials")
	}
}
