// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

// Package config loads Merlion's layered configuration: struct defaults,
// an optional YAML file, a .env file and finally environment variables.
package config

import (
	"sort"
	"time"
)

// Provider names. Each provider has its own credentials, rate limit and
// circuit breaker.
const (
	ProviderDataMall = "datamall"
	ProviderDataGov  = "datagov"
	ProviderOneMap   = "onemap"
)

// Auth kinds for a source.
const (
	AuthNone         = "none"
	AuthStaticKey    = "static_key"
	AuthSessionToken = "session_token"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Bootstrap BootstrapConfig `koanf:"bootstrap"`
	Viewport  ViewportConfig  `koanf:"viewport"`
	Providers ProvidersConfig `koanf:"providers"`

	// Sources is the registry of upstream feeds keyed by source ID.
	// A YAML file may override individual fields, e.g. sources.psi.ttl: 30s.
	Sources map[string]SourceConfig `koanf:"sources" validate:"required,dive"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimit       int           `koanf:"rate_limit" validate:"gte=0"` // requests per minute per IP, 0 disables
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// SchedulerConfig bounds the fetch pool.
type SchedulerConfig struct {
	// PoolSize is the fixed number of concurrent fetch workers.
	PoolSize int `koanf:"pool_size" validate:"min=1,max=256"`

	// FetchTimeout bounds the wall-clock time of one FetchAll call.
	FetchTimeout time.Duration `koanf:"fetch_timeout" validate:"gt=0"`

	// StragglerTimeout bounds fetches that outlive their FetchAll call.
	StragglerTimeout time.Duration `koanf:"straggler_timeout" validate:"gt=0"`

	// RefreshInterval is how often the background refresher warms Prefetch.
	// Zero disables the refresher.
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"gte=0"`

	// Prefetch lists source IDs warmed by the background refresher.
	Prefetch []string `koanf:"prefetch"`
}

// BootstrapConfig describes the datasets downloaded once at start-up.
type BootstrapConfig struct {
	Enabled      bool              `koanf:"enabled"`
	DataDir      string            `koanf:"data_dir" validate:"required_if=Enabled true"`
	PollInterval time.Duration     `koanf:"poll_interval" validate:"gt=0"`
	PollAttempts int               `koanf:"poll_attempts" validate:"min=1"`
	Datasets     map[string]string `koanf:"datasets"` // dataset ID -> file name under DataDir
}

// ViewportConfig holds density cutoffs per layer.
type ViewportConfig struct {
	BusStopMinZoom   int     `koanf:"bus_stop_min_zoom" validate:"gte=0,lte=22"`
	SpeedBandMinZoom int     `koanf:"speed_band_min_zoom" validate:"gte=0,lte=22"`
	CarparkMinZoom   int     `koanf:"carpark_min_zoom" validate:"gte=0,lte=22"`
	GridCellKm       float64 `koanf:"grid_cell_km" validate:"gt=0"`
}

// ProvidersConfig holds credentials and pacing per provider.
type ProvidersConfig struct {
	DataMall ProviderConfig `koanf:"datamall"`
	DataGov  ProviderConfig `koanf:"datagov"`
	OneMap   ProviderConfig `koanf:"onemap"`
}

// ProviderConfig configures one upstream provider.
type ProviderConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
	APIKey  string `koanf:"api_key"`

	// Email and Password are used by session-token providers.
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
	TokenURL string `koanf:"token_url" validate:"omitempty,url"`

	// RequestsPerSecond paces outbound calls; Burst allows short spikes.
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int           `koanf:"burst" validate:"min=1"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
}

// SourceConfig registers one upstream feed.
type SourceConfig struct {
	ID       string        `koanf:"id" validate:"required,source_id"`
	Provider string        `koanf:"provider" validate:"oneof=datamall datagov onemap"`
	Auth     string        `koanf:"auth" validate:"oneof=none static_key session_token"`
	Endpoint string        `koanf:"endpoint" validate:"required"`
	TTL      time.Duration `koanf:"ttl" validate:"gt=0"`

	// Paginated sources are fetched with DataMall $skip paging.
	Paginated bool `koanf:"paginated"`

	// PollDownload sources go through the data.gov.sg poll-download protocol;
	// Endpoint is then the dataset ID.
	PollDownload bool `koanf:"poll_download"`
}

// Provider returns the configuration for the named provider.
func (p *ProvidersConfig) Provider(name string) (ProviderConfig, bool) {
	switch name {
	case ProviderDataMall:
		return p.DataMall, true
	case ProviderDataGov:
		return p.DataGov, true
	case ProviderOneMap:
		return p.OneMap, true
	default:
		return ProviderConfig{}, false
	}
}

// SourceIDs returns the registered source IDs in sorted order.
func (c *Config) SourceIDs() []string {
	ids := make([]string, 0, len(c.Sources))
	for id := range c.Sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
