// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package config

import "time"

// Dataset IDs on data.gov.sg.
const (
	DatasetHDBCarparks = "d_23f946fa557947f93a8043bbef41dd09"
	DatasetERPGantries = "d_753090823cc9920ac41efaa6530c5893"
	DatasetZika        = "d_a3c783f11d79ff7feb8856f762ccf2c5"
	DatasetDengue      = "d_dbfabf16158d1b0e1c420627c0819168"
)

// CarparkFile is the fixed file name of the bootstrapped HDB carpark CSV.
const CarparkFile = "HDBCarparkInformation.csv"

// defaultConfig returns the defaults layered first by Load.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8050,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    45 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{},
			RateLimit:       300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Scheduler: SchedulerConfig{
			PoolSize:         10,
			FetchTimeout:     15 * time.Second,
			StragglerTimeout: time.Minute,
			RefreshInterval:  2 * time.Minute,
			Prefetch:         []string{
				"weather", "psi", "flood", "lightning", "taxi", "traffic-camera",
				"rainfall", "air-temperature", "traffic-incident",
			},
		},
		Bootstrap: BootstrapConfig{
			Enabled:      true,
			DataDir:      "data",
			PollInterval: 2 * time.Second,
			PollAttempts: 10,
			Datasets: map[string]string{
				DatasetHDBCarparks: CarparkFile,
			},
		},
		Viewport: ViewportConfig{
			BusStopMinZoom:   15,
			SpeedBandMinZoom: 14,
			CarparkMinZoom:   14,
			GridCellKm:       1,
		},
		Providers: ProvidersConfig{
			DataMall: ProviderConfig{
				BaseURL:           "https://datamall2.mytransport.sg/ltaodataservice",
				RequestsPerSecond: 5,
				Burst:             5,
				Timeout:           10 * time.Second,
			},
			DataGov: ProviderConfig{
				BaseURL:           "https://api-open.data.gov.sg",
				RequestsPerSecond: 4,
				Burst:             8,
				Timeout:           10 * time.Second,
			},
			OneMap: ProviderConfig{
				BaseURL:           "https://www.onemap.gov.sg",
				TokenURL:          "https://www.onemap.gov.sg/api/auth/post/getToken",
				RequestsPerSecond: 4,
				Burst:             4,
				Timeout:           10 * time.Second,
			},
		},
		Sources: defaultSources(),
	}
}

func defaultSources() map[string]SourceConfig {
	list := []SourceConfig{
		// data.gov.sg v1 feeds need no key.
		{ID: "weather", Provider: ProviderDataGov, Auth: AuthNone, TTL: 2 * time.Minute,
			Endpoint: "https://api.data.gov.sg/v1/environment/2-hour-weather-forecast"},
		{ID: "taxi", Provider: ProviderDataGov, Auth: AuthNone, TTL: 2 * time.Minute,
			Endpoint: "https://api.data.gov.sg/v1/transport/taxi-availability"},
		{ID: "traffic-camera", Provider: ProviderDataGov, Auth: AuthNone, TTL: 2 * time.Minute,
			Endpoint: "https://api.data.gov.sg/v1/transport/traffic-images"},

		// data.gov.sg v2 real-time feeds.
		{ID: "psi", Provider: ProviderDataGov, Auth: AuthStaticKey, TTL: time.Minute,
			Endpoint: "/v2/real-time/api/psi"},
		{ID: "lightning", Provider: ProviderDataGov, Auth: AuthStaticKey, TTL: 2 * time.Minute,
			Endpoint: "/v2/real-time/api/weather?api=lightning"},
		{ID: "flood", Provider: ProviderDataGov, Auth: AuthStaticKey, TTL: 2 * time.Minute,
			Endpoint: "/v2/real-time/api/weather/flood-alerts"},
		{ID: "uv", Provider: ProviderDataGov, Auth: AuthStaticKey, TTL: 10 * time.Minute,
			Endpoint: "/v2/real-time/api/uv"},
		{ID: "wbgt", Provider: ProviderDataGov, Auth: AuthStaticKey, TTL: 10 * time.Minute,
			Endpoint: "/v2/real-time/api/weather?api=wbgt"},
		{ID: "forecast-24h", Provider: ProviderDataGov, Auth: AuthStaticKey, TTL: 10 * time.Minute,
			Endpoint: "/v2/real-time/api/twenty-four-hr-forecast"},

		// data.gov.sg v2 station readings, refreshed every few minutes upstream.
		{ID: "rainfall", Provider: ProviderDataGov, Auth: AuthStaticKey, TTL: 2 * time.Minute,
			Endpoint: "/v2/real-time/api/rainfall"},
		{ID: "air-temperature", Provider: ProviderDataGov, Auth: AuthStaticKey, TTL: 2 * time.Minute,
			Endpoint: "/v2/real-time/api/air-temperature"},
		{ID: "relative-humidity", Provider: ProviderDataGov, Auth: AuthStaticKey, TTL: 2 * time.Minute,
			Endpoint: "/v2/real-time/api/relative-humidity"},
		{ID: "wind-speed", Provider: ProviderDataGov, Auth: AuthStaticKey, TTL: 2 * time.Minute,
			Endpoint: "/v2/real-time/api/wind-speed"},

		// data.gov.sg datasets behind poll-download.
		{ID: "zika", Provider: ProviderDataGov, Auth: AuthStaticKey, TTL: time.Hour,
			Endpoint: DatasetZika, PollDownload: true},
		{ID: "dengue", Provider: ProviderDataGov, Auth: AuthStaticKey, TTL: time.Hour,
			Endpoint: DatasetDengue, PollDownload: true},
		{ID: "erp-gantry", Provider: ProviderDataGov, Auth: AuthStaticKey, TTL: 24 * time.Hour,
			Endpoint: DatasetERPGantries, PollDownload: true},

		// LTA DataMall.
		{ID: "taxi-stand", Provider: ProviderDataMall, Auth: AuthStaticKey, TTL: 24 * time.Hour,
			Endpoint: "/TaxiStands", Paginated: true},
		{ID: "train-alert", Provider: ProviderDataMall, Auth: AuthStaticKey, TTL: 2 * time.Minute,
			Endpoint: "/TrainServiceAlerts"},
		{ID: "faulty-traffic-light", Provider: ProviderDataMall, Auth: AuthStaticKey, TTL: 2 * time.Minute,
			Endpoint: "/FaultyTrafficLights"},
		{ID: "carpark", Provider: ProviderDataMall, Auth: AuthStaticKey, TTL: 2 * time.Minute,
			Endpoint: "/CarParkAvailabilityv2", Paginated: true},
		{ID: "bus-stop", Provider: ProviderDataMall, Auth: AuthStaticKey, TTL: 24 * time.Hour,
			Endpoint: "/BusStops", Paginated: true},
		{ID: "speed-band", Provider: ProviderDataMall, Auth: AuthStaticKey, TTL: 5 * time.Minute,
			Endpoint: "/v4/TrafficSpeedBands", Paginated: true},
		{ID: "traffic-incident", Provider: ProviderDataMall, Auth: AuthStaticKey, TTL: 2 * time.Minute,
			Endpoint: "/TrafficIncidents"},
		{ID: "est-travel-time", Provider: ProviderDataMall, Auth: AuthStaticKey, TTL: 5 * time.Minute,
			Endpoint: "/EstTravelTimes"},

		// LTA DataMall, parameterised per request (one cache entry per params).
		{ID: "bus-arrival", Provider: ProviderDataMall, Auth: AuthStaticKey, TTL: 30 * time.Second,
			Endpoint: "/v3/BusArrival"},
		{ID: "mrt-crowd", Provider: ProviderDataMall, Auth: AuthStaticKey, TTL: 2 * time.Minute,
			Endpoint: "/PCDRealTime"},
		{ID: "mrt-crowd-forecast", Provider: ProviderDataMall, Auth: AuthStaticKey, TTL: time.Hour,
			Endpoint: "/PCDForecast"},
		{ID: "bicycle-parking", Provider: ProviderDataMall, Auth: AuthStaticKey, TTL: 24 * time.Hour,
			Endpoint: "/BicycleParkingv2"},

		// OneMap, session token.
		{ID: "nearby-mrt", Provider: ProviderOneMap, Auth: AuthSessionToken, TTL: 10 * time.Minute,
			Endpoint: "/api/public/nearbysvc/getNearestMrtStops"},
	}

	m := make(map[string]SourceConfig, len(list))
	for _, s := range list {
		m[s.ID] = s
	}
	return m
}
