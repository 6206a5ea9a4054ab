// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Parallel server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Geocode   GeocodeConfig   `koanf:"geocode"`
	Summary   SummaryConfig   `koanf:"summary"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	CORSOrigins []string      `koanf:"cors_origins"`

	// RateLimitReqs bounds ingest requests per client IP per window.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// StoreConfig holds BadgerDB settings for the metadata, summary, and
// user record stores.
type StoreConfig struct {
	Path string `koanf:"path"`

	// InMemory runs Badger without disk persistence. Used in tests and
	// throwaway development environments.
	InMemory bool `koanf:"in_memory"`

	// GCInterval is how often the value-log garbage collector runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// GeocodeConfig holds reverse-geocoding provider and queue settings.
type GeocodeConfig struct {
	// APIKey authenticates against the Google Geocoding API.
	APIKey string `koanf:"api_key"`

	// BaseURL overrides the provider endpoint. Only set in tests.
	BaseURL string `koanf:"base_url"`

	// DomesticCountry is the ISO 3166-1 alpha-2 code whose labels are
	// formatted "City, StateCode" instead of "City, CountryName".
	DomesticCountry string `koanf:"domestic_country"`

	// MaxRatePerSecond caps outbound geocode calls. The queue sleeps
	// ceil(batch_size/max_rate_per_second) seconds between batches.
	MaxRatePerSecond int `koanf:"max_rate_per_second"`

	BatchSize int           `koanf:"batch_size"`
	Timeout   time.Duration `koanf:"timeout"`
}

// SummaryConfig holds summary aggregation queue settings.
type SummaryConfig struct {
	MaxRatePerSecond int `koanf:"max_rate_per_second"`
	BatchSize        int `koanf:"batch_size"`

	// ProcessDelay is the debounce window: the first enqueue of an idle
	// cycle waits this long so bursts coalesce before any work begins.
	ProcessDelay time.Duration `koanf:"process_delay"`
}

// WebSocketConfig holds connection registry settings.
type WebSocketConfig struct {
	// PingInterval is how often the liveness sweep pings every open
	// connection. A connection that missed the previous pong is
	// terminated on the next sweep.
	PingInterval time.Duration `koanf:"ping_interval"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.Geocode.MaxRatePerSecond <= 0 {
		return fmt.Errorf("geocode.max_rate_per_second must be positive, got %d", c.Geocode.MaxRatePerSecond)
	}
	if c.Geocode.BatchSize <= 0 {
		return fmt.Errorf("geocode.batch_size must be positive, got %d", c.Geocode.BatchSize)
	}
	if c.Summary.MaxRatePerSecond <= 0 {
		return fmt.Errorf("summary.max_rate_per_second must be positive, got %d", c.Summary.MaxRatePerSecond)
	}
	if c.Summary.BatchSize <= 0 {
		return fmt.Errorf("summary.batch_size must be positive, got %d", c.Summary.BatchSize)
	}
	if c.Summary.ProcessDelay < 0 {
		return fmt.Errorf("summary.process_delay must not be negative")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("websocket.ping_interval must be positive")
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	if len(c.Geocode.DomesticCountry) != 2 {
		return fmt.Errorf("geocode.domestic_country must be a two-letter country code, got %q", c.Geocode.DomesticCountry)
	}
	return nil
}
