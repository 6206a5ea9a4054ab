// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"zero geocode rate", func(c *Config) { c.Geocode.MaxRatePerSecond = 0 }},
		{"negative geocode batch", func(c *Config) { c.Geocode.BatchSize = -1 }},
		{"zero summary rate", func(c *Config) { c.Summary.MaxRatePerSecond = 0 }},
		{"zero summary batch", func(c *Config) { c.Summary.BatchSize = 0 }},
		{"negative debounce", func(c *Config) { c.Summary.ProcessDelay = -time.Second }},
		{"zero ping interval", func(c *Config) { c.WebSocket.PingInterval = 0 }},
		{"empty store path on disk", func(c *Config) { c.Store.Path = ""; c.Store.InMemory = false }},
		{"bad domestic country", func(c *Config) { c.Geocode.DomesticCountry = "USA" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestInMemoryStoreNeedsNoPath(t *testing.T) {
	cfg := defaultConfig()
	cfg.Store.Path = ""
	cfg.Store.InMemory = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("in-memory store should not require a path: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"GOOGLE_MAPS_API_KEY", "geocode.api_key"},
		{"GEOCODE_RATE", "geocode.max_rate_per_second"},
		{"SUMMARY_UPDATE_DELAY", "summary.process_delay"},
		{"WS_PING_INTERVAL", "websocket.ping_interval"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
		{"RANDOM_UNRELATED_VAR", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("GEOCODE_RATE", "3")
	t.Setenv("STORE_IN_MEMORY", "true")
	t.Setenv("STORE_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Geocode.MaxRatePerSecond != 3 {
		t.Errorf("expected geocode rate 3, got %d", cfg.Geocode.MaxRatePerSecond)
	}
	if !cfg.Store.InMemory {
		t.Error("expected in-memory store")
	}
}

func TestLoadHonorsConfigPathEnvVar(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	yaml := "server:\n  port: 8123\ngeocode:\n  domestic_country: FR\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8123 {
		t.Errorf("expected port 8123 from file, got %d", cfg.Server.Port)
	}
	if cfg.Geocode.DomesticCountry != "FR" {
		t.Errorf("expected domestic country FR, got %q", cfg.Geocode.DomesticCountry)
	}
}
