// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

// Package config loads koinode's YAML configuration file, with
// environment variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/koi-net/koinode/internal/protocol"
)

// Config is the top-level shape of koinode.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	KOINet   KOINetConfig   `yaml:"koi_net"`
	Database DatabaseConfig `yaml:"database"`
}

// ServerConfig configures the HTTP API surface.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Path           string `yaml:"path"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// Addr returns the listen address derived from Host and Port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// KOINetConfig configures this node's identity, profile, and persistence
// paths.
type KOINetConfig struct {
	NodeName        string            `yaml:"node_name"`
	NodeProfile     NodeProfileConfig `yaml:"node_profile"`
	CacheDirectory  string            `yaml:"cache_directory"`
	EventQueuesPath string            `yaml:"event_queues_path"`
	FirstContact    string            `yaml:"first_contact"`
	IdentityPath    string            `yaml:"identity_path"`
	PollIntervalSec int               `yaml:"poll_interval_seconds"`
	UseWorker       *bool             `yaml:"use_worker"`
}

// NodeProfileConfig is the YAML shape of a protocol.NodeProfile.
type NodeProfileConfig struct {
	NodeType string       `yaml:"node_type"`
	Provides ProvidesYAML `yaml:"provides"`
}

// ProvidesYAML is the YAML shape of protocol.Provides.
type ProvidesYAML struct {
	Event []string `yaml:"event"`
	State []string `yaml:"state"`
}

// NodeProfile builds the protocol.NodeProfile this configuration
// describes. base_url is supplied separately since it is derived from
// ServerConfig, not stored redundantly in koi_net.node_profile.
func (k KOINetConfig) NodeProfile(baseURL string) protocol.NodeProfile {
	nodeType := protocol.NodeTypePartial
	if k.NodeProfile.NodeType == string(protocol.NodeTypeFull) {
		nodeType = protocol.NodeTypeFull
	}
	return protocol.NodeProfile{
		BaseURL:  baseURL,
		NodeType: nodeType,
		Provides: protocol.Provides{
			Event: k.NodeProfile.Provides.Event,
			State: k.NodeProfile.Provides.State,
		},
	}
}

// PollInterval returns the configured neighbor-poll period, defaulting to
// 30 seconds.
func (k KOINetConfig) PollInterval() time.Duration {
	if k.PollIntervalSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(k.PollIntervalSec) * time.Second
}

// Worker reports whether the processing pipeline should run in
// worker-goroutine mode. Defaults to true.
func (k KOINetConfig) Worker() bool {
	if k.UseWorker == nil {
		return true
	}
	return *k.UseWorker
}

// DatabaseConfig configures the Postgres cache connection.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

const databaseURLEnvVar = "KOINODE_DATABASE_URL"

// Load reads and parses the YAML file at path, applying defaults and the
// KOINODE_DATABASE_URL environment override.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if v := os.Getenv(databaseURLEnvVar); v != "" {
		cfg.Database.URL = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with the teacher's convention of sane
// non-secret defaults; Load overlays the YAML file and environment on top
// of it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
			Path: "/koi-net",
		},
		KOINet: KOINetConfig{
			CacheDirectory:  ".koinode/cache",
			EventQueuesPath: ".koinode/event_queues.json",
			IdentityPath:    ".koinode/identity.json",
		},
	}
}

func (c *Config) validate() error {
	if c.KOINet.NodeName == "" {
		return fmt.Errorf("koi_net.node_name is required")
	}
	return nil
}

// RequireDatabaseURL checks that a Postgres connection string was
// configured. Callers that can run against an in-memory cache instead
// (e.g. `koinode serve --memory`) should only invoke this when falling
// back to Postgres.
func (c *Config) RequireDatabaseURL() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required (set database.url or %s)", databaseURLEnvVar)
	}
	return nil
}
