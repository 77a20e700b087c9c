// Package config provides configuration loading and management for
// pagelens.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/pagelens/encoder"
	"github.com/c360studio/pagelens/ingest"
	"github.com/c360studio/pagelens/pipeline"
	"github.com/c360studio/pagelens/retrieval"
	"github.com/c360studio/pagelens/search"
	"github.com/c360studio/pagelens/store"
	"github.com/c360studio/pagelens/synthesis"
	"github.com/c360studio/pagelens/vision"
)

// Config represents the complete pagelens configuration.
type Config struct {
	Search    search.Config    `yaml:"search"`
	Encoder   encoder.Config   `yaml:"encoder"`
	Store     StoreConfig      `yaml:"store"`
	Models    ModelsConfig     `yaml:"models"`
	Selection retrieval.Config `yaml:"selection"`
	Vision    vision.Config    `yaml:"vision"`
	Synthesis synthesis.Config `yaml:"synthesis"`
	Pipeline  pipeline.Config  `yaml:"pipeline"`
	Server    ServerConfig     `yaml:"server"`
	Ingest    ingest.Config    `yaml:"ingest"`
}

// StoreConfig configures the object store connection.
type StoreConfig struct {
	// NATSURL is the NATS server URL backing the object store.
	NATSURL string `yaml:"nats_url"`

	store.Config `yaml:",inline"`
}

// ModelsConfig configures model endpoint resolution.
type ModelsConfig struct {
	// RegistryPath points at an optional registry file (JSON). Empty uses
	// the built-in defaults. In serve mode the file is watched and
	// hot-reloaded.
	RegistryPath string `yaml:"registry_path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Search:  search.DefaultConfig(),
		Encoder: encoder.DefaultConfig(),
		Store: StoreConfig{
			NATSURL: "nats://localhost:4222",
			Config:  store.DefaultConfig(),
		},
		Selection: retrieval.DefaultConfig(),
		Vision:    vision.DefaultConfig(),
		Synthesis: synthesis.DefaultConfig(),
		Pipeline:  pipeline.DefaultConfig(),
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Ingest: ingest.Config{
			Timeout: 60 * time.Second,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Store.NATSURL == "" {
		return fmt.Errorf("store.nats_url is required")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if err := c.Selection.Validate(); err != nil {
		return fmt.Errorf("selection: %w", err)
	}
	if c.Pipeline.ConfidenceThreshold < 0 || c.Pipeline.ConfidenceThreshold > 1 {
		return fmt.Errorf("pipeline.confidence_threshold must be between 0 and 1")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Search.URL != "" {
		c.Search.URL = other.Search.URL
	}
	if other.Search.Timeout != 0 {
		c.Search.Timeout = other.Search.Timeout
	}

	if other.Encoder.URL != "" {
		c.Encoder.URL = other.Encoder.URL
	}
	if other.Encoder.Model != "" {
		c.Encoder.Model = other.Encoder.Model
	}
	if other.Encoder.Timeout != 0 {
		c.Encoder.Timeout = other.Encoder.Timeout
	}

	if other.Store.NATSURL != "" {
		c.Store.NATSURL = other.Store.NATSURL
	}
	if other.Store.Bucket != "" {
		c.Store.Bucket = other.Store.Bucket
	}
	if other.Store.GatewayURL != "" {
		c.Store.GatewayURL = other.Store.GatewayURL
	}
	if other.Store.SigningSecret != "" {
		c.Store.SigningSecret = other.Store.SigningSecret
	}
	if other.Store.LinkTTL != 0 {
		c.Store.LinkTTL = other.Store.LinkTTL
	}

	if other.Models.RegistryPath != "" {
		c.Models.RegistryPath = other.Models.RegistryPath
	}

	if other.Selection.MaxChunks != 0 {
		c.Selection.MaxChunks = other.Selection.MaxChunks
	}
	if other.Selection.ReportingYear != 0 {
		c.Selection.ReportingYear = other.Selection.ReportingYear
	}

	if other.Vision.MaxImages != 0 {
		c.Vision.MaxImages = other.Vision.MaxImages
	}
	if other.Vision.MaxInFlight != 0 {
		c.Vision.MaxInFlight = other.Vision.MaxInFlight
	}
	if other.Vision.JobTimeout != 0 {
		c.Vision.JobTimeout = other.Vision.JobTimeout
	}

	if other.Synthesis.ReportingYear != 0 {
		c.Synthesis.ReportingYear = other.Synthesis.ReportingYear
	}
	if other.Synthesis.DraftMaxTokens != 0 {
		c.Synthesis.DraftMaxTokens = other.Synthesis.DraftMaxTokens
	}
	if other.Synthesis.MergeMaxTokens != 0 {
		c.Synthesis.MergeMaxTokens = other.Synthesis.MergeMaxTokens
	}

	if other.Pipeline.MaxChunks != 0 {
		c.Pipeline.MaxChunks = other.Pipeline.MaxChunks
	}
	if other.Pipeline.ConfidenceThreshold != 0 {
		c.Pipeline.ConfidenceThreshold = other.Pipeline.ConfidenceThreshold
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}

	if other.Ingest.IndexURL != "" {
		c.Ingest.IndexURL = other.Ingest.IndexURL
	}
	if other.Ingest.Timeout != 0 {
		c.Ingest.Timeout = other.Ingest.Timeout
	}
}
