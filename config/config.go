// Package config provides configuration loading and management for speclint.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/validation/rules"
)

// Config represents the complete speclint configuration
type Config struct {
	Specs    SpecsConfig    `yaml:"specs"`
	Validate ValidateConfig `yaml:"validate"`
	Server   ServerConfig   `yaml:"server"`
	NATS     NATSConfig     `yaml:"nats"`
	Watch    WatchConfig    `yaml:"watch"`
	Scan     ScanConfig     `yaml:"scan"`
}

// SpecsConfig locates the spec documents
type SpecsConfig struct {
	// Dir is the directory searched for spec sets
	Dir string `yaml:"dir"`
	// Language forces the document language ("ja", "en", or "auto")
	Language string `yaml:"language"`
	// Patterns lists glob patterns locating requirements documents
	// (empty = discovery defaults)
	Patterns []string `yaml:"patterns"`
}

// ValidateConfig adjusts rule behavior
type ValidateConfig struct {
	// DirectPairCycles limits circular dependency detection to mutual pairs
	DirectPairCycles bool `yaml:"direct_pair_cycles"`
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	// Addr is the HTTP listen address
	Addr string `yaml:"addr"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to use embedded NATS
	Embedded bool `yaml:"embedded"`
}

// WatchConfig configures spec document watching
type WatchConfig struct {
	// DebounceDelay is how long to wait for more changes before revalidating
	DebounceDelay string `yaml:"debounce_delay"`
	// ExcludeDirs lists directory names skipped while watching
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// GetDebounceDelay returns the debounce delay as a duration.
func (c *WatchConfig) GetDebounceDelay() time.Duration {
	if c.DebounceDelay == "" {
		return 500 * time.Millisecond
	}
	d, err := time.ParseDuration(c.DebounceDelay)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// ScanConfig configures implementation coverage scanning
type ScanConfig struct {
	// Src is the source tree scanned for traceability annotations
	Src string `yaml:"src"`
	// SkipDirs lists directory names skipped during the scan
	// (empty = scanner defaults)
	SkipDirs []string `yaml:"skip_dirs"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Specs: SpecsConfig{
			Dir:      "specs",
			Language: "auto",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		Watch: WatchConfig{
			DebounceDelay: "500ms",
			ExcludeDirs:   []string{".git", "node_modules", "vendor"},
		},
		Scan: ScanConfig{
			Src: ".",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Specs.Dir == "" {
		return fmt.Errorf("specs.dir is required")
	}
	switch c.Specs.Language {
	case "", "auto", "ja", "en":
	default:
		return fmt.Errorf("specs.language must be ja, en, or auto")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// Language returns the configured document language.
func (c *Config) Language() document.Language {
	if c.Specs.Language == "" {
		return document.LanguageAuto
	}
	return document.Language(c.Specs.Language)
}

// RuleOptions translates the validate section into rule set options.
func (c *Config) RuleOptions() []rules.Option {
	var opts []rules.Option
	if c.Validate.DirectPairCycles {
		opts = append(opts, rules.WithDirectPairCycles())
	}
	return opts
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
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

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Specs
	if other.Specs.Dir != "" {
		c.Specs.Dir = other.Specs.Dir
	}
	if other.Specs.Language != "" {
		c.Specs.Language = other.Specs.Language
	}
	if len(other.Specs.Patterns) > 0 {
		c.Specs.Patterns = other.Specs.Patterns
	}

	// Validate
	if other.Validate.DirectPairCycles {
		c.Validate.DirectPairCycles = true
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}

	// Watch
	if other.Watch.DebounceDelay != "" {
		c.Watch.DebounceDelay = other.Watch.DebounceDelay
	}
	if len(other.Watch.ExcludeDirs) > 0 {
		c.Watch.ExcludeDirs = other.Watch.ExcludeDirs
	}

	// Scan
	if other.Scan.Src != "" {
		c.Scan.Src = other.Scan.Src
	}
	if len(other.Scan.SkipDirs) > 0 {
		c.Scan.SkipDirs = other.Scan.SkipDirs
	}
}
