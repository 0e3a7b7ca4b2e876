// Package config loads cryptoscan.yaml. Every field is optional; flags
// override what the file sets.
package config

import (
	"fmt"
	"os"
	"runtime"

	"sigs.k8s.io/yaml"

	"cryptoscan/internal/callpath"
)

// DefaultFile is looked up in the working directory when -config is not given
const DefaultFile = "cryptoscan.yaml"

// Output formats
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// Config holds the run settings
type Config struct {
	Detectors   []string `json:"detectors,omitempty"`
	Exclude     []string `json:"exclude,omitempty"`
	PathLimit   int      `json:"pathLimit,omitempty"`
	Workers     int      `json:"workers,omitempty"`
	Format      string   `json:"format,omitempty"`
	Verbosity   int      `json:"verbosity,omitempty"`
	MetricsAddr string   `json:"metricsAddr,omitempty"`
	Inventory   bool     `json:"inventory,omitempty"`
}

// Default returns the settings used when nothing is configured
func Default() *Config {
	return &Config{
		PathLimit: callpath.DefaultLimit,
		Workers:   runtime.NumCPU(),
		Format:    FormatText,
	}
}

// Load reads path over the defaults. Unknown keys are errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks ranges and the output format
func (c *Config) Validate() error {
	switch c.Format {
	case FormatText, FormatJSON, FormatSARIF:
	default:
		return fmt.Errorf("unknown format %q (want %s, %s or %s)", c.Format, FormatText, FormatJSON, FormatSARIF)
	}
	if c.PathLimit < 0 {
		return fmt.Errorf("pathLimit must not be negative, got %d", c.PathLimit)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Verbosity < 0 {
		return fmt.Errorf("verbosity must not be negative, got %d", c.Verbosity)
	}
	return nil
}

// Marshal renders c as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
