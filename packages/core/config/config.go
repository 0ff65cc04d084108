package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a config file does not match the schema.
var ErrInvalidConfig = errors.New("invalid config")

//go:embed schema.json
var schemaJSON string

var schema = gojsonschema.NewStringLoader(schemaJSON)

// Config represents the chlorine configuration
type Config struct {
	Jobs        int      `json:"jobs,omitempty" yaml:"jobs,omitempty"`
	StartRate   float64  `json:"startRate,omitempty" yaml:"startRate,omitempty"` // specs started per second, 0 is unlimited
	Verbose     *bool    `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor     *bool    `json:"noColor,omitempty" yaml:"noColor,omitempty"`
	Output      string   `json:"output,omitempty" yaml:"output,omitempty"`           // Report format
	OutputFile  string   `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`   // Report destination, stdout when empty
	History     string   `json:"history,omitempty" yaml:"history,omitempty"`         // sqlite database of past runs
	MetricsFile string   `json:"metricsFile,omitempty" yaml:"metricsFile,omitempty"` // Prometheus textfile
	Watch       []string `json:"watch,omitempty" yaml:"watch,omitempty"`             // Paths that trigger a re-run in watch mode
}

// boolPtr returns a pointer to a bool value
func boolPtr(b bool) *bool {
	return &b
}

// BoolPtr is exported version of boolPtr for external use
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".chlorine.yaml",
	"chlorine.yaml",
	".chlorine.json",
	"chlorine.config.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// JSON is a subset of YAML, so one decoder reads both formats
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return config, nil
}

// Validate checks a YAML or JSON document against the config schema.
func Validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if doc == nil {
		// empty file
		return nil
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Jobs > 0 {
		result.Jobs = other.Jobs
	}
	if other.StartRate > 0 {
		result.StartRate = other.StartRate
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.OutputFile != "" {
		result.OutputFile = other.OutputFile
	}
	if other.History != "" {
		result.History = other.History
	}
	if other.MetricsFile != "" {
		result.MetricsFile = other.MetricsFile
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Watch) > 0 {
		result.Watch = append([]string(nil), other.Watch...)
	}

	return &result
}

// SaveConfig saves the configuration to a file, as JSON for a .json path
// and YAML otherwise
func (c *Config) SaveConfig(path string) error {
	var data []byte
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
