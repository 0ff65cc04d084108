// Package config handles configuration loading and management for chlorine.
//
// It provides functionality for:
//   - Loading configuration from .chlorine.yaml or JSON config files
//   - Validating config files against an embedded JSON schema
//   - Default configuration values and merging of overrides
package config
