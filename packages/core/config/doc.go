// Package config handles configuration loading and management for trialxml.
//
// It provides functionality for:
//   - Loading configuration from JSON (.trialxml.config.json, .trialxmlrc)
//     or YAML (trialxml.yaml, trialxml.yml) files
//   - Default configuration values
//   - Merging file configuration with command line overrides
package config
