package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the trialxml configuration
type Config struct {
	Hostname      string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Output        string `json:"output,omitempty" yaml:"output,omitempty"`       // junit, console, tap, json
	OutputDir     string `json:"outputDir,omitempty" yaml:"outputDir,omitempty"` // Directory for TEST-*.xml files
	History       string `json:"history,omitempty" yaml:"history,omitempty"`     // sqlite connection string
	LogLevel      string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	MetricsFile   string `json:"metricsFile,omitempty" yaml:"metricsFile,omitempty"` // Prometheus textfile
	NotifyOn      string `json:"notifyOn,omitempty" yaml:"notifyOn,omitempty"`       // always, failure, success, recovery
	SlackWebhook  string `json:"slackWebhook,omitempty" yaml:"slackWebhook,omitempty"`
	TeamsWebhook  string `json:"teamsWebhook,omitempty" yaml:"teamsWebhook,omitempty"`
	Record        *bool  `json:"record,omitempty" yaml:"record,omitempty"`
	FailOnFailure *bool  `json:"failOnFailure,omitempty" yaml:"failOnFailure,omitempty"`
	Verbose       *bool  `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor       *bool  `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// BoolPtr returns a pointer to b
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

// GetRecord returns whether reports are recorded in history, defaulting to false
func (c *Config) GetRecord() bool {
	return getBool(c.Record, false)
}

// GetFailOnFailure returns whether failing trials set a non-zero exit code, defaulting to false
func (c *Config) GetFailOnFailure() bool {
	return getBool(c.FailOnFailure, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names, in search order
var ConfigFilenames = []string{
	".trialxml.config.json",
	"trialxml.config.json",
	".trialxmlrc",
	"trialxml.yaml",
	"trialxml.yml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
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

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Hostname != "" {
		result.Hostname = other.Hostname
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.OutputDir != "" {
		result.OutputDir = other.OutputDir
	}
	if other.History != "" {
		result.History = other.History
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}
	if other.MetricsFile != "" {
		result.MetricsFile = other.MetricsFile
	}
	if other.NotifyOn != "" {
		result.NotifyOn = other.NotifyOn
	}
	if other.SlackWebhook != "" {
		result.SlackWebhook = other.SlackWebhook
	}
	if other.TeamsWebhook != "" {
		result.TeamsWebhook = other.TeamsWebhook
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Record != nil {
		result.Record = other.Record
	}
	if other.FailOnFailure != nil {
		result.FailOnFailure = other.FailOnFailure
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	return &result
}

// SaveConfig saves the configuration to a file, as YAML or JSON by extension
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
