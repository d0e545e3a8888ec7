package config

// DefaultHistory is the history database used when none is configured
const DefaultHistory = "sqlite://.trialxml/history.db"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Hostname: "localhost",
		Output:   "junit",
		History:  DefaultHistory,
		LogLevel: "info",
		NotifyOn: "failure",
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Hostname == defaults.Hostname &&
		c.Output == defaults.Output &&
		c.OutputDir == defaults.OutputDir &&
		c.History == defaults.History &&
		c.LogLevel == defaults.LogLevel &&
		c.MetricsFile == defaults.MetricsFile &&
		c.NotifyOn == defaults.NotifyOn &&
		c.SlackWebhook == defaults.SlackWebhook &&
		c.TeamsWebhook == defaults.TeamsWebhook &&
		c.Record == nil &&
		c.FailOnFailure == nil &&
		c.Verbose == nil &&
		c.NoColor == nil
}
