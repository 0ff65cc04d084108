package config

// DefaultJobs matches the worker count of a parallel bundle.
const DefaultJobs = 4

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Jobs:      DefaultJobs,
		StartRate: 0,
		Verbose:   boolPtr(false),
		NoColor:   boolPtr(false),
		Output:    "console",
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Jobs == defaults.Jobs &&
		c.StartRate == defaults.StartRate &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor() &&
		c.Output == defaults.Output &&
		c.OutputFile == "" &&
		c.History == "" &&
		c.MetricsFile == "" &&
		len(c.Watch) == 0
}
