package config

// LoggingConfig configures categorized file logging. The logging package
// reads this section from <dataDir>/config.yaml itself to avoid a circular
// import; this struct exists so Save writes a complete file.
type LoggingConfig struct {
	Enabled    bool            `yaml:"enabled"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// DefaultLoggingConfig returns logging defaults.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Enabled: false,
		Level:   "info",
	}
}
