package config

// SafetyConfig configures the safety filter's optional category policy.
// The pattern sets themselves are code, not configuration: loosening them
// must be a reviewed change.
type SafetyConfig struct {
	// PolicyPath points at a YAML allow-list of memory categories eligible
	// for capture. Empty or missing file means allow-all defaults.
	PolicyPath string `yaml:"policy_path"`

	// WatchPolicy enables hot reload of the policy file.
	WatchPolicy bool `yaml:"watch_policy"`
}

// DefaultSafetyConfig returns safety defaults.
func DefaultSafetyConfig() SafetyConfig {
	return SafetyConfig{
		PolicyPath:  "",
		WatchPolicy: false,
	}
}
