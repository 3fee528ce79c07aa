package config

import "time"

// CLIConfig is the configuration for shopmate-cli.
type CLIConfig struct {
	Server  string        `yaml:"server"`
	Output  string        `yaml:"output"` // table, json, yaml
	Timeout time.Duration `yaml:"timeout"`

	// Profiles maps a name to a server so --profile can switch targets.
	Profiles map[string]Profile `yaml:"profiles"`
	// CurrentProfile is used when --profile is not given.
	CurrentProfile string `yaml:"current_profile"`
}

// Profile is a named server target.
type Profile struct {
	Server string `yaml:"server"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:   "localhost:8080",
		Output:   "table",
		Timeout:  30 * time.Second,
		Profiles: make(map[string]Profile),
	}
}

// ServerFor returns the server of the named profile, or of the current
// profile when name is empty, falling back to Server.
func (c *CLIConfig) ServerFor(name string) (string, bool) {
	if name == "" {
		name = c.CurrentProfile
	}
	if name == "" {
		return c.Server, true
	}
	p, ok := c.Profiles[name]
	if !ok || p.Server == "" {
		return c.Server, false
	}
	return p.Server, true
}
