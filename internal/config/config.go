// Package config loads luapack settings from file, environment, and
// defaults.
package config

import (
	"errors"
	"fmt"
)

var (
	errNonPositiveMaxDeps = errors.New("config: max_dependencies must be positive")
	errEmptyEngine        = errors.New("config: engine must not be empty")
)

// Config is the top-level configuration struct for luapack.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Engine          string `mapstructure:"engine"`
	MaxDependencies int    `mapstructure:"max_dependencies"`
	ToolDir         string `mapstructure:"tool_dir"`
	Log             Log    `mapstructure:"log"`
}

// Log holds build-log settings.
type Log struct {
	// Path overrides the default log location under the user config dir.
	Path string `mapstructure:"path"`
	// Disabled turns off build-log persistence entirely.
	Disabled bool `mapstructure:"disabled"`
}

// Validate checks invariants that defaults alone cannot guarantee.
func (c *Config) Validate() error {
	if c.MaxDependencies <= 0 {
		return fmt.Errorf("%w: got %d", errNonPositiveMaxDeps, c.MaxDependencies)
	}

	if c.Engine == "" {
		return errEmptyEngine
	}

	return nil
}
