// Package commands implements the luapack CLI subcommands.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/luapack/luapack/internal/buildlog"
	"github.com/luapack/luapack/internal/config"
)

// logSourceCLI tags build-log entries written by CLI commands.
const logSourceCLI = "cli"

// loadConfig resolves configuration for a command, honoring the root
// --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := ""
	if flag := cmd.Flag("config"); flag != nil {
		path = flag.Value.String()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// openLog returns the build-log store, or nil when logging is disabled or no
// location can be resolved. A nil store is acceptable: log persistence never
// blocks the command itself.
func openLog(cfg *config.Config) *buildlog.Store {
	if cfg.Log.Disabled {
		return nil
	}

	path := cfg.Log.Path
	if path == "" {
		defaultPath, err := buildlog.DefaultPath()
		if err != nil {
			slog.Debug("build log disabled", "reason", err)

			return nil
		}

		path = defaultPath
	}

	return buildlog.Open(path)
}

// record appends a build-log entry, tolerating a nil store and logging
// persistence failures instead of surfacing them.
func record(store *buildlog.Store, level buildlog.Level, action, message string) {
	if store == nil {
		return
	}

	if err := store.Log(level, logSourceCLI, action, message); err != nil {
		slog.Debug("build log write failed", "error", err)
	}
}
