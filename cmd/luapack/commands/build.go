package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/luapack/luapack/internal/buildlog"
	"github.com/luapack/luapack/internal/engine"
)

// BuildCommand holds the flags for the build command.
type BuildCommand struct {
	engineName string
	output     string
	requires   []string
	excludes   []string
	manual     bool
	maxDeps    int
}

// NewBuildCommand creates and configures the build command.
func NewBuildCommand() *cobra.Command {
	cmd := &BuildCommand{}

	cobraCmd := &cobra.Command{
		Use:   "build <script.lua>",
		Short: "Package a Lua script into a standalone executable",
		Long: "Build analyzes the entry script's dependencies, then invokes the selected\n" +
			"packaging engine to produce a self-contained executable.",
		Args: cobra.ExactArgs(1),
		RunE: cmd.Run,
	}

	cobraCmd.Flags().StringVarP(&cmd.engineName, "engine", "e", "", "Packaging engine (default from config)")
	cobraCmd.Flags().StringVarP(&cmd.output, "output", "o", "", "Executable path (default derived from the entry)")
	cobraCmd.Flags().StringSliceVarP(&cmd.requires, "require", "r", nil, "Extra scripts to include (repeatable)")
	cobraCmd.Flags().StringSliceVarP(&cmd.excludes, "exclude", "x", nil, "Scripts to drop from the analyzed set (repeatable)")
	cobraCmd.Flags().BoolVar(&cmd.manual, "manual", false, "Skip analysis; package only the entry and --require scripts")
	cobraCmd.Flags().IntVar(&cmd.maxDeps, "max-deps", 0, "Dependency limit (default from config)")

	return cobraCmd
}

// Run executes the build command.
func (c *BuildCommand) Run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	engineName := c.engineName
	if engineName == "" {
		engineName = cfg.Engine
	}

	maxDeps := c.maxDeps
	if maxDeps <= 0 {
		maxDeps = cfg.MaxDependencies
	}

	store := openLog(cfg)
	entry := args[0]

	registry := engine.DefaultRegistry(cfg.ToolDir)
	orchestrator := engine.NewOrchestrator(registry, engine.WithLogger(slog.Default()))

	req := engine.BuildRequest{
		Entry:           entry,
		EngineName:      engineName,
		Output:          c.output,
		ManualInclude:   c.requires,
		ManualExclude:   c.excludes,
		SkipAnalysis:    c.manual,
		MaxDependencies: maxDeps,
	}

	output, err := orchestrator.Build(cmd.Context(), req)
	if err != nil {
		record(store, buildlog.LevelError, "build", fmt.Sprintf("%s: %v", entry, err))

		return err
	}

	message := fmt.Sprintf("%s -> %s", entry, output)
	if info, statErr := os.Stat(output); statErr == nil {
		message = fmt.Sprintf("%s (%s)", message, humanize.Bytes(uint64(info.Size())))
	}

	record(store, buildlog.LevelSuccess, "build", message)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("Built:"), message)

	return nil
}
