package commands

import (
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/luapack/luapack/internal/engine"
)

// EnginesCommand holds the flags for the engines command.
type EnginesCommand struct{}

// NewEnginesCommand creates and configures the engines command.
func NewEnginesCommand() *cobra.Command {
	cmd := &EnginesCommand{}

	cobraCmd := &cobra.Command{
		Use:   "engines",
		Short: "List known packaging engines and their availability",
		Args:  cobra.NoArgs,
		RunE:  cmd.Run,
	}

	return cobraCmd
}

// Run executes the engines command.
func (c *EnginesCommand) Run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	registry := engine.DefaultRegistry(cfg.ToolDir)

	writer := table.NewWriter()
	writer.SetOutputMirror(cmd.OutOrStdout())
	writer.AppendHeader(table.Row{"Engine", "Available", "Description"})

	for _, eng := range registry.List() {
		availability := color.RedString("no")
		if eng.Available() {
			availability = color.GreenString("yes")
		}

		name := eng.Name()
		if name == cfg.Engine {
			name += " (default)"
		}

		writer.AppendRow(table.Row{name, availability, eng.Description()})
	}

	writer.Render()

	return nil
}
