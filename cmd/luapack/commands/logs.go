package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/luapack/luapack/internal/buildlog"
)

// LogsCommand holds the flags for the logs command.
type LogsCommand struct {
	limit     int
	level     string
	source    string
	action    string
	ascending bool
	clear     bool
}

// NewLogsCommand creates and configures the logs command.
func NewLogsCommand() *cobra.Command {
	cmd := &LogsCommand{}

	cobraCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show past analyzer and build runs",
		Args:  cobra.NoArgs,
		RunE:  cmd.Run,
	}

	cobraCmd.Flags().IntVarP(&cmd.limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	cobraCmd.Flags().StringVar(&cmd.level, "level", "", "Only entries at this level (info, success, warning, error)")
	cobraCmd.Flags().StringVar(&cmd.source, "source", "", "Only entries from this source")
	cobraCmd.Flags().StringVar(&cmd.action, "action", "", "Only entries for this action (analyze, build)")
	cobraCmd.Flags().BoolVar(&cmd.ascending, "asc", false, "Oldest entries first (default newest first)")
	cobraCmd.Flags().BoolVar(&cmd.clear, "clear", false, "Delete the persisted log instead of listing it")

	return cobraCmd
}

// Run executes the logs command.
func (c *LogsCommand) Run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var level buildlog.Level
	if c.level != "" {
		level, err = buildlog.ParseLevel(c.level)
		if err != nil {
			return err
		}
	}

	store := openLog(cfg)
	if store == nil {
		return fmt.Errorf("build log is disabled")
	}

	if c.clear {
		if err := store.Clear(); err != nil {
			return fmt.Errorf("clear log: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Log cleared.")

		return nil
	}

	entries, err := store.Entries(buildlog.Filter{
		Limit:      c.limit,
		Level:      level,
		Source:     c.source,
		Action:     c.action,
		Descending: !c.ascending,
	})
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No log entries.")

		return nil
	}

	writer := table.NewWriter()
	writer.SetOutputMirror(cmd.OutOrStdout())
	writer.AppendHeader(table.Row{"Time", "Level", "Source", "Action", "Message"})

	for _, entry := range entries {
		writer.AppendRow(table.Row{
			entry.Time.Format(time.DateTime),
			string(entry.Level),
			entry.Source,
			entry.Action,
			entry.Message,
		})
	}

	writer.Render()

	return nil
}
