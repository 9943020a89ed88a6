package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/luapack/luapack/internal/buildlog"
	"github.com/luapack/luapack/internal/bundle"
	"github.com/luapack/luapack/pkg/luadep"
)

// Output format constants for the analyze command.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// AnalyzeCommand holds the flags for the analyze command.
type AnalyzeCommand struct {
	maxDeps    int
	detail     bool
	format     string
	bundlePath string
}

// NewAnalyzeCommand creates and configures the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	cmd := &AnalyzeCommand{}

	cobraCmd := &cobra.Command{
		Use:   "analyze <script.lua>",
		Short: "Resolve the dependency graph of a Lua script",
		Long: "Analyze statically walks require() references starting from the entry\n" +
			"script and prints every source module and native library the script needs,\n" +
			"in the order they must be loaded.",
		Args: cobra.ExactArgs(1),
		RunE: cmd.Run,
	}

	cobraCmd.Flags().IntVar(&cmd.maxDeps, "max-deps", 0,
		fmt.Sprintf("Dependency limit (default %d, or max_dependencies from config)", luadep.DefaultMaxDependencies))
	cobraCmd.Flags().BoolVarP(&cmd.detail, "detail", "d", false, "Show per-file details in a table")
	cobraCmd.Flags().StringVarP(&cmd.format, "format", "f", FormatText, "Output format: text, json, or yaml")
	cobraCmd.Flags().StringVar(&cmd.bundlePath, "bundle", "", "Also write all scripts as a single bundled Lua file")

	return cobraCmd
}

// Run executes the analyze command.
func (c *AnalyzeCommand) Run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	maxDeps := c.maxDeps
	if maxDeps <= 0 {
		maxDeps = cfg.MaxDependencies
	}

	store := openLog(cfg)
	entry := args[0]

	analyzer := luadep.NewAnalyzer(
		luadep.WithLogger(slog.Default()),
		luadep.WithMaxDependencies(maxDeps),
	)

	manifest, err := analyzer.Analyze(cmd.Context(), entry)
	if err != nil {
		record(store, buildlog.LevelError, "analyze", fmt.Sprintf("%s: %v", entry, err))

		return err
	}

	record(store, buildlog.LevelSuccess, "analyze",
		fmt.Sprintf("%s: %d scripts, %d libraries", entry, len(manifest.Scripts), len(manifest.Libraries)))

	if c.bundlePath != "" {
		if err := c.writeBundle(manifest, entry); err != nil {
			return err
		}
	}

	return c.render(cmd, manifest)
}

func (c *AnalyzeCommand) render(cmd *cobra.Command, manifest *luadep.Manifest) error {
	out := cmd.OutOrStdout()

	switch c.format {
	case FormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")

		return encoder.Encode(manifest)
	case FormatYAML:
		encoder := yaml.NewEncoder(out)
		defer encoder.Close()

		return encoder.Encode(manifest)
	default:
		if c.detail {
			return renderDetailTable(out, manifest)
		}

		for _, script := range manifest.Scripts {
			fmt.Fprintln(out, script)
		}

		for _, library := range manifest.Libraries {
			fmt.Fprintln(out, library)
		}

		return nil
	}
}

func (c *AnalyzeCommand) writeBundle(manifest *luadep.Manifest, entry string) error {
	abs, err := filepath.Abs(entry)
	if err != nil {
		return fmt.Errorf("resolve entry: %w", err)
	}

	if err := bundle.WriteFile(c.bundlePath, manifest.Scripts, manifest.Names, abs); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}

	return nil
}

// renderDetailTable prints one row per resolved file with its kind and size.
func renderDetailTable(out io.Writer, manifest *luadep.Manifest) error {
	writer := table.NewWriter()
	writer.SetOutputMirror(out)
	writer.AppendHeader(table.Row{"#", "Kind", "Path", "Size"})

	row := 0
	appendFile := func(kind, path string) {
		row++
		size := "?"
		if info, err := os.Stat(path); err == nil {
			size = humanize.Bytes(uint64(info.Size()))
		}

		writer.AppendRow(table.Row{row, kind, path, size})
	}

	for _, script := range manifest.Scripts {
		appendFile("source", script)
	}

	for _, library := range manifest.Libraries {
		appendFile("native", library)
	}

	writer.Render()

	return nil
}
