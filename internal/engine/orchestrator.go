package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/luapack/luapack/pkg/luadep"
)

// BuildRequest describes one requested build.
type BuildRequest struct {
	// Entry is the script to package.
	Entry string
	// EngineName selects the toolchain.
	EngineName string
	// Output is the executable path; empty derives it from the entry.
	Output string
	// ManualInclude are scripts appended to the analyzed set. Each must
	// exist; absent paths fail the build before any engine runs.
	ManualInclude []string
	// ManualExclude are scripts removed from the analyzed set.
	ManualExclude []string
	// SkipAnalysis disables dependency analysis entirely; the script set
	// is then exactly ManualInclude.
	SkipAnalysis bool
	// MaxDependencies caps the analysis; zero keeps the default.
	MaxDependencies int
}

// Orchestrator assembles build plans from analysis output and manual
// adjustments, then hands them to the selected engine. The analyzed ordering
// is forwarded to engines unmodified.
type Orchestrator struct {
	registry   *Registry
	logger     *slog.Logger
	discoverer luadep.PathDiscoverer
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithDiscoverer overrides search-path discovery for analyses.
func WithDiscoverer(d luadep.PathDiscoverer) OrchestratorOption {
	return func(o *Orchestrator) { o.discoverer = d }
}

// NewOrchestrator returns an orchestrator dispatching to the given registry.
func NewOrchestrator(registry *Registry, opts ...OrchestratorOption) *Orchestrator {
	orch := &Orchestrator{
		registry:   registry,
		logger:     slog.New(slog.DiscardHandler),
		discoverer: &luadep.LuaRocksDiscoverer{},
	}

	for _, opt := range opts {
		opt(orch)
	}

	return orch
}

// Plan runs analysis (unless skipped) and applies the manual include and
// exclude lists, returning the finalized plan.
func (o *Orchestrator) Plan(ctx context.Context, req BuildRequest) (*Plan, error) {
	entry, err := filepath.Abs(req.Entry)
	if err != nil {
		return nil, &luadep.ScriptMissingError{Path: req.Entry}
	}

	if info, statErr := os.Stat(entry); statErr != nil || info.IsDir() {
		return nil, &luadep.ScriptMissingError{Path: entry}
	}

	plan := &Plan{Entry: entry, Output: req.Output}
	if plan.Output == "" {
		plan.Output = defaultOutput(entry)
	}

	if !req.SkipAnalysis {
		opts := []luadep.Option{
			luadep.WithLogger(o.logger),
			luadep.WithDiscoverer(o.discoverer),
			luadep.WithMaxDependencies(req.MaxDependencies),
		}

		manifest, analyzeErr := luadep.NewAnalyzer(opts...).Analyze(ctx, entry)
		if analyzeErr != nil {
			return nil, analyzeErr
		}

		plan.Scripts = manifest.Scripts
		plan.Libraries = manifest.Libraries
		plan.Names = manifest.Names
	}

	if err := applyManualIncludes(plan, req.ManualInclude); err != nil {
		return nil, err
	}

	applyManualExcludes(plan, req.ManualExclude)

	o.logger.Info("build plan assembled",
		"entry", entry, "scripts", len(plan.Scripts), "libraries", len(plan.Libraries))

	return plan, nil
}

// Build plans and executes the request, returning the produced executable
// path.
func (o *Orchestrator) Build(ctx context.Context, req BuildRequest) (string, error) {
	eng, err := o.registry.Lookup(req.EngineName)
	if err != nil {
		return "", err
	}

	plan, err := o.Plan(ctx, req)
	if err != nil {
		return "", err
	}

	if err := eng.Build(ctx, plan); err != nil {
		return "", fmt.Errorf("engine %s: %w", eng.Name(), err)
	}

	return plan.Output, nil
}

// applyManualIncludes appends user-supplied scripts not already present,
// deduplicated by resolved absolute path. A missing include fails fast.
func applyManualIncludes(plan *Plan, includes []string) error {
	for _, include := range includes {
		abs, err := filepath.Abs(include)
		if err != nil {
			return &luadep.ScriptMissingError{Path: include}
		}

		if _, statErr := os.Stat(abs); statErr != nil {
			return &luadep.ScriptMissingError{Path: abs}
		}

		if !slices.Contains(plan.Scripts, abs) {
			plan.Scripts = append(plan.Scripts, abs)
		}
	}

	return nil
}

func applyManualExcludes(plan *Plan, excludes []string) {
	for _, exclude := range excludes {
		abs, err := filepath.Abs(exclude)
		if err != nil {
			continue
		}

		plan.Scripts = slices.DeleteFunc(plan.Scripts, func(script string) bool {
			return script == abs
		})
	}
}

// defaultOutput derives the executable path from the entry script.
func defaultOutput(entry string) string {
	output := strings.TrimSuffix(entry, filepath.Ext(entry))
	if runtime.GOOS == "windows" {
		output += ".exe"
	}

	return output
}
