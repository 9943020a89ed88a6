// Package luadep statically resolves the require graph of a Lua script tree.
//
// Starting from an entry script, it lexes each source file for require
// call-sites (ignoring strings and comments), maps every reference to a
// builtin, a source file, or a native library, and flattens the resulting
// acyclic graph into the build order an external compiler consumes:
// dependencies first, entry last, natives on the side.
package luadep

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultMaxDependencies caps the distinct dependency count of one analysis.
const DefaultMaxDependencies = 36

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMaxDependencies sets the dependency cap. Non-positive values keep the
// default.
func WithMaxDependencies(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxDeps = n
		}
	}
}

// WithDiscoverer replaces the external search-path discovery capability.
// Tests substitute deterministic stubs; nil disables discovery entirely.
func WithDiscoverer(d PathDiscoverer) Option {
	return func(a *Analyzer) { a.discoverer = d }
}

// WithLogger sets the structured logger for analysis tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithEnv replaces the environment snapshot source. Tests use it to pin
// LUA_PATH/LUA_CPATH without touching the process environment.
func WithEnv(env func(string) string) Option {
	return func(a *Analyzer) { a.env = env }
}

// Analyzer runs static dependency analyses. The Analyzer itself only holds
// configuration: every Analyze call constructs a fresh resolver and builder,
// so no state leaks between invocations and concurrent analyses of different
// entries need independent calls, not independent Analyzers.
type Analyzer struct {
	maxDeps    int
	discoverer PathDiscoverer
	logger     *slog.Logger
	env        func(string) string
	readFile   func(string) ([]byte, error)
}

// NewAnalyzer returns an Analyzer with the default dependency cap and
// luarocks-backed search-path discovery.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		maxDeps:    DefaultMaxDependencies,
		discoverer: &LuaRocksDiscoverer{},
		logger:     slog.New(slog.DiscardHandler),
		env:        envLookup,
		readFile:   os.ReadFile,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Analyze resolves every transitive dependency of the entry script and
// returns the ordered manifest. The first lexing, resolution, cycle, or cap
// error aborts the whole analysis; no partial manifest is ever returned.
func (a *Analyzer) Analyze(ctx context.Context, entryPath string) (*Manifest, error) {
	entry, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, &ScriptMissingError{Path: entryPath}
	}

	if info, statErr := os.Stat(entry); statErr != nil || info.IsDir() {
		return nil, &ScriptMissingError{Path: entry}
	}

	res := newResolver(ctx, filepath.Dir(entry), a.env, a.discoverer)

	graph, natives, err := newBuilder(res, a.readFile, a.logger, a.maxDeps).build(entry)
	if err != nil {
		return nil, err
	}

	scripts := buildOrder(graph)
	a.logger.Debug("analysis complete",
		"entry", entry, "scripts", len(scripts), "libraries", len(natives))

	return &Manifest{Scripts: scripts, Libraries: natives, Names: graph.Names}, nil
}
