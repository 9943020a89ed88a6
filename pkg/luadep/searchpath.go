package luadep

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// luaVersions are the interpreter versions whose conventional install
// subdirectories are probed, newest first.
var luaVersions = []string{"5.4", "5.3", "5.2", "5.1"}

// sourceExt is the Lua source file extension.
const sourceExt = ".lua"

// initFile is the package-as-directory convention file name, without
// extension.
const initFile = "init"

// defaultDiscoverTimeout bounds the best-effort luarocks invocation.
const defaultDiscoverTimeout = 3 * time.Second

// nativeExtensions returns the native-artifact extensions in platform order:
// the host's own dynamic-library format first, the remaining formats after
// it, static archives last.
func nativeExtensions() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{".dll", ".so", ".dylib", ".a"}
	case "darwin":
		return []string{".dylib", ".so", ".dll", ".a"}
	default:
		return []string{".so", ".dylib", ".dll", ".a"}
	}
}

// DiscoveredPaths holds search-path templates contributed by an external
// discovery source. Each template contains a "?" placeholder in Lua
// package.path grammar.
type DiscoveredPaths struct {
	Source []string
	Native []string
}

// PathDiscoverer contributes extra search-path templates, typically by
// querying the host's package manager. Discovery is best-effort: an error
// reduces coverage but never fails an analysis.
type PathDiscoverer interface {
	Discover(ctx context.Context) (DiscoveredPaths, error)
}

// LuaRocksDiscoverer harvests search templates from the luarocks tool.
type LuaRocksDiscoverer struct {
	// Timeout bounds each luarocks invocation. Zero means the default.
	Timeout time.Duration
}

// Discover runs "luarocks path" for source and native templates. A missing
// tool, a non-zero exit, or a timeout yields an error the caller swallows.
func (d *LuaRocksDiscoverer) Discover(ctx context.Context) (DiscoveredPaths, error) {
	timeout := d.Timeout
	if timeout == 0 {
		timeout = defaultDiscoverTimeout
	}

	source, err := runLuaRocksPath(ctx, timeout, "--lr-path")
	if err != nil {
		return DiscoveredPaths{}, err
	}

	// Native discovery failing after source succeeded still counts as
	// partial coverage.
	native, err := runLuaRocksPath(ctx, timeout, "--lr-cpath")
	if err != nil {
		return DiscoveredPaths{Source: source}, nil
	}

	return DiscoveredPaths{Source: source, Native: native}, nil
}

func runLuaRocksPath(ctx context.Context, timeout time.Duration, flag string) ([]string, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(runCtx, "luarocks", "path", flag).Output()
	if err != nil {
		return nil, err
	}

	return splitPathTemplates(string(out)), nil
}

// splitPathTemplates splits a Lua package.path style string into its
// placeholder templates. Empty entries (the ";;" default-path marker) carry
// no concrete location and are dropped.
func splitPathTemplates(raw string) []string {
	var templates []string

	for _, entry := range strings.Split(strings.TrimSpace(raw), ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" || !strings.Contains(entry, "?") {
			continue
		}

		templates = append(templates, entry)
	}

	return templates
}

// searchPaths is the immutable, priority-ordered template set a resolver is
// constructed with. Templates are full file-shape patterns containing "?".
type searchPaths struct {
	source []string
	native []string
}

// buildSearchPaths assembles the template set once, at resolver construction:
// project-local conventional directories first, then the process environment
// (LUA_PATH/LUA_CPATH), then best-effort external discovery. The order is
// fixed by construction and never depends on directory listings.
func buildSearchPaths(ctx context.Context, baseDir string, env func(string) string, discoverer PathDiscoverer) searchPaths {
	var paths searchPaths

	for _, dir := range projectSourceDirs(baseDir) {
		paths.source = append(paths.source,
			filepath.Join(dir, "?"+sourceExt),
			filepath.Join(dir, "?", initFile+sourceExt),
		)
	}

	for _, dir := range projectNativeDirs(baseDir) {
		for _, ext := range nativeExtensions() {
			paths.native = append(paths.native,
				filepath.Join(dir, "?"+ext),
				filepath.Join(dir, "?", initFile+ext),
			)
		}
	}

	paths.source = append(paths.source, splitPathTemplates(env("LUA_PATH"))...)
	paths.native = append(paths.native, splitPathTemplates(env("LUA_CPATH"))...)

	if discoverer != nil {
		discovered, err := discoverer.Discover(ctx)
		if err == nil {
			paths.source = append(paths.source, discovered.Source...)
			paths.native = append(paths.native, discovered.Native...)
		}
	}

	return paths
}

// projectSourceDirs lists the conventional project subdirectories searched
// for Lua sources before any environment-derived location.
func projectSourceDirs(baseDir string) []string {
	dirs := []string{
		baseDir,
		filepath.Join(baseDir, "src"),
		filepath.Join(baseDir, "lib"),
	}

	for _, version := range luaVersions {
		dirs = append(dirs, filepath.Join(baseDir, "lua_modules", "share", "lua", version))
	}

	return dirs
}

// projectNativeDirs lists the conventional project subdirectories searched
// for native artifacts. LuaRocks project trees keep compiled modules under
// lib/lua rather than share/lua.
func projectNativeDirs(baseDir string) []string {
	dirs := []string{
		baseDir,
		filepath.Join(baseDir, "lib"),
	}

	for _, version := range luaVersions {
		dirs = append(dirs, filepath.Join(baseDir, "lua_modules", "lib", "lua", version))
	}

	return dirs
}

// envLookup is the default environment snapshot source.
func envLookup(key string) string {
	return os.Getenv(key)
}
