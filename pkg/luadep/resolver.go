package luadep

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// ModuleKind classifies a resolved module reference.
type ModuleKind int

const (
	// KindBuiltin marks a module the Lua runtime provides itself; it has
	// no filesystem artifact.
	KindBuiltin ModuleKind = iota
	// KindSource marks a Lua source file that is analyzed further.
	KindSource
	// KindNative marks a precompiled library that is forwarded to the
	// build untouched.
	KindNative
)

// ResolvedModule is the outcome of resolving one textual require reference.
type ResolvedModule struct {
	Kind ModuleKind
	// Path is the absolute artifact path; empty for KindBuiltin.
	Path string
}

// luaBuiltins are the standard library module names resolved by the runtime
// with no file lookup. Checked against the leading dot-segment of a
// reference, so "string.format" style references short-circuit too.
var luaBuiltins = map[string]struct{}{
	"_G":        {},
	"bit32":     {},
	"coroutine": {},
	"debug":     {},
	"io":        {},
	"math":      {},
	"os":        {},
	"package":   {},
	"string":    {},
	"table":     {},
	"utf8":      {},
}

// resolver maps textual require references to filesystem artifacts. The
// search templates are snapshotted once at construction and never re-read
// mid-analysis.
type resolver struct {
	paths searchPaths
	stat  func(string) (os.FileInfo, error)
}

// newResolver snapshots the search-path state for one analysis rooted at
// baseDir (the entry script's directory).
func newResolver(ctx context.Context, baseDir string, env func(string) string, discoverer PathDiscoverer) *resolver {
	return &resolver{
		paths: buildSearchPaths(ctx, baseDir, env, discoverer),
		stat:  os.Stat,
	}
}

// Resolve maps one require reference to its artifact. fromFile is the script
// the reference appeared in; relative references resolve against its
// directory. A reference matching nothing yields a ModuleNotFoundError
// listing every location tried.
func (r *resolver) Resolve(module, fromFile string) (ResolvedModule, error) {
	if segment, _, _ := strings.Cut(module, "."); isBuiltin(segment) {
		return ResolvedModule{Kind: KindBuiltin}, nil
	}

	if isRelativeRef(module) {
		return r.resolveRelative(module, fromFile)
	}

	return r.resolveDotted(module, fromFile)
}

func isBuiltin(name string) bool {
	_, ok := luaBuiltins[name]

	return ok
}

// isRelativeRef reports whether the reference starts with an explicit
// current- or parent-directory marker.
func isRelativeRef(module string) bool {
	return strings.HasPrefix(module, "./") || strings.HasPrefix(module, "../") ||
		strings.HasPrefix(module, ".\\") || strings.HasPrefix(module, "..\\")
}

// resolveRelative resolves "./x" and "../x" style references against the
// requesting file's own directory. Source shapes are exhausted before any
// native extension is tried.
func (r *resolver) resolveRelative(module, fromFile string) (ResolvedModule, error) {
	base := filepath.Join(filepath.Dir(fromFile), filepath.FromSlash(module))

	var tried []string

	for _, candidate := range relativeSourceCandidates(base, module) {
		if r.fileExists(candidate) {
			return ResolvedModule{Kind: KindSource, Path: absPath(candidate)}, nil
		}

		tried = append(tried, candidate)
	}

	for _, ext := range nativeExtensions() {
		for _, candidate := range []string{base + ext, filepath.Join(base, initFile+ext)} {
			if r.fileExists(candidate) {
				return ResolvedModule{Kind: KindNative, Path: absPath(candidate)}, nil
			}

			tried = append(tried, candidate)
		}
	}

	return ResolvedModule{}, &ModuleNotFoundError{Module: module, FromFile: fromFile, Tried: tried}
}

// relativeSourceCandidates lists the source shapes for a relative reference.
// A reference already carrying the source extension is tried as written.
func relativeSourceCandidates(base, module string) []string {
	if strings.HasSuffix(module, sourceExt) {
		return []string{base}
	}

	return []string{base + sourceExt, filepath.Join(base, initFile+sourceExt)}
}

// resolveDotted resolves a dotted module reference through the snapshotted
// search templates: every source template is exhausted before the first
// native template is tried.
func (r *resolver) resolveDotted(module, fromFile string) (ResolvedModule, error) {
	slashed := strings.ReplaceAll(module, ".", string(filepath.Separator))

	var tried []string

	for _, template := range r.paths.source {
		candidate := strings.ReplaceAll(template, "?", slashed)
		if r.fileExists(candidate) {
			return ResolvedModule{Kind: KindSource, Path: absPath(candidate)}, nil
		}

		tried = append(tried, candidate)
	}

	for _, template := range r.paths.native {
		candidate := strings.ReplaceAll(template, "?", slashed)
		if r.fileExists(candidate) {
			return ResolvedModule{Kind: KindNative, Path: absPath(candidate)}, nil
		}

		tried = append(tried, candidate)
	}

	return ResolvedModule{}, &ModuleNotFoundError{Module: module, FromFile: fromFile, Tried: tried}
}

func (r *resolver) fileExists(path string) bool {
	info, err := r.stat(path)

	return err == nil && !info.IsDir()
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return abs
}
