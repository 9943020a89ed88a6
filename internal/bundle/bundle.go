// Package bundle merges an analyzed script set into one self-contained Lua
// file. Dependency sources are embedded in a _MODULES table keyed by module
// name, a _require shim serves them to the entry code, and anything not
// embedded falls through to the real require.
package bundle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// header opens every generated bundle.
const header = "-- bundled by luapack; do not edit\n"

// runtime is the embedded loader. It shadows require inside the bundle chunk
// so embedded modules load from _MODULES, with memoization matching Lua's
// package.loaded behavior.
const runtime = `local _MODULES = {}
local _LOADED = {}
local _require = require
local function require(name)
	local loaded = _LOADED[name]
	if loaded ~= nil then
		return loaded
	end
	local chunk = _MODULES[name]
	if chunk == nil then
		return _require(name)
	end
	local result = chunk(name)
	if result == nil then
		result = true
	end
	_LOADED[name] = result
	return result
end
`

// Write emits the bundle for the given dependency scripts and entry script
// to the writer. Scripts must be in dependency order, the entry excluded.
// Each chunk is registered under every require reference recorded for it in
// names, so the shim serves it under the exact strings the sources ask for;
// a script with no recorded reference (a manual include) is keyed by its
// path relative to the entry's directory.
func Write(w io.Writer, scripts []string, names map[string][]string, entry string) error {
	entryDir := filepath.Dir(entry)

	if _, err := io.WriteString(w, header+runtime); err != nil {
		return fmt.Errorf("write bundle runtime: %w", err)
	}

	for _, script := range scripts {
		src, err := os.ReadFile(script)
		if err != nil {
			return fmt.Errorf("read script %s: %w", script, err)
		}

		refs := names[script]
		if len(refs) == 0 {
			refs = []string{ModuleName(script, entryDir)}
		}

		if _, err := fmt.Fprintf(w, "\n_MODULES[%q] = function(...)\n%s\nend\n", refs[0], src); err != nil {
			return fmt.Errorf("embed %s: %w", script, err)
		}

		for _, alias := range refs[1:] {
			if _, err := fmt.Fprintf(w, "_MODULES[%q] = _MODULES[%q]\n", alias, refs[0]); err != nil {
				return fmt.Errorf("embed %s: %w", script, err)
			}
		}
	}

	entrySrc, err := os.ReadFile(entry)
	if err != nil {
		return fmt.Errorf("read entry %s: %w", entry, err)
	}

	if _, err := fmt.Fprintf(w, "\n-- entry: %s\n%s", filepath.Base(entry), entrySrc); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}

	return nil
}

// WriteFile emits the bundle to a file, creating parent directories.
func WriteFile(path string, scripts []string, names map[string][]string, entry string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}

	if err := Write(file, scripts, names, entry); err != nil {
		file.Close()

		return err
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close bundle: %w", err)
	}

	return nil
}

// ModuleName derives a dotted module name for a script that carries no
// recorded require reference: relative to the entry directory, extension
// stripped, path separators to dots, with the init-file convention collapsed
// to its directory. Scripts outside the entry tree fall back to their base
// name.
func ModuleName(script, entryDir string) string {
	rel, err := filepath.Rel(entryDir, script)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(script)
	}

	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	rel = strings.TrimSuffix(rel, string(filepath.Separator)+"init")

	return strings.ReplaceAll(rel, string(filepath.Separator), ".")
}
