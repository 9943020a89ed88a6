package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/luapack/luapack/internal/bundle"
)

// execMode is the permission set for produced executables.
const execMode = 0o755

// srlua glues a Lua payload onto a stub interpreter. Since the stub loads a
// single script, the analyzed script set is first merged into one payload by
// the bundler, then glued.
type srlua struct {
	name        string
	description string
	srluaPath   string
	gluePath    string
	lookup      bool // resolve binaries via PATH instead of fixed paths
}

// NewSystemSrlua returns the engine backed by srlua and glue binaries found
// on PATH.
func NewSystemSrlua() Engine {
	return &srlua{
		name:        "srlua",
		description: "glue onto the system srlua stub",
		srluaPath:   "srlua",
		gluePath:    "glue",
		lookup:      true,
	}
}

// NewBundledSrlua returns an engine backed by a prebuilt srlua/glue pair
// shipped under toolDir/<name>/.
func NewBundledSrlua(name, description, toolDir string) Engine {
	eng := &srlua{name: name, description: description}
	if toolDir != "" {
		suffix := ""
		if strings.HasPrefix(name, "win") {
			suffix = ".exe"
		}

		eng.srluaPath = filepath.Join(toolDir, name, "srlua"+suffix)
		eng.gluePath = filepath.Join(toolDir, name, "glue"+suffix)
	}

	return eng
}

// Name implements Engine.
func (e *srlua) Name() string { return e.name }

// Description implements Engine.
func (e *srlua) Description() string { return e.description }

// Available implements Engine.
func (e *srlua) Available() bool {
	if e.srluaPath == "" {
		return false
	}

	// Windows stubs only glue on Windows and vice versa.
	if strings.HasPrefix(e.name, "win") && runtime.GOOS != "windows" {
		return false
	}

	if strings.HasPrefix(e.name, "lin") && runtime.GOOS == "windows" {
		return false
	}

	if e.lookup {
		_, srluaErr := exec.LookPath(e.srluaPath)
		_, glueErr := exec.LookPath(e.gluePath)

		return srluaErr == nil && glueErr == nil
	}

	_, srluaErr := os.Stat(e.srluaPath)
	_, glueErr := os.Stat(e.gluePath)

	return srluaErr == nil && glueErr == nil
}

// Build implements Engine.
func (e *srlua) Build(ctx context.Context, plan *Plan) error {
	if !e.Available() {
		return fmt.Errorf("%w: %s", ErrEngineUnavailable, e.name)
	}

	if len(plan.Libraries) > 0 {
		// srlua stubs carry no linker: native modules must be present
		// at runtime instead of being glued in.
		return fmt.Errorf("engine %s cannot embed native libraries (%d requested)", e.name, len(plan.Libraries))
	}

	payload, err := payloadPath()
	if err != nil {
		return fmt.Errorf("create payload: %w", err)
	}
	defer os.Remove(payload)

	if err := bundle.WriteFile(payload, plan.Scripts, plan.Names, plan.Entry); err != nil {
		return fmt.Errorf("bundle payload: %w", err)
	}

	glueCmd := exec.CommandContext(ctx, e.gluePath, e.srluaPath, payload, plan.Output)
	if out, err := glueCmd.CombinedOutput(); err != nil {
		return fmt.Errorf("glue failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	if err := os.Chmod(plan.Output, execMode); err != nil {
		return fmt.Errorf("mark output executable: %w", err)
	}

	return nil
}

// payloadPath reserves a unique temp file for the bundled payload, so
// concurrent builds within one process never clobber each other.
func payloadPath() (string, error) {
	file, err := os.CreateTemp("", "luapack-*.lua")
	if err != nil {
		return "", err
	}

	if err := file.Close(); err != nil {
		return "", err
	}

	return file.Name(), nil
}
