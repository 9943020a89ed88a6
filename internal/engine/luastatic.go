package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Luastatic wraps the luastatic tool, which compiles a Lua entry plus its
// dependencies into a C program and links it against the Lua runtime.
type Luastatic struct {
	binary string
}

// NewLuastatic returns the luastatic engine.
func NewLuastatic() *Luastatic {
	return &Luastatic{binary: "luastatic"}
}

// Name implements Engine.
func (e *Luastatic) Name() string { return "luastatic" }

// Description implements Engine.
func (e *Luastatic) Description() string {
	return "compile via luastatic and the system C toolchain"
}

// Available implements Engine.
func (e *Luastatic) Available() bool {
	_, err := exec.LookPath(e.binary)

	return err == nil
}

// Build implements Engine. luastatic derives its output name from the entry
// script, so the build runs in the output directory and the produced binary
// is renamed when a different output path was requested.
func (e *Luastatic) Build(ctx context.Context, plan *Plan) error {
	if !e.Available() {
		return fmt.Errorf("%w: %s", ErrEngineUnavailable, e.Name())
	}

	args := append([]string{plan.Entry}, plan.Scripts...)
	args = append(args, plan.Libraries...)

	outDir := filepath.Dir(plan.Output)

	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Dir = outDir

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("luastatic failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	produced := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(plan.Entry), filepath.Ext(plan.Entry)))
	if produced == plan.Output {
		return nil
	}

	if err := os.Rename(produced, plan.Output); err != nil {
		return fmt.Errorf("move luastatic output: %w", err)
	}

	return nil
}
