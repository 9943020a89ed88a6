// Package engine drives the external compilers that turn an analyzed Lua
// script set into a standalone executable. Each supported toolchain is an
// Engine; a Registry holds them in a fixed presentation order and an
// Orchestrator assembles build plans and dispatches them.
package engine

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownEngine reports a request for an engine name that is not
	// registered.
	ErrUnknownEngine = errors.New("engine: unknown engine")
	// ErrEngineUnavailable reports an engine whose toolchain is not
	// installed or bundled on this machine.
	ErrEngineUnavailable = errors.New("engine: engine unavailable")
)

// Plan is the finalized input to one engine invocation: the entry script,
// its dependencies in build order, and the native libraries to link. Names
// carries the require references each script resolved from; engines that
// bundle use it to register chunks under the names the scripts require.
type Plan struct {
	Entry     string
	Scripts   []string
	Libraries []string
	Names     map[string][]string
	Output    string
}

// Engine is one executable-producing toolchain.
type Engine interface {
	// Name is the stable identifier used on the command line.
	Name() string
	// Description is a one-line summary for listings.
	Description() string
	// Available reports whether the toolchain can run on this machine.
	Available() bool
	// Build produces the executable described by the plan.
	Build(ctx context.Context, plan *Plan) error
}

// Registry holds engines in registration order.
type Registry struct {
	engines []Engine
	byName  map[string]Engine
}

// NewRegistry builds a registry from the given engines.
func NewRegistry(engines ...Engine) *Registry {
	reg := &Registry{byName: make(map[string]Engine, len(engines))}
	for _, eng := range engines {
		reg.engines = append(reg.engines, eng)
		reg.byName[eng.Name()] = eng
	}

	return reg
}

// DefaultRegistry lists every supported engine. toolDir is where bundled
// srlua variants are looked up; empty disables them gracefully (they simply
// report unavailable).
func DefaultRegistry(toolDir string) *Registry {
	return NewRegistry(
		NewLuastatic(),
		NewSystemSrlua(),
		NewBundledSrlua("winsrlua515", "srlua 5.1.5 for Windows", toolDir),
		NewBundledSrlua("winsrlua548", "srlua 5.4.8 for Windows", toolDir),
		NewBundledSrlua("linsrlua515", "srlua 5.1.5 for Linux", toolDir),
		NewBundledSrlua("linsrlua548", "srlua 5.4.8 for Linux", toolDir),
	)
}

// Lookup returns the named engine.
func (r *Registry) Lookup(name string) (Engine, error) {
	eng, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}

	return eng, nil
}

// List returns all engines in registration order.
func (r *Registry) List() []Engine {
	return r.engines
}

// Available returns the names of every engine usable on this machine, in
// registration order.
func (r *Registry) Available() []string {
	var names []string

	for _, eng := range r.engines {
		if eng.Available() {
			names = append(names, eng.Name())
		}
	}

	return names
}
