package luadep

import (
	"fmt"
	"strings"
)

// Error kind discriminants. Library callers can switch on Kind() without
// resorting to string matching on messages.
const (
	KindScriptMissing      = "script_missing"
	KindDynamicRequire     = "dynamic_require"
	KindModuleNotFound     = "module_not_found"
	KindCircularDependency = "circular_dependency"
	KindDependencyLimit    = "dependency_limit"
)

// ScriptMissingError reports an entry script or resolved dependency that
// could not be read from disk.
type ScriptMissingError struct {
	Path string
}

func (e *ScriptMissingError) Error() string {
	return fmt.Sprintf("luadep: script not found or unreadable: %s", e.Path)
}

// Kind returns the error discriminant.
func (e *ScriptMissingError) Kind() string { return KindScriptMissing }

// DynamicRequireError reports a require call whose module argument cannot be
// determined statically: a variable, a concatenation, a nested call, or a
// malformed (unterminated) literal.
type DynamicRequireError struct {
	File      string
	Line      int
	Statement string
}

func (e *DynamicRequireError) Error() string {
	return fmt.Sprintf("luadep: dynamic require at %s:%d: %s", e.File, e.Line, e.Statement)
}

// Kind returns the error discriminant.
func (e *DynamicRequireError) Kind() string { return KindDynamicRequire }

// ModuleNotFoundError reports a require reference that matched no search
// template or extension. Tried holds every filesystem location that was
// checked, in the order it was checked.
type ModuleNotFoundError struct {
	Module   string
	FromFile string
	Tried    []string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("luadep: module %q required by %s not found (tried %d locations: %s)",
		e.Module, e.FromFile, len(e.Tried), strings.Join(e.Tried, ", "))
}

// Kind returns the error discriminant.
func (e *ModuleNotFoundError) Kind() string { return KindModuleNotFound }

// CircularDependencyError reports a require cycle. Chain lists the scripts
// from the first occurrence of the repeated file through the point where it
// was required again, with the repeated file closing the chain.
type CircularDependencyError struct {
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("luadep: circular dependency: %s", strings.Join(e.Chain, " -> "))
}

// Kind returns the error discriminant.
func (e *CircularDependencyError) Kind() string { return KindCircularDependency }

// DependencyLimitError reports that the number of distinct dependencies
// exceeded the configured cap. The cap bounds the work the analyzer performs,
// so the error is raised before the offending file is even read.
type DependencyLimitError struct {
	Count int
	Limit int
}

func (e *DependencyLimitError) Error() string {
	return fmt.Sprintf("luadep: dependency count %d exceeds limit %d", e.Count, e.Limit)
}

// Kind returns the error discriminant.
func (e *DependencyLimitError) Kind() string { return KindDependencyLimit }
