// Package version exposes build metadata injected at link time.
package version

// These are overridden via -ldflags at release builds:
//
//	-X github.com/luapack/luapack/pkg/version.Version=v1.0.0
var (
	// Version is the semantic version of the binary.
	Version = "dev"
	// Commit is the Git commit hash the binary was built from.
	Commit = "none"
	// Date is the build timestamp.
	Date = "unknown"
)
