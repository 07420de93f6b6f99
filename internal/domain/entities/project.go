// Package entities defines core domain models and data structures.
package entities

import "sort"

// Project describes the packaged product and its build configuration,
// loaded from the project definition file.
type Project struct {
	Name         string
	Version      string
	Binary       string
	Scripts      []string
	CatalogDir   string
	Toolchain    ToolchainConfig
	Platforms    map[string]PlatformTarget
	Dependencies []DependencyConstraint
	Signing      SigningConfig

	// Dir is the directory the project definition was loaded from.
	// Relative paths (scripts, catalog) resolve against it.
	Dir string
}

// ToolchainConfig describes how to invoke the compilation toolchain.
// Args may contain the placeholders {target}, {work_dir} and {binary},
// expanded per build job.
type ToolchainConfig struct {
	Command     string
	Args        []string
	OfflineArgs []string
	BinaryPath  string // where the compiled binary lands, same placeholders
}

// PlatformTarget maps a platform identifier to its toolchain target.
type PlatformTarget struct {
	Target string // toolchain target triple, e.g. x86_64-unknown-linux-gnu
}

// DependencyConstraint is one declared dependency edge: a name plus a
// version constraint. A constraint is either exact ("1.0.86") or a
// prefix range ("1.0" accepts any 1.0.x).
type DependencyConstraint struct {
	Name       string
	Constraint string
}

// SigningConfig holds the optional release-signing key location.
type SigningConfig struct {
	KeyFile string
}

// PlatformNames returns the configured platform identifiers in sorted order.
func (p *Project) PlatformNames() []string {
	names := make([]string, 0, len(p.Platforms))
	for name := range p.Platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
