// Package yaml provides YAML-based project configuration, lockfile and
// dependency manifest parsing.
package yaml

import (
	"fmt"
	"os"

	"github.com/caravel-build/caravel/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlProject represents the raw project definition structure
type yamlProject struct {
	Name         string                  `yaml:"name"`
	Version      string                  `yaml:"version"`
	Binary       string                  `yaml:"binary"`
	Scripts      []string                `yaml:"scripts"`
	Catalog      string                  `yaml:"catalog"`
	Toolchain    yamlToolchain           `yaml:"toolchain"`
	Platforms    map[string]yamlPlatform `yaml:"platforms"`
	Dependencies []yamlDependency        `yaml:"dependencies"`
	Signing      yamlSigning             `yaml:"signing"`
}

type yamlToolchain struct {
	Command     string   `yaml:"command"`
	Args        []string `yaml:"args"`
	OfflineArgs []string `yaml:"offline_args"`
	BinaryPath  string   `yaml:"binary_path"`
}

type yamlPlatform struct {
	Target string `yaml:"target"`
}

type yamlDependency struct {
	Name       string `yaml:"name"`
	Constraint string `yaml:"constraint"`
}

type yamlSigning struct {
	KeyFile string `yaml:"key_file"`
}

// ProjectParser parses YAML project definition files
type ProjectParser struct{}

// NewProjectParser creates a new YAML parser
func NewProjectParser() *ProjectParser {
	return &ProjectParser{}
}

// ParseFile parses a YAML project file into a Project entity
func (p *ProjectParser) ParseFile(filePath string) (*entities.Project, error) {
	//nolint:gosec // G304: filePath is the project definition location
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return p.Parse(data)
}

// Parse parses YAML bytes into a Project entity
func (p *ProjectParser) Parse(data []byte) (*entities.Project, error) {
	var raw yamlProject
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if raw.Name == "" {
		return nil, fmt.Errorf("project must have a name")
	}
	if raw.Version == "" {
		return nil, fmt.Errorf("project %s must declare a version", raw.Name)
	}
	if raw.Binary == "" {
		return nil, fmt.Errorf("project %s must name its binary", raw.Name)
	}
	if len(raw.Platforms) == 0 {
		return nil, fmt.Errorf("project %s declares no target platforms", raw.Name)
	}

	platforms := make(map[string]entities.PlatformTarget, len(raw.Platforms))
	for name, pc := range raw.Platforms {
		if pc.Target == "" {
			return nil, fmt.Errorf("platform %s has no toolchain target", name)
		}
		platforms[name] = entities.PlatformTarget{Target: pc.Target}
	}

	deps := make([]entities.DependencyConstraint, 0, len(raw.Dependencies))
	for _, d := range raw.Dependencies {
		if d.Name == "" {
			return nil, fmt.Errorf("dependency entries must have a name")
		}
		deps = append(deps, entities.DependencyConstraint{Name: d.Name, Constraint: d.Constraint})
	}

	catalog := raw.Catalog
	if catalog == "" {
		catalog = "catalog"
	}

	return &entities.Project{
		Name:       raw.Name,
		Version:    raw.Version,
		Binary:     raw.Binary,
		Scripts:    raw.Scripts,
		CatalogDir: catalog,
		Toolchain: entities.ToolchainConfig{
			Command:     raw.Toolchain.Command,
			Args:        raw.Toolchain.Args,
			OfflineArgs: raw.Toolchain.OfflineArgs,
			BinaryPath:  raw.Toolchain.BinaryPath,
		},
		Platforms:    platforms,
		Dependencies: deps,
		Signing:      entities.SigningConfig{KeyFile: raw.Signing.KeyFile},
	}, nil
}
