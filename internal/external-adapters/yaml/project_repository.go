package yaml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caravel-build/caravel/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// Well-known file names inside a project directory.
const (
	ProjectFileName  = "project.yml"
	LockfileName     = "caravel.lock"
	DepManifestName  = "dep.yml"
	lockFormatLatest = 1
)

// ProjectRepository loads project definitions, lockfiles and dependency
// manifests from a project directory.
type ProjectRepository struct {
	dir    string
	parser *ProjectParser
}

// NewProjectRepository creates a repository rooted at the project directory.
func NewProjectRepository(dir string) *ProjectRepository {
	return &ProjectRepository{dir: dir, parser: NewProjectParser()}
}

// LoadProject reads and validates the project definition.
func (r *ProjectRepository) LoadProject(_ context.Context) (*entities.Project, error) {
	path := filepath.Join(r.dir, ProjectFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no project definition at %s", path)
	}
	project, err := r.parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	project.Dir = r.dir
	return project, nil
}

// yamlLockfile represents the raw lockfile structure
type yamlLockfile struct {
	Version      int             `yaml:"version"`
	Dependencies []yamlLockedDep `yaml:"dependencies"`
}

type yamlLockedDep struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Checksum string `yaml:"checksum"`
}

// LoadLockfile reads the pinned dependency set.
func (r *ProjectRepository) LoadLockfile(_ context.Context) (*entities.Lockfile, error) {
	path := filepath.Join(r.dir, LockfileName)
	//nolint:gosec // G304: path is the project lockfile location
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lockfile %s: %w", path, err)
	}

	var raw yamlLockfile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse lockfile: %w", err)
	}
	if raw.Version == 0 || raw.Version > lockFormatLatest {
		return nil, fmt.Errorf("unsupported lockfile format version %d", raw.Version)
	}

	deps := make([]entities.LockedDependency, 0, len(raw.Dependencies))
	for _, d := range raw.Dependencies {
		if d.Name == "" || d.Version == "" || d.Checksum == "" {
			return nil, fmt.Errorf("lock entry for %q must carry name, version and checksum", d.Name)
		}
		deps = append(deps, entities.LockedDependency{
			Name:     d.Name,
			Version:  d.Version,
			Checksum: d.Checksum,
		})
	}

	return &entities.Lockfile{FormatVersion: raw.Version, Dependencies: deps}, nil
}

// yamlDepManifest represents a dependency's own declaration
type yamlDepManifest struct {
	Name     string           `yaml:"name"`
	Version  string           `yaml:"version"`
	License  string           `yaml:"license"`
	Requires []yamlDependency `yaml:"requires"`
}

// ReadDepManifest reads the manifest of one catalog entry directory.
func (r *ProjectRepository) ReadDepManifest(dir string) (*entities.DepManifest, error) {
	path := filepath.Join(dir, DepManifestName)
	//nolint:gosec // G304: path is a catalog entry managed by the pipeline
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var raw yamlDepManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if raw.Name == "" || raw.Version == "" {
		return nil, fmt.Errorf("dependency manifest %s must carry name and version", path)
	}

	requires := make([]entities.DependencyConstraint, 0, len(raw.Requires))
	for _, d := range raw.Requires {
		requires = append(requires, entities.DependencyConstraint{Name: d.Name, Constraint: d.Constraint})
	}

	return &entities.DepManifest{
		Name:     raw.Name,
		Version:  raw.Version,
		License:  raw.License,
		Requires: requires,
	}, nil
}
