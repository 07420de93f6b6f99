// Package repositories defines persistence contracts for the domain layer.
package repositories

import (
	"context"

	"github.com/caravel-build/caravel/internal/domain/entities"
)

// ProjectRepository loads the project definition and its lockfile.
type ProjectRepository interface {
	// LoadProject reads the project definition.
	LoadProject(ctx context.Context) (*entities.Project, error)

	// LoadLockfile reads the pinned dependency set.
	LoadLockfile(ctx context.Context) (*entities.Lockfile, error)
}
