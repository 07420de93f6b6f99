// Package orchestrators coordinates the vendoring and release pipelines
// across domain services and gateways.
package orchestrators

import (
	"context"
	"fmt"

	"github.com/caravel-build/caravel/internal/domain/entities"
	"github.com/caravel-build/caravel/internal/domain/interfaces"
	"github.com/caravel-build/caravel/internal/domain/interfaces/repositories"
)

// SnapshotResolver materializes the locked dependency graph into the vendor
// store.
type SnapshotResolver interface {
	Resolve(ctx context.Context, project *entities.Project, lock *entities.Lockfile) (*entities.VendorSnapshot, error)
}

// ManifestGenerator derives and serializes vendor manifests.
type ManifestGenerator interface {
	Generate(snapshot *entities.VendorSnapshot) (*entities.VendorManifest, error)
	Encode(m *entities.VendorManifest) ([]byte, error)
}

// VendorOrchestrator resolves the project's dependency graph and derives the
// audit manifest. The snapshot it produces is written once and treated as
// immutable for the rest of the pipeline.
type VendorOrchestrator struct {
	projects  repositories.ProjectRepository
	resolver  SnapshotResolver
	manifests ManifestGenerator
	logger    interfaces.Logger
}

// NewVendorOrchestrator creates a new vendor orchestrator
func NewVendorOrchestrator(projects repositories.ProjectRepository, resolver SnapshotResolver, manifests ManifestGenerator, logger interfaces.Logger) *VendorOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &VendorOrchestrator{
		projects:  projects,
		resolver:  resolver,
		manifests: manifests,
		logger:    logger,
	}
}

// VendorResult carries the finalized snapshot and its manifest.
type VendorResult struct {
	Project       *entities.Project
	Snapshot      *entities.VendorSnapshot
	Manifest      *entities.VendorManifest
	ManifestBytes []byte
}

// Vendor runs resolution and manifest generation. Re-running it against an
// unchanged lockfile yields a byte-identical manifest.
func (o *VendorOrchestrator) Vendor(ctx context.Context) (*VendorResult, error) {
	project, err := o.projects.LoadProject(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	lock, err := o.projects.LoadLockfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load lockfile: %w", err)
	}

	snapshot, err := o.resolver.Resolve(ctx, project, lock)
	if err != nil {
		return nil, err
	}
	o.logger.Info("vendor snapshot finalized",
		interfaces.F("dependencies", len(snapshot.Entries)),
		interfaces.F("root", snapshot.Root))

	manifest, err := o.manifests.Generate(snapshot)
	if err != nil {
		return nil, err
	}
	data, err := o.manifests.Encode(manifest)
	if err != nil {
		return nil, err
	}

	return &VendorResult{
		Project:       project,
		Snapshot:      snapshot,
		Manifest:      manifest,
		ManifestBytes: data,
	}, nil
}
