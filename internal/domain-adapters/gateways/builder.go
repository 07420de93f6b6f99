package gateways

import (
	"context"
	"fmt"
	"os"

	"github.com/caravel-build/caravel/internal/domain/entities"
	"github.com/caravel-build/caravel/internal/domain/interfaces"
)

// PlatformBuilder runs one build job to completion: toolchain invocation in
// the job's scoped working directory, then bundle layout and compression.
// Jobs share nothing mutable, so builders can run concurrently.
type PlatformBuilder struct {
	toolchain *ToolchainRunner
	packager  *Packager
	vendored  bool
	logger    interfaces.Logger
}

// NewPlatformBuilder creates a builder. vendored selects whether the
// toolchain runs with its offline arguments against the vendor store.
func NewPlatformBuilder(toolchain *ToolchainRunner, packager *Packager, vendored bool, logger interfaces.Logger) *PlatformBuilder {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &PlatformBuilder{
		toolchain: toolchain,
		packager:  packager,
		vendored:  vendored,
		logger:    logger,
	}
}

// RunJob executes one job and returns its artifact. Errors carry enough
// context for per-platform reporting; a failure here never affects sibling
// jobs.
func (b *PlatformBuilder) RunJob(ctx context.Context, project *entities.Project, job *entities.BuildJob) (*entities.Artifact, error) {
	if err := os.MkdirAll(job.WorkDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}

	binary, err := b.toolchain.Run(ctx, project, job, b.vendored)
	if err != nil {
		return nil, err
	}

	artifact, err := b.packager.PackageArtifact(ctx, project, job, binary)
	if err != nil {
		return nil, err
	}

	b.logger.Info("platform build complete",
		interfaces.F("platform", job.Platform),
		interfaces.F("archive", artifact.Path),
		interfaces.F("checksum", artifact.Checksum))
	return artifact, nil
}
