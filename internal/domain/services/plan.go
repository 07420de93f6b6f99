package services

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/caravel-build/caravel/internal/domain/entities"
)

// BuildPlan is the compiled set of per-platform jobs for one release
// request. Jobs are independent of each other; all of them depend on the
// vendor snapshot being finalized first.
type BuildPlan struct {
	Version string
	Jobs    []*entities.BuildJob
}

// PlanService compiles release requests into build plans. The plan is always
// derived fresh from the current project configuration; no generated file is
// treated as a source of truth.
type PlanService struct{}

// NewPlanService creates a new plan service
func NewPlanService() *PlanService {
	return &PlanService{}
}

// Compile validates the request against the project and derives one build
// job per requested platform. The requested tag must match the project's
// declared version; a mismatch is reported, never auto-corrected.
func (s *PlanService) Compile(project *entities.Project, snapshot *entities.VendorSnapshot, req *entities.ReleaseRequest) (*BuildPlan, error) {
	if err := ValidateTag(req.Version); err != nil {
		return nil, err
	}
	if len(req.Platforms) == 0 {
		return nil, fmt.Errorf("%w: release request names no target platforms", entities.ErrEmptyPlatformList)
	}
	if req.Version != project.Version {
		return nil, fmt.Errorf("%w: requested %s but project %s declares %s",
			entities.ErrVersionMismatch, req.Version, project.Name, project.Version)
	}

	snapshotRoot := ""
	if snapshot != nil {
		snapshotRoot = snapshot.Root
	}

	jobs := make([]*entities.BuildJob, 0, len(req.Platforms))
	for _, platform := range req.Platforms {
		target, ok := project.Platforms[platform]
		if !ok {
			return nil, fmt.Errorf("platform %s is not configured for %s", platform, project.Name)
		}
		jobs = append(jobs, &entities.BuildJob{
			Platform:     platform,
			Target:       target.Target,
			Version:      req.Version,
			SnapshotRoot: snapshotRoot,
			WorkDir:      filepath.Join(req.OutputRoot, "work", platform),
			OutputDir:    filepath.Join(req.OutputRoot, "artifacts"),
			State:        entities.JobPending,
		})
	}

	// Deterministic plan order regardless of how the caller listed platforms.
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Platform < jobs[j].Platform })

	return &BuildPlan{Version: req.Version, Jobs: jobs}, nil
}
