package orchestrators

import (
	"context"
	"sync"

	"github.com/caravel-build/caravel/internal/domain/entities"
	"github.com/caravel-build/caravel/internal/domain/interfaces"
	"github.com/caravel-build/caravel/internal/domain/services"
)

// JobRunner builds one platform job to completion in isolation.
type JobRunner interface {
	RunJob(ctx context.Context, project *entities.Project, job *entities.BuildJob) (*entities.Artifact, error)
}

// BundlePublisher writes validated bundles to the release root.
type BundlePublisher interface {
	Publish(ctx context.Context, bundle *entities.ReleaseBundle, manifest, signature []byte) error
}

// IndexSigner signs the cross-platform checksum index.
type IndexSigner interface {
	Sign(data []byte) ([]byte, error)
}

// ReleaseOrchestrator drives one release request end to end: plan
// compilation, parallel per-platform builds, the aggregation barrier, and
// publishing. One worker runs per target platform; workers share only
// read-only access to the vendor snapshot.
type ReleaseOrchestrator struct {
	planner    *services.PlanService
	aggregator *services.AggregationService
	runner     JobRunner
	publisher  BundlePublisher
	signer     IndexSigner // nil means the release is published unsigned
	logger     interfaces.Logger
}

// NewReleaseOrchestrator creates a new release orchestrator
func NewReleaseOrchestrator(runner JobRunner, publisher BundlePublisher, signer IndexSigner, logger interfaces.Logger) *ReleaseOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ReleaseOrchestrator{
		planner:    services.NewPlanService(),
		aggregator: services.NewAggregationService(),
		runner:     runner,
		publisher:  publisher,
		signer:     signer,
		logger:     logger,
	}
}

// ReleaseResult contains the outcome of a release run.
type ReleaseResult struct {
	Plan      *services.BuildPlan
	Bundle    *entities.ReleaseBundle
	Published bool
}

// Plan compiles the build plan without dispatching any job.
func (o *ReleaseOrchestrator) Plan(project *entities.Project, snapshot *entities.VendorSnapshot, req *entities.ReleaseRequest) (*services.BuildPlan, error) {
	return o.planner.Compile(project, snapshot, req)
}

// Release runs the full pipeline for one request. If the plan is rejected no
// job is dispatched. A failing job never aborts its siblings; the
// aggregation barrier observes the terminal state of every job before a
// bundle is assembled. When the caller's context is canceled mid-run,
// in-flight builds finish but nothing is published.
func (o *ReleaseOrchestrator) Release(ctx context.Context, project *entities.Project, snapshot *entities.VendorSnapshot, req *entities.ReleaseRequest, manifest []byte) (*ReleaseResult, error) {
	plan, err := o.planner.Compile(project, snapshot, req)
	if err != nil {
		return nil, err
	}
	result := &ReleaseResult{Plan: plan}

	// Builds run to completion even if the caller cancels; a half-written
	// content store is worse than a finished build that goes unpublished.
	buildCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for _, job := range plan.Jobs {
		wg.Add(1)
		go func(job *entities.BuildJob) {
			defer wg.Done()
			job.State = entities.JobRunning
			artifact, err := o.runner.RunJob(buildCtx, project, job)
			if err != nil {
				job.State = entities.JobFailed
				job.Err = err
				o.logger.Error("platform build failed",
					interfaces.F("platform", job.Platform),
					interfaces.F("error", err))
				return
			}
			job.Artifact = artifact
			job.State = entities.JobSucceeded
		}(job)
	}
	wg.Wait()

	bundle, err := o.aggregator.Aggregate(plan.Version, plan.Jobs)
	if err != nil {
		return result, err
	}
	result.Bundle = bundle

	if err := ctx.Err(); err != nil {
		o.logger.Warn("release canceled, build outputs kept unpublished",
			interfaces.F("version", plan.Version))
		return result, err
	}
	if !req.Publish {
		o.logger.Info("dry run complete, nothing published",
			interfaces.F("version", plan.Version),
			interfaces.F("artifacts", len(bundle.Artifacts)))
		return result, nil
	}

	var signature []byte
	if o.signer != nil {
		signature, err = o.signer.Sign(bundle.Index)
		if err != nil {
			return result, err
		}
	}

	if err := o.publisher.Publish(ctx, bundle, manifest, signature); err != nil {
		return result, err
	}
	result.Published = true
	return result, nil
}
