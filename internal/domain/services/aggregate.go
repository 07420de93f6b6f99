package services

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/caravel-build/caravel/internal/domain/entities"
)

// AggregationService validates terminal build jobs and assembles release
// bundles. Aggregation only proceeds when every job succeeded; a partial
// artifact set is an error state, never silently published.
type AggregationService struct{}

// NewAggregationService creates a new aggregation service
func NewAggregationService() *AggregationService {
	return &AggregationService{}
}

// Aggregate inspects the terminal state of every job in the plan. When all
// jobs succeeded it returns a bundle containing exactly one artifact per
// platform plus the cross-platform checksum index; otherwise it returns an
// IncompleteReleaseError naming each failing platform and why.
func (s *AggregationService) Aggregate(version string, jobs []*entities.BuildJob) (*entities.ReleaseBundle, error) {
	var failures []entities.JobFailure
	artifacts := make([]entities.Artifact, 0, len(jobs))

	for _, job := range jobs {
		if job.State == entities.JobSucceeded && job.Artifact != nil {
			artifacts = append(artifacts, *job.Artifact)
			continue
		}
		reason := "build did not reach a terminal state"
		if job.Err != nil {
			reason = job.Err.Error()
		}
		failures = append(failures, entities.JobFailure{Platform: job.Platform, Reason: reason})
	}

	if len(failures) > 0 {
		return nil, &entities.IncompleteReleaseError{Version: version, Failures: failures}
	}

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Platform < artifacts[j].Platform })

	return &entities.ReleaseBundle{
		Version:   version,
		Artifacts: artifacts,
		Index:     ChecksumIndex(artifacts),
	}, nil
}

// ChecksumIndex renders the cross-platform checksum index covering every
// archive, one sha256sum-format line per artifact, sorted by filename.
func ChecksumIndex(artifacts []entities.Artifact) []byte {
	sorted := make([]entities.Artifact, len(artifacts))
	copy(sorted, artifacts)
	sort.Slice(sorted, func(i, j int) bool {
		return filepath.Base(sorted[i].Path) < filepath.Base(sorted[j].Path)
	})

	var b strings.Builder
	for _, a := range sorted {
		fmt.Fprintf(&b, "%s  %s\n", a.Checksum, filepath.Base(a.Path))
	}
	return []byte(b.String())
}
