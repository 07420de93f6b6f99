package entities

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes surfaced by the pipeline. Callers match with errors.Is; the
// CLI maps them to exit codes.
var (
	ErrUnresolvableVersion  = errors.New("unresolvable version")
	ErrChecksumMismatch     = errors.New("checksum mismatch")
	ErrPartialGraph         = errors.New("partial dependency graph")
	ErrInvalidVersionTag    = errors.New("invalid version tag")
	ErrEmptyPlatformList    = errors.New("empty platform list")
	ErrVersionMismatch      = errors.New("version mismatch")
	ErrInconsistentSnapshot = errors.New("inconsistent vendor snapshot")
)

// JobFailure records why one platform build failed.
type JobFailure struct {
	Platform string
	Reason   string
}

// IncompleteReleaseError reports a release whose build jobs did not all
// succeed. It names every failing platform; nothing is published.
type IncompleteReleaseError struct {
	Version  string
	Failures []JobFailure
}

func (e *IncompleteReleaseError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %s", f.Platform, f.Reason)
	}
	return fmt.Sprintf("incomplete release %s: %d platform(s) failed: %s",
		e.Version, len(e.Failures), strings.Join(parts, "; "))
}

// FailedPlatforms returns the failing platform identifiers in job order.
func (e *IncompleteReleaseError) FailedPlatforms() []string {
	platforms := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		platforms[i] = f.Platform
	}
	return platforms
}

// ImmutabilityViolationError reports an attempt to republish a version tag
// with content differing from what was previously published under that tag.
type ImmutabilityViolationError struct {
	Version  string
	Platform string
	Expected string
	Got      string
}

func (e *ImmutabilityViolationError) Error() string {
	if e.Platform == "" {
		return fmt.Sprintf("release %s is already published with a different artifact set", e.Version)
	}
	return fmt.Sprintf("release %s is already published: %s checksum %s does not match published %s",
		e.Version, e.Platform, e.Got, e.Expected)
}
