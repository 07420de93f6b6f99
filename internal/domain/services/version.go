// Package services implements domain logic for planning, manifest
// generation and release aggregation.
package services

import (
	"fmt"
	"regexp"

	"github.com/caravel-build/caravel/internal/domain/entities"
)

// tagPattern matches v<major>.<minor>.<patch> with an optional prerelease
// suffix of dot-or-hyphen-separated alphanumeric identifiers, e.g.
// v1.2.3 or v0.2.0-beta.1. Leading zeros are rejected.
var tagPattern = regexp.MustCompile(
	`^v(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)(-[0-9A-Za-z]+([.-][0-9A-Za-z]+)*)?$`)

// ValidateTag checks a release version tag against the tag grammar.
// Malformed tags are rejected before any build is dispatched.
func ValidateTag(tag string) error {
	if !tagPattern.MatchString(tag) {
		return fmt.Errorf("%w: %q does not match v<major>.<minor>.<patch>[-<prerelease>]",
			entities.ErrInvalidVersionTag, tag)
	}
	return nil
}
