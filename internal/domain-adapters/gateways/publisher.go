package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caravel-build/caravel/internal/domain/entities"
	"github.com/caravel-build/caravel/internal/domain/interfaces"
)

// Names of the files written alongside the archives in a published release.
const (
	IndexFileName     = "SHA256SUMS"
	SignatureFileName = "SHA256SUMS.asc"
	ManifestFileName  = "vendor-manifest.yml"
)

// ReleaseIndex persists the artifact checksum set of every published
// version, so immutability holds across runs.
type ReleaseIndex interface {
	// Get returns the published platform-to-checksum map for a version.
	Get(version string) (map[string]string, bool, error)

	// Put records the checksum set of a newly published version.
	Put(version string, sums map[string]string) error
}

// Publisher writes validated release bundles to the stable release root.
// Publishing is append-only: an identical re-publish is a no-op, and a
// version already published with different content is never overwritten.
type Publisher struct {
	releaseRoot string
	index       ReleaseIndex
	sums        *Checksummer
	logger      interfaces.Logger
}

// NewPublisher creates a publisher writing under releaseRoot.
func NewPublisher(releaseRoot string, index ReleaseIndex, logger interfaces.Logger) *Publisher {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &Publisher{
		releaseRoot: releaseRoot,
		index:       index,
		sums:        NewChecksummer(),
		logger:      logger,
	}
}

// Publish writes the bundle under <releaseRoot>/<version>: every archive
// with its sidecar checksum, the cross-platform checksum index, its
// signature when one was produced, and the vendor manifest for audit.
func (p *Publisher) Publish(_ context.Context, bundle *entities.ReleaseBundle, manifest, signature []byte) error {
	sums := make(map[string]string, len(bundle.Artifacts))
	for _, a := range bundle.Artifacts {
		sums[a.Platform] = a.Checksum
	}

	published, found, err := p.index.Get(bundle.Version)
	if err != nil {
		return fmt.Errorf("failed to read release index: %w", err)
	}
	if found {
		if err := compareChecksumSets(bundle.Version, published, sums); err != nil {
			return err
		}
		p.logger.Info("release already published, nothing to do",
			interfaces.F("version", bundle.Version))
		return nil
	}

	destDir := filepath.Join(p.releaseRoot, bundle.Version)
	if _, err := os.Stat(destDir); err == nil {
		// The directory exists but the index has no record of it, e.g. a
		// retried run that crashed before the index write. Recompute the
		// on-disk digests and treat matching content as already published.
		onDisk, err := p.scanPublished(destDir, bundle)
		if err != nil {
			return err
		}
		if err := compareChecksumSets(bundle.Version, onDisk, sums); err != nil {
			return err
		}
		if err := p.index.Put(bundle.Version, sums); err != nil {
			return fmt.Errorf("failed to record release in index: %w", err)
		}
		p.logger.Info("release already on disk, index backfilled",
			interfaces.F("version", bundle.Version))
		return nil
	}

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return fmt.Errorf("failed to create release directory: %w", err)
	}

	for _, a := range bundle.Artifacts {
		name := filepath.Base(a.Path)
		if err := copyFile(a.Path, filepath.Join(destDir, name), 0644); err != nil {
			return fmt.Errorf("failed to publish %s: %w", name, err)
		}
		line := fmt.Sprintf("%s  %s\n", a.Checksum, name)
		if err := os.WriteFile(filepath.Join(destDir, name+".sha256"), []byte(line), 0600); err != nil {
			return fmt.Errorf("failed to publish checksum of %s: %w", name, err)
		}
	}

	if err := os.WriteFile(filepath.Join(destDir, IndexFileName), bundle.Index, 0600); err != nil {
		return fmt.Errorf("failed to publish checksum index: %w", err)
	}
	if len(signature) > 0 {
		if err := os.WriteFile(filepath.Join(destDir, SignatureFileName), signature, 0600); err != nil {
			return fmt.Errorf("failed to publish index signature: %w", err)
		}
	}
	if err := os.WriteFile(filepath.Join(destDir, ManifestFileName), manifest, 0600); err != nil {
		return fmt.Errorf("failed to publish vendor manifest: %w", err)
	}

	if err := p.index.Put(bundle.Version, sums); err != nil {
		return fmt.Errorf("failed to record release in index: %w", err)
	}

	p.logger.Info("release published",
		interfaces.F("version", bundle.Version),
		interfaces.F("artifacts", len(bundle.Artifacts)),
		interfaces.F("dir", destDir))
	return nil
}

// scanPublished recomputes the digests of the bundle's archives as found on
// disk in an already-existing release directory.
func (p *Publisher) scanPublished(destDir string, bundle *entities.ReleaseBundle) (map[string]string, error) {
	onDisk := make(map[string]string, len(bundle.Artifacts))
	for _, a := range bundle.Artifacts {
		path := filepath.Join(destDir, filepath.Base(a.Path))
		if _, err := os.Stat(path); err != nil {
			// Absent archive: leave the platform out so the comparison
			// reports it against the published set.
			continue
		}
		sum, err := p.sums.FileChecksum(path)
		if err != nil {
			return nil, fmt.Errorf("failed to hash published archive %s: %w", path, err)
		}
		onDisk[a.Platform] = sum
	}
	return onDisk, nil
}

// compareChecksumSets checks a candidate checksum set against the published
// one and reports the first difference as an immutability violation.
func compareChecksumSets(version string, published, candidate map[string]string) error {
	if len(published) != len(candidate) {
		return &entities.ImmutabilityViolationError{Version: version}
	}
	for platform, sum := range candidate {
		prev, ok := published[platform]
		if !ok {
			return &entities.ImmutabilityViolationError{Version: version}
		}
		if prev != sum {
			return &entities.ImmutabilityViolationError{
				Version:  version,
				Platform: platform,
				Expected: prev,
				Got:      sum,
			}
		}
	}
	return nil
}
