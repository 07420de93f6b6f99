package gateways

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/caravel-build/caravel/internal/domain/entities"
	"github.com/caravel-build/caravel/internal/domain/interfaces"
)

// DepManifestReader reads a dependency's own declaration from its catalog
// entry directory.
type DepManifestReader interface {
	ReadDepManifest(dir string) (*entities.DepManifest, error)
}

// Resolver materializes a project's locked dependency graph into the vendor
// store. Resolution is strict single-version-per-name: irreconcilable
// constraints fail instead of conflating versions, and a dependency without
// a lock entry fails instead of guessing.
type Resolver struct {
	catalogDir string
	vendorRoot string
	sums       *Checksummer
	manifests  DepManifestReader
	logger     interfaces.Logger
}

// NewResolver creates a resolver reading dependency sources from catalogDir
// and materializing them under vendorRoot.
func NewResolver(catalogDir, vendorRoot string, manifests DepManifestReader, logger interfaces.Logger) *Resolver {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &Resolver{
		catalogDir: catalogDir,
		vendorRoot: vendorRoot,
		sums:       NewChecksummer(),
		manifests:  manifests,
		logger:     logger,
	}
}

// pendingDep is one unresolved edge of the dependency graph.
type pendingDep struct {
	name       string
	constraint string
	neededBy   string
}

// Resolve computes the transitive closure of the project's declared
// dependency graph and writes each resolved source tree into the vendor
// store. Re-running is idempotent: an existing identical entry is left
// untouched, a version upgrade replaces only that entry.
func (r *Resolver) Resolve(ctx context.Context, project *entities.Project, lock *entities.Lockfile) (*entities.VendorSnapshot, error) {
	queue := make([]pendingDep, 0, len(project.Dependencies))
	for _, d := range project.Dependencies {
		queue = append(queue, pendingDep{name: d.Name, constraint: d.Constraint, neededBy: project.Name})
	}

	resolved := make(map[string]*entities.DependencyRef)
	hardPins := make(map[string]pendingDep)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := queue[0]
		queue = queue[1:]

		if isExactConstraint(d.constraint) {
			if prev, ok := hardPins[d.name]; ok && prev.constraint != d.constraint {
				return nil, fmt.Errorf("%w: %s is pinned to %s by %s and to %s by %s",
					entities.ErrUnresolvableVersion, d.name, prev.constraint, prev.neededBy, d.constraint, d.neededBy)
			}
			hardPins[d.name] = d
		}

		if ref, ok := resolved[d.name]; ok {
			// Already resolved; the existing version must satisfy this
			// consumer too, or the graph has no single-version solution.
			if !satisfiesConstraint(ref.Version, d.constraint) {
				return nil, fmt.Errorf("%w: %s@%s does not satisfy %q required by %s",
					entities.ErrUnresolvableVersion, d.name, ref.Version, d.constraint, d.neededBy)
			}
			continue
		}

		locked, ok := lock.Find(d.name)
		if !ok {
			return nil, fmt.Errorf("%w: %s (required by %s) has no locked version",
				entities.ErrUnresolvableVersion, d.name, d.neededBy)
		}
		if !satisfiesConstraint(locked.Version, d.constraint) {
			return nil, fmt.Errorf("%w: locked %s@%s does not satisfy %q required by %s",
				entities.ErrUnresolvableVersion, d.name, locked.Version, d.constraint, d.neededBy)
		}

		srcDir := filepath.Join(r.catalogDir, entryDirName(d.name, locked.Version))
		man, err := r.manifests.ReadDepManifest(srcDir)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read manifest of %s@%s: %v",
				entities.ErrPartialGraph, d.name, locked.Version, err)
		}

		// The catalog source must match the locked digest. A mismatch is a
		// trust failure; no recovery is attempted.
		sum, err := r.sums.TreeChecksum(srcDir)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot hash source of %s@%s: %v",
				entities.ErrPartialGraph, d.name, locked.Version, err)
		}
		if sum != locked.Checksum {
			return nil, fmt.Errorf("%w: %s@%s: locked %s, catalog source hashes to %s",
				entities.ErrChecksumMismatch, d.name, locked.Version, locked.Checksum, sum)
		}

		resolved[d.name] = &entities.DependencyRef{
			Name:     d.name,
			Version:  locked.Version,
			Checksum: sum,
			License:  man.License,
			Requires: man.Requires,
		}
		r.logger.Debug("resolved dependency",
			interfaces.F("name", d.name), interfaces.F("version", locked.Version))

		for _, req := range man.Requires {
			queue = append(queue, pendingDep{
				name:       req.Name,
				constraint: req.Constraint,
				neededBy:   entryDirName(d.name, locked.Version),
			})
		}
	}

	refs := make([]*entities.DependencyRef, 0, len(resolved))
	for _, ref := range resolved {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })

	entries := make([]entities.VendorEntry, 0, len(refs))
	for _, ref := range refs {
		path, err := r.materialize(ref)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entities.VendorEntry{Ref: *ref, Path: path})
	}

	return &entities.VendorSnapshot{Root: r.vendorRoot, Entries: entries}, nil
}

// materialize writes one resolved dependency into the vendor store. An
// existing entry with the expected digest is left untouched; any other
// version of the same name is removed first, so an upgrade invalidates only
// that entry.
func (r *Resolver) materialize(ref *entities.DependencyRef) (string, error) {
	dest := filepath.Join(r.vendorRoot, entryDirName(ref.Name, ref.Version))

	if err := r.removeStaleVersions(ref.Name, ref.Version); err != nil {
		return "", err
	}

	if _, err := os.Stat(dest); err == nil {
		sum, err := r.sums.TreeChecksum(dest)
		if err == nil && sum == ref.Checksum {
			return dest, nil
		}
		// A stale or mutated entry is re-materialized from the verified
		// catalog source.
		r.logger.Warn("re-materializing vendor entry",
			interfaces.F("name", ref.Name), interfaces.F("version", ref.Version))
		if err := os.RemoveAll(dest); err != nil {
			return "", fmt.Errorf("failed to remove stale vendor entry %s: %w", dest, err)
		}
	}

	src := filepath.Join(r.catalogDir, entryDirName(ref.Name, ref.Version))
	if err := copyTree(src, dest); err != nil {
		return "", fmt.Errorf("failed to vendor %s@%s: %w", ref.Name, ref.Version, err)
	}
	r.logger.Info("vendored dependency",
		interfaces.F("name", ref.Name), interfaces.F("version", ref.Version))
	return dest, nil
}

// removeStaleVersions removes vendored trees of the same dependency at a
// different version.
func (r *Resolver) removeStaleVersions(name, keepVersion string) error {
	dirEntries, err := os.ReadDir(r.vendorRoot)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read vendor root: %w", err)
	}
	keep := entryDirName(name, keepVersion)
	for _, e := range dirEntries {
		if !e.IsDir() || e.Name() == keep {
			continue
		}
		if !strings.HasPrefix(e.Name(), name+"-") {
			continue
		}
		// Guard against sibling names sharing a prefix (foo vs foo-bar):
		// the remainder after "name-" must look like a version.
		rest := strings.TrimPrefix(e.Name(), name+"-")
		if rest == "" || rest[0] < '0' || rest[0] > '9' {
			continue
		}
		r.logger.Info("removing superseded vendor entry", interfaces.F("entry", e.Name()))
		if err := os.RemoveAll(filepath.Join(r.vendorRoot, e.Name())); err != nil {
			return fmt.Errorf("failed to remove superseded entry %s: %w", e.Name(), err)
		}
	}
	return nil
}

// VerifyStore re-validates every locked dependency's vendored source tree
// against its locked digest. Out-of-band mutation of a stored tree fails
// with a checksum mismatch.
func (r *Resolver) VerifyStore(lock *entities.Lockfile) error {
	for _, locked := range lock.Dependencies {
		dir := filepath.Join(r.vendorRoot, entryDirName(locked.Name, locked.Version))
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("%w: %s@%s is not vendored at %s",
				entities.ErrInconsistentSnapshot, locked.Name, locked.Version, dir)
		}
		if err := r.sums.VerifyTree(dir, locked.Checksum); err != nil {
			return fmt.Errorf("%s@%s: %w", locked.Name, locked.Version, err)
		}
	}
	return nil
}

// entryDirName is the content-addressed store key for one dependency.
func entryDirName(name, version string) string {
	return name + "-" + version
}

// isExactConstraint reports whether a constraint pins a full version rather
// than a prefix range.
func isExactConstraint(constraint string) bool {
	return strings.Count(constraint, ".") >= 2
}

// satisfiesConstraint reports whether a version satisfies a constraint.
// An empty constraint accepts anything; otherwise the version must equal the
// constraint or extend it as a dotted prefix ("1.0" accepts "1.0.86").
func satisfiesConstraint(version, constraint string) bool {
	if constraint == "" || version == constraint {
		return true
	}
	return strings.HasPrefix(version, constraint+".")
}

// copyTree copies a source tree, preserving file modes.
func copyTree(src, dest string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0750)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dest string, perm os.FileMode) error {
	//nolint:gosec // G304: src is a catalog path managed by the pipeline
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer in.Close()

	//nolint:gosec // G304: dest is a vendor store path managed by the pipeline
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		//nolint:errcheck // Best-effort close on error path
		out.Close()
		return fmt.Errorf("failed to copy file contents: %w", err)
	}
	return out.Close()
}
