package gateways

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/caravel-build/caravel/internal/domain/entities"
)

// mockManifestReader serves dependency manifests keyed by catalog entry
// directory name.
type mockManifestReader struct {
	manifests map[string]*entities.DepManifest
}

func (m *mockManifestReader) ReadDepManifest(dir string) (*entities.DepManifest, error) {
	man, ok := m.manifests[filepath.Base(dir)]
	if !ok {
		return nil, fmt.Errorf("no manifest in %s", dir)
	}
	return man, nil
}

// resolverFixture wires a catalog, a lockfile and a manifest reader for one
// resolution scenario.
type resolverFixture struct {
	catalogDir string
	vendorRoot string
	reader     *mockManifestReader
	lock       *entities.Lockfile
	sums       *Checksummer
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	root := t.TempDir()
	return &resolverFixture{
		catalogDir: filepath.Join(root, "catalog"),
		vendorRoot: filepath.Join(root, "vendor"),
		reader:     &mockManifestReader{manifests: make(map[string]*entities.DepManifest)},
		lock:       &entities.Lockfile{FormatVersion: 1},
		sums:       NewChecksummer(),
	}
}

// addCatalogEntry writes a source tree into the catalog, registers its
// manifest, and locks it at its actual tree digest.
func (f *resolverFixture) addCatalogEntry(t *testing.T, name, version, content string, requires ...entities.DependencyConstraint) {
	t.Helper()
	dir := filepath.Join(f.catalogDir, name+"-"+version)
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0750); err != nil {
		t.Fatalf("Failed to create catalog entry: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src", "lib.rs"), []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write catalog source: %v", err)
	}

	sum, err := f.sums.TreeChecksum(dir)
	if err != nil {
		t.Fatalf("Failed to hash catalog entry: %v", err)
	}

	f.reader.manifests[name+"-"+version] = &entities.DepManifest{
		Name: name, Version: version, License: "MIT", Requires: requires,
	}
	f.lock.Dependencies = append(f.lock.Dependencies,
		entities.LockedDependency{Name: name, Version: version, Checksum: sum})
}

func (f *resolverFixture) resolver() *Resolver {
	return NewResolver(f.catalogDir, f.vendorRoot, f.reader, nil)
}

func projectWithDeps(deps ...entities.DependencyConstraint) *entities.Project {
	return &entities.Project{Name: "demo", Version: "v1.0.0", Dependencies: deps}
}

// TestResolveTransitiveGraph tests closure over transitive dependencies
func TestResolveTransitiveGraph(t *testing.T) {
	f := newResolverFixture(t)
	f.addCatalogEntry(t, "serde", "1.0.200", "serde source",
		entities.DependencyConstraint{Name: "serde_derive", Constraint: "1.0"})
	f.addCatalogEntry(t, "serde_derive", "1.0.200", "derive source")

	project := projectWithDeps(entities.DependencyConstraint{Name: "serde", Constraint: "1.0"})
	snapshot, err := f.resolver().Resolve(context.Background(), project, f.lock)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(snapshot.Entries) != 2 {
		t.Fatalf("Resolve() entry count = %d, want 2", len(snapshot.Entries))
	}
	// Entries are sorted by name.
	if snapshot.Entries[0].Ref.Name != "serde" || snapshot.Entries[1].Ref.Name != "serde_derive" {
		t.Errorf("Resolve() entry order = [%s, %s], want [serde, serde_derive]",
			snapshot.Entries[0].Ref.Name, snapshot.Entries[1].Ref.Name)
	}

	for _, entry := range snapshot.Entries {
		info, err := os.Stat(entry.Path)
		if err != nil || !info.IsDir() {
			t.Errorf("Vendored tree missing at %s: %v", entry.Path, err)
		}
		if err := f.sums.VerifyTree(entry.Path, entry.Ref.Checksum); err != nil {
			t.Errorf("Vendored tree digest mismatch for %s: %v", entry.Ref.Name, err)
		}
	}
}

// TestResolveIdempotent tests that re-running leaves an intact store untouched
func TestResolveIdempotent(t *testing.T) {
	f := newResolverFixture(t)
	f.addCatalogEntry(t, "anyhow", "1.0.86", "anyhow source")

	project := projectWithDeps(entities.DependencyConstraint{Name: "anyhow", Constraint: "1.0.86"})
	resolver := f.resolver()

	first, err := resolver.Resolve(context.Background(), project, f.lock)
	if err != nil {
		t.Fatalf("First Resolve() error = %v", err)
	}

	// Capture the entry's mtime to detect a rewrite.
	entryDir := first.Entries[0].Path
	before, err := os.Stat(filepath.Join(entryDir, "src", "lib.rs"))
	if err != nil {
		t.Fatalf("Failed to stat vendored file: %v", err)
	}

	second, err := resolver.Resolve(context.Background(), project, f.lock)
	if err != nil {
		t.Fatalf("Second Resolve() error = %v", err)
	}
	if len(second.Entries) != 1 || second.Entries[0].Path != entryDir {
		t.Errorf("Second Resolve() produced a different snapshot")
	}

	after, err := os.Stat(filepath.Join(entryDir, "src", "lib.rs"))
	if err != nil {
		t.Fatalf("Failed to stat vendored file after re-run: %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("Re-running Resolve() rewrote an intact vendor entry")
	}
}

// TestResolveRematerializesMutatedEntry tests recovery of a tampered store entry
func TestResolveRematerializesMutatedEntry(t *testing.T) {
	f := newResolverFixture(t)
	f.addCatalogEntry(t, "anyhow", "1.0.86", "anyhow source")

	project := projectWithDeps(entities.DependencyConstraint{Name: "anyhow", Constraint: ""})
	resolver := f.resolver()

	first, err := resolver.Resolve(context.Background(), project, f.lock)
	if err != nil {
		t.Fatalf("First Resolve() error = %v", err)
	}

	tampered := filepath.Join(first.Entries[0].Path, "src", "lib.rs")
	if err := os.WriteFile(tampered, []byte("patched"), 0600); err != nil {
		t.Fatalf("Failed to tamper with vendor entry: %v", err)
	}

	second, err := resolver.Resolve(context.Background(), project, f.lock)
	if err != nil {
		t.Fatalf("Second Resolve() error = %v", err)
	}
	if err := f.sums.VerifyTree(second.Entries[0].Path, f.lock.Dependencies[0].Checksum); err != nil {
		t.Errorf("Mutated entry was not re-materialized: %v", err)
	}
}

// TestResolveUpgradeReplacesEntry tests that a version bump removes the old tree
func TestResolveUpgradeReplacesEntry(t *testing.T) {
	f := newResolverFixture(t)
	f.addCatalogEntry(t, "clap", "4.5.0", "clap 4.5.0 source")

	project := projectWithDeps(entities.DependencyConstraint{Name: "clap", Constraint: "4.5"})
	if _, err := f.resolver().Resolve(context.Background(), project, f.lock); err != nil {
		t.Fatalf("First Resolve() error = %v", err)
	}

	// Lock the upgrade and resolve again.
	upgraded := newResolverFixture(t)
	upgraded.catalogDir = f.catalogDir
	upgraded.vendorRoot = f.vendorRoot
	upgraded.reader = f.reader
	upgraded.sums = f.sums
	upgraded.addCatalogEntry(t, "clap", "4.5.1", "clap 4.5.1 source")

	snapshot, err := upgraded.resolver().Resolve(context.Background(), project, upgraded.lock)
	if err != nil {
		t.Fatalf("Upgrade Resolve() error = %v", err)
	}
	if snapshot.Entries[0].Ref.Version != "4.5.1" {
		t.Errorf("Upgrade resolved version = %v, want 4.5.1", snapshot.Entries[0].Ref.Version)
	}

	if _, err := os.Stat(filepath.Join(f.vendorRoot, "clap-4.5.0")); !os.IsNotExist(err) {
		t.Error("Superseded vendor entry clap-4.5.0 was not removed")
	}
	if _, err := os.Stat(filepath.Join(f.vendorRoot, "clap-4.5.1")); err != nil {
		t.Errorf("Upgraded vendor entry missing: %v", err)
	}
}

// TestResolveFailures tests the resolution error taxonomy
func TestResolveFailures(t *testing.T) {
	t.Run("missing lock entry", func(t *testing.T) {
		f := newResolverFixture(t)
		project := projectWithDeps(entities.DependencyConstraint{Name: "ghost", Constraint: "1.0"})

		_, err := f.resolver().Resolve(context.Background(), project, f.lock)
		if !errors.Is(err, entities.ErrUnresolvableVersion) {
			t.Errorf("Resolve() error = %v, want ErrUnresolvableVersion", err)
		}
	})

	t.Run("locked version outside constraint", func(t *testing.T) {
		f := newResolverFixture(t)
		f.addCatalogEntry(t, "serde", "1.0.200", "serde source")
		project := projectWithDeps(entities.DependencyConstraint{Name: "serde", Constraint: "2.0"})

		_, err := f.resolver().Resolve(context.Background(), project, f.lock)
		if !errors.Is(err, entities.ErrUnresolvableVersion) {
			t.Errorf("Resolve() error = %v, want ErrUnresolvableVersion", err)
		}
	})

	t.Run("conflicting exact pins", func(t *testing.T) {
		f := newResolverFixture(t)
		f.addCatalogEntry(t, "left", "1.0.0", "left source",
			entities.DependencyConstraint{Name: "shared", Constraint: "1.0.0"})
		f.addCatalogEntry(t, "right", "1.0.0", "right source",
			entities.DependencyConstraint{Name: "shared", Constraint: "1.0.1"})
		f.addCatalogEntry(t, "shared", "1.0.0", "shared source")

		project := projectWithDeps(
			entities.DependencyConstraint{Name: "left", Constraint: "1.0.0"},
			entities.DependencyConstraint{Name: "right", Constraint: "1.0.0"},
		)
		_, err := f.resolver().Resolve(context.Background(), project, f.lock)
		if !errors.Is(err, entities.ErrUnresolvableVersion) {
			t.Errorf("Resolve() error = %v, want ErrUnresolvableVersion", err)
		}
	})

	t.Run("catalog source mismatch", func(t *testing.T) {
		f := newResolverFixture(t)
		f.addCatalogEntry(t, "serde", "1.0.200", "serde source")

		// Mutate the catalog source after locking.
		mutated := filepath.Join(f.catalogDir, "serde-1.0.200", "src", "lib.rs")
		if err := os.WriteFile(mutated, []byte("backdoored"), 0600); err != nil {
			t.Fatalf("Failed to mutate catalog source: %v", err)
		}

		project := projectWithDeps(entities.DependencyConstraint{Name: "serde", Constraint: "1.0"})
		_, err := f.resolver().Resolve(context.Background(), project, f.lock)
		if !errors.Is(err, entities.ErrChecksumMismatch) {
			t.Errorf("Resolve() error = %v, want ErrChecksumMismatch", err)
		}
	})

	t.Run("unreadable dependency manifest", func(t *testing.T) {
		f := newResolverFixture(t)
		f.addCatalogEntry(t, "serde", "1.0.200", "serde source")
		delete(f.reader.manifests, "serde-1.0.200")

		project := projectWithDeps(entities.DependencyConstraint{Name: "serde", Constraint: "1.0"})
		_, err := f.resolver().Resolve(context.Background(), project, f.lock)
		if !errors.Is(err, entities.ErrPartialGraph) {
			t.Errorf("Resolve() error = %v, want ErrPartialGraph", err)
		}
	})
}

// TestVerifyStore tests post-hoc vendor store verification
func TestVerifyStore(t *testing.T) {
	f := newResolverFixture(t)
	f.addCatalogEntry(t, "anyhow", "1.0.86", "anyhow source")

	project := projectWithDeps(entities.DependencyConstraint{Name: "anyhow", Constraint: "1.0"})
	resolver := f.resolver()
	snapshot, err := resolver.Resolve(context.Background(), project, f.lock)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	t.Run("intact store", func(t *testing.T) {
		if err := resolver.VerifyStore(f.lock); err != nil {
			t.Errorf("VerifyStore() on intact store error = %v", err)
		}
	})

	t.Run("mutated entry", func(t *testing.T) {
		tampered := filepath.Join(snapshot.Entries[0].Path, "src", "lib.rs")
		if err := os.WriteFile(tampered, []byte("patched"), 0600); err != nil {
			t.Fatalf("Failed to tamper with vendor entry: %v", err)
		}
		err := resolver.VerifyStore(f.lock)
		if !errors.Is(err, entities.ErrChecksumMismatch) {
			t.Errorf("VerifyStore() error = %v, want ErrChecksumMismatch", err)
		}
	})

	t.Run("missing entry", func(t *testing.T) {
		if err := os.RemoveAll(snapshot.Entries[0].Path); err != nil {
			t.Fatalf("Failed to remove vendor entry: %v", err)
		}
		err := resolver.VerifyStore(f.lock)
		if !errors.Is(err, entities.ErrInconsistentSnapshot) {
			t.Errorf("VerifyStore() error = %v, want ErrInconsistentSnapshot", err)
		}
	})
}

// TestConstraintSemantics tests exact and prefix constraint matching
func TestConstraintSemantics(t *testing.T) {
	tests := []struct {
		version    string
		constraint string
		want       bool
	}{
		{"1.0.86", "", true},
		{"1.0.86", "1.0.86", true},
		{"1.0.86", "1.0", true},
		{"1.0.86", "1", true},
		{"1.0.86", "1.0.85", false},
		{"1.1.0", "1.0", false},
		{"10.0.0", "1", false},
	}

	for _, tt := range tests {
		got := satisfiesConstraint(tt.version, tt.constraint)
		if got != tt.want {
			t.Errorf("satisfiesConstraint(%q, %q) = %v, want %v", tt.version, tt.constraint, got, tt.want)
		}
	}

	if !isExactConstraint("1.0.86") {
		t.Error("isExactConstraint(1.0.86) = false, want true")
	}
	if isExactConstraint("1.0") {
		t.Error("isExactConstraint(1.0) = true, want false")
	}
}
