package yaml

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeProjectDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			t.Fatalf("Failed to create project subdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("Failed to write project file: %v", err)
		}
	}
	return dir
}

// TestLoadProject tests loading the project definition from a directory
func TestLoadProject(t *testing.T) {
	dir := writeProjectDir(t, map[string]string{
		ProjectFileName: validProjectYAML,
	})

	repo := NewProjectRepository(dir)
	project, err := repo.LoadProject(context.Background())
	if err != nil {
		t.Fatalf("LoadProject() error = %v", err)
	}
	if project.Name != "clevis-pin-demo" {
		t.Errorf("LoadProject() name = %v, want clevis-pin-demo", project.Name)
	}
	if project.Dir != dir {
		t.Errorf("LoadProject() dir = %v, want %v", project.Dir, dir)
	}
}

// TestLoadProjectMissing tests the error when no definition exists
func TestLoadProjectMissing(t *testing.T) {
	repo := NewProjectRepository(t.TempDir())
	_, err := repo.LoadProject(context.Background())
	if err == nil {
		t.Fatal("LoadProject() without project.yml should return error")
	}
	if !strings.Contains(err.Error(), "no project definition") {
		t.Errorf("LoadProject() error = %v", err)
	}
}

// TestLoadLockfile tests loading a pinned dependency set
func TestLoadLockfile(t *testing.T) {
	dir := writeProjectDir(t, map[string]string{
		LockfileName: `
version: 1
dependencies:
  - name: serde
    version: 1.0.200
    checksum: aaaa
  - name: anyhow
    version: 1.0.86
    checksum: bbbb
`,
	})

	repo := NewProjectRepository(dir)
	lock, err := repo.LoadLockfile(context.Background())
	if err != nil {
		t.Fatalf("LoadLockfile() error = %v", err)
	}
	if lock.FormatVersion != 1 {
		t.Errorf("LoadLockfile() format version = %d, want 1", lock.FormatVersion)
	}
	if len(lock.Dependencies) != 2 {
		t.Fatalf("LoadLockfile() dependency count = %d, want 2", len(lock.Dependencies))
	}

	locked, ok := lock.Find("anyhow")
	if !ok {
		t.Fatal("LoadLockfile() lock has no entry for anyhow")
	}
	if locked.Version != "1.0.86" || locked.Checksum != "bbbb" {
		t.Errorf("LoadLockfile() anyhow entry = %+v", locked)
	}
}

// TestLoadLockfileInvalid tests rejection of malformed lockfiles
func TestLoadLockfileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "unsupported format version",
			content: "version: 2\ndependencies: []\n",
			wantMsg: "unsupported lockfile format version",
		},
		{
			name:    "missing format version",
			content: "dependencies: []\n",
			wantMsg: "unsupported lockfile format version",
		},
		{
			name:    "entry without checksum",
			content: "version: 1\ndependencies:\n  - name: serde\n    version: 1.0.200\n",
			wantMsg: "must carry name, version and checksum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeProjectDir(t, map[string]string{LockfileName: tt.content})
			repo := NewProjectRepository(dir)
			_, err := repo.LoadLockfile(context.Background())
			if err == nil {
				t.Fatal("LoadLockfile() should return error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("LoadLockfile() error = %v, want %q", err, tt.wantMsg)
			}
		})
	}

	t.Run("missing lockfile", func(t *testing.T) {
		repo := NewProjectRepository(t.TempDir())
		if _, err := repo.LoadLockfile(context.Background()); err == nil {
			t.Error("LoadLockfile() without lockfile should return error")
		}
	})
}

// TestReadDepManifest tests reading a catalog entry's own declaration
func TestReadDepManifest(t *testing.T) {
	dir := writeProjectDir(t, map[string]string{
		filepath.Join("catalog", "serde-1.0.200", DepManifestName): `
name: serde
version: 1.0.200
license: MIT OR Apache-2.0
requires:
  - name: serde_derive
    constraint: "1.0"
`,
	})

	repo := NewProjectRepository(dir)
	man, err := repo.ReadDepManifest(filepath.Join(dir, "catalog", "serde-1.0.200"))
	if err != nil {
		t.Fatalf("ReadDepManifest() error = %v", err)
	}
	if man.Name != "serde" || man.Version != "1.0.200" {
		t.Errorf("ReadDepManifest() identity = %s@%s", man.Name, man.Version)
	}
	if man.License != "MIT OR Apache-2.0" {
		t.Errorf("ReadDepManifest() license = %v", man.License)
	}
	if len(man.Requires) != 1 || man.Requires[0].Name != "serde_derive" {
		t.Errorf("ReadDepManifest() requires = %+v", man.Requires)
	}

	t.Run("missing manifest", func(t *testing.T) {
		if _, err := repo.ReadDepManifest(t.TempDir()); err == nil {
			t.Error("ReadDepManifest() without dep.yml should return error")
		}
	})

	t.Run("manifest without identity", func(t *testing.T) {
		bad := writeProjectDir(t, map[string]string{DepManifestName: "license: MIT\n"})
		if _, err := repo.ReadDepManifest(bad); err == nil {
			t.Error("ReadDepManifest() without name and version should return error")
		}
	})
}
