package gateways

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caravel-build/caravel/internal/domain/entities"
)

// Packager assembles per-platform release archives. Each archive carries the
// fixed `<name>-<version>/bin/` layout with the compiled binary and the
// project's wrapper scripts.
type Packager struct {
	sums *Checksummer
}

// NewPackager creates a new packager
func NewPackager() *Packager {
	return &Packager{sums: NewChecksummer()}
}

// PackageArtifact stages the bundle layout inside the job's working
// directory, compresses it, writes the sidecar checksum file and returns the
// checksummed artifact.
func (p *Packager) PackageArtifact(_ context.Context, project *entities.Project, job *entities.BuildJob, binaryPath string) (*entities.Artifact, error) {
	cleanVersion := strings.TrimPrefix(job.Version, "v")
	bundleName := fmt.Sprintf("%s-%s", project.Name, cleanVersion)

	stageRoot := filepath.Join(job.WorkDir, "stage")
	binDir := filepath.Join(stageRoot, bundleName, "bin")
	if err := os.MkdirAll(binDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create bundle layout: %w", err)
	}

	if err := copyExecutable(binaryPath, filepath.Join(binDir, project.Binary)); err != nil {
		return nil, fmt.Errorf("failed to stage binary: %w", err)
	}

	for _, script := range project.Scripts {
		src := script
		if !filepath.IsAbs(src) {
			src = filepath.Join(project.Dir, src)
		}
		if _, err := os.Stat(src); err != nil {
			return nil, fmt.Errorf("auxiliary file %s is missing: %w", script, err)
		}
		dest := filepath.Join(binDir, filepath.Base(script))
		if err := copyExecutable(src, dest); err != nil {
			return nil, fmt.Errorf("failed to stage auxiliary file %s: %w", script, err)
		}
	}

	archiveName := fmt.Sprintf("%s-%s-%s.tar.gz", project.Name, cleanVersion, job.Platform)
	archivePath := filepath.Join(job.OutputDir, archiveName)
	if err := p.createTarball(stageRoot, archivePath); err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	sum, err := p.sums.WriteFileChecksum(archivePath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	return &entities.Artifact{
		Platform: job.Platform,
		Path:     archivePath,
		Checksum: sum,
		Size:     info.Size(),
	}, nil
}

// createTarball creates a gzipped tar archive from a staging directory.
// Entry names are relative to the staging root, so the archive unpacks to
// `<name>-<version>/bin/...`.
func (p *Packager) createTarball(stageRoot, archivePath string) error {
	if err := os.MkdirAll(filepath.Dir(archivePath), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	//nolint:gosec // G304: archivePath is constructed for package output
	file, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	//nolint:errcheck // Defer close
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	//nolint:errcheck // Defer close
	defer tarWriter.Close()

	return filepath.Walk(stageRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(stageRoot, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		if relPath == "." {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("failed to create tar header: %w", err)
		}
		header.Name = filepath.ToSlash(relPath)

		// Canonical metadata: identical inputs must produce byte-identical
		// archives, so timestamps and ownership never leak into the digest.
		header.ModTime = time.Unix(0, 0)
		header.AccessTime = time.Time{}
		header.ChangeTime = time.Time{}
		header.Uid = 0
		header.Gid = 0
		header.Uname = ""
		header.Gname = ""

		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header: %w", err)
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		//nolint:gosec // G304: path comes from filepath.Walk over the staging dir
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		//nolint:errcheck // Defer close
		defer f.Close()

		if _, err := io.Copy(tarWriter, f); err != nil {
			return fmt.Errorf("failed to write file to tar: %w", err)
		}
		return nil
	})
}

// copyExecutable copies a file and marks it executable, since everything
// under bin/ must be runnable after unpacking.
func copyExecutable(src, dest string) error {
	//nolint:gosec // G306: bundle contents under bin/ are meant to be executable
	return copyFile(src, dest, 0755)
}
