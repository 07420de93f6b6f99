// Package gateways provides filesystem and toolchain adapters for the
// vendoring and release pipeline.
package gateways

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caravel-build/caravel/internal/domain/entities"
)

// Checksummer computes and verifies SHA-256 digests for files and source
// trees. Pure Go, no external sha256sum binary needed.
type Checksummer struct{}

// NewChecksummer creates a new checksummer
func NewChecksummer() *Checksummer {
	return &Checksummer{}
}

// FileChecksum returns the hex SHA-256 digest of a file.
func (c *Checksummer) FileChecksum(path string) (string, error) {
	//nolint:gosec // G304: path is a pipeline-managed artifact location
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyFile compares a file's digest against the expected hex digest.
func (c *Checksummer) VerifyFile(path, expected string) error {
	actual, err := c.FileChecksum(path)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("%w: %s: expected %s, got %s", entities.ErrChecksumMismatch, path, expected, actual)
	}
	return nil
}

// TreeChecksum returns a deterministic hex SHA-256 digest of a directory
// tree. The digest covers every regular file's contents and its relative
// path, visited in lexical order, so identical trees hash identically
// regardless of timestamps or walk platform.
func (c *Checksummer) TreeChecksum(root string) (string, error) {
	h := sha256.New()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}

		fileSum, err := c.FileChecksum(path)
		if err != nil {
			return err
		}

		// One line per file, sha256sum style, hashed into the tree digest.
		fmt.Fprintf(h, "%s  %s\n", fileSum, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to hash tree %s: %w", root, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyTree compares a directory tree's digest against the expected hex
// digest. A mismatch is a trust failure and is never silently accepted.
func (c *Checksummer) VerifyTree(root, expected string) error {
	actual, err := c.TreeChecksum(root)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("%w: %s: expected %s, got %s", entities.ErrChecksumMismatch, root, expected, actual)
	}
	return nil
}

// WriteFileChecksum writes the standard `<digest>  <filename>` sidecar next
// to an artifact and returns the digest.
func (c *Checksummer) WriteFileChecksum(path string) (string, error) {
	sum, err := c.FileChecksum(path)
	if err != nil {
		return "", err
	}
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(path))
	if err := os.WriteFile(path+".sha256", []byte(line), 0600); err != nil {
		return "", fmt.Errorf("failed to write checksum file: %w", err)
	}
	return sum, nil
}
