package services

import (
	"fmt"
	"os"
	"sort"

	"github.com/caravel-build/caravel/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// ManifestService derives vendor manifests from snapshots. Generation is
// deterministic: identical snapshots always encode to identical bytes, which
// downstream reproducible-build verification depends on.
type ManifestService struct{}

// NewManifestService creates a new manifest service
func NewManifestService() *ManifestService {
	return &ManifestService{}
}

// Generate produces the manifest records for a snapshot, sorted by
// (name, version). It fails when a listed dependency has no stored source
// tree, which means the snapshot is internally inconsistent.
func (s *ManifestService) Generate(snapshot *entities.VendorSnapshot) (*entities.VendorManifest, error) {
	records := make([]entities.ManifestRecord, 0, len(snapshot.Entries))
	for _, entry := range snapshot.Entries {
		info, err := os.Stat(entry.Path)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: %s@%s has no stored source tree at %s",
				entities.ErrInconsistentSnapshot, entry.Ref.Name, entry.Ref.Version, entry.Path)
		}
		records = append(records, entities.ManifestRecord{
			Name:     entry.Ref.Name,
			Version:  entry.Ref.Version,
			Checksum: entry.Ref.Checksum,
			License:  entry.Ref.License,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Name != records[j].Name {
			return records[i].Name < records[j].Name
		}
		return records[i].Version < records[j].Version
	})

	return &entities.VendorManifest{Records: records}, nil
}

// Encode serializes a manifest as an ordered YAML document. Record order and
// field order are fixed, so identical manifests encode byte-identically.
func (s *ManifestService) Encode(m *entities.VendorManifest) ([]byte, error) {
	data, err := yaml.Marshal(m.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vendor manifest: %w", err)
	}
	return data, nil
}
