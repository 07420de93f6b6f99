package entities

// ManifestRecord is one audited dependency line in the vendor manifest.
type ManifestRecord struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Checksum string `yaml:"checksum"`
	License  string `yaml:"license"`
}

// VendorManifest is the read-only projection of a VendorSnapshot used for
// provenance tracking. It is always regenerated from the snapshot, never
// hand-edited, and identical snapshots yield byte-identical serializations.
type VendorManifest struct {
	Records []ManifestRecord
}
