package entities

// DependencyRef identifies one resolved build dependency. Immutable once
// resolved; (Name, Version) is the uniqueness key.
type DependencyRef struct {
	Name     string
	Version  string
	Checksum string // hex SHA-256 of the dependency's source tree
	License  string // SPDX identifier if known, empty otherwise
	Requires []DependencyConstraint
}

// DepManifest is a dependency's own declaration, read from its catalog entry.
type DepManifest struct {
	Name     string
	Version  string
	License  string
	Requires []DependencyConstraint
}

// VendorEntry maps a resolved dependency to its stored source tree.
type VendorEntry struct {
	Ref  DependencyRef
	Path string
}

// VendorSnapshot is the closed set of vendored dependencies, ordered by
// (name, version). Every dependency reachable from the project's declared
// graph appears exactly once; builds never resolve against the network.
type VendorSnapshot struct {
	Root    string
	Entries []VendorEntry
}

// Lookup returns the entry for a dependency name, if vendored.
func (s *VendorSnapshot) Lookup(name string) (*VendorEntry, bool) {
	for i := range s.Entries {
		if s.Entries[i].Ref.Name == name {
			return &s.Entries[i], true
		}
	}
	return nil, false
}

// LockedDependency pins one dependency to an exact version and source digest.
type LockedDependency struct {
	Name     string
	Version  string
	Checksum string
}

// Lockfile is the project's pinned dependency set. Resolution never guesses:
// a dependency without a lock entry fails the resolve.
type Lockfile struct {
	FormatVersion int
	Dependencies  []LockedDependency
}

// Find returns the lock entry for a dependency name.
func (l *Lockfile) Find(name string) (*LockedDependency, bool) {
	for i := range l.Dependencies {
		if l.Dependencies[i].Name == name {
			return &l.Dependencies[i], true
		}
	}
	return nil, false
}
