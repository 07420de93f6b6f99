package entities

// ReleaseRequest captures one release invocation. Created once from caller
// input and immutable afterwards.
type ReleaseRequest struct {
	Version    string
	Platforms  []string
	OutputRoot string
	Publish    bool
}

// JobState tracks a build job through its lifecycle.
type JobState int

// Build job lifecycle states.
const (
	JobPending JobState = iota
	JobRunning
	JobSucceeded
	JobFailed
)

// String returns the lowercase state name.
func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobRunning:
		return "running"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BuildJob is one per-platform unit of work in a build plan. Jobs carry no
// ordering dependency on each other; each runs in its own working directory.
type BuildJob struct {
	Platform     string
	Target       string
	Version      string
	SnapshotRoot string // empty in live-resolution mode
	WorkDir      string
	OutputDir    string

	State    JobState
	Err      error
	Artifact *Artifact
}

// Artifact is the compressed output of one successful build job.
// Immutable once created.
type Artifact struct {
	Platform string
	Path     string
	Checksum string // hex SHA-256 of the archive
	Size     int64
}

// ReleaseBundle is the publishable result of a release request: the full
// artifact set plus the cross-platform checksum index. A bundle only exists
// when every requested platform built successfully.
type ReleaseBundle struct {
	Version   string
	Artifacts []Artifact
	Index     []byte // checksum index content, sha256sum format
}
