package database

import (
	"database/sql"
	"time"
)

const (
	// RunStateRunning is the state of a run that has not finished yet.
	RunStateRunning = "running"

	// RunStateFinished is the state of a run that completed.
	RunStateFinished = "finished"

	// RunStateFailed is the state of a run that returned an error.
	RunStateFailed = "failed"
)

const (
	// DirectionInput marks an artifact version consumed by a run.
	DirectionInput = "input"

	// DirectionOutput marks an artifact version produced by a run.
	DirectionOutput = "output"
)

// Run is one tracked execution of a job.
type Run struct {
	ID        int64          `db:"run_id,omitempty"`
	UUID      string         `db:"run_uuid"`
	Project   string         `db:"project"`
	JobType   string         `db:"job_type"`
	State     string         `db:"state"`
	Failure   sql.NullString `db:"failure"`
	Config    string         `db:"config"`
	Summary   string         `db:"summary"`
	StartTime time.Time      `db:"start_time"`
	// Runtime is expressed in fractional seconds
	Runtime float64 `db:"runtime"`
}

// Artifact is a named collection of versions sharing a type.
type Artifact struct {
	ID        int64     `db:"artifact_id,omitempty"`
	Name      string    `db:"artifact_name"`
	Type      string    `db:"artifact_type"`
	CreatedAt time.Time `db:"created_at"`
}

// Version is an immutable version of an artifact.
type Version struct {
	ID          int64         `db:"version_id,omitempty"`
	ArtifactID  int64         `db:"artifact_id"`
	Index       int64         `db:"version_index"`
	Description string        `db:"description"`
	FileName    string        `db:"file_name"`
	Digest      string        `db:"digest"`
	Size        int64         `db:"size"`
	CreatedAt   time.Time     `db:"created_at"`
	RunID       sql.NullInt64 `db:"run_id"`
}

// Alias points a symbolic name such as "latest" to a version.
type Alias struct {
	ID         int64  `db:"alias_id,omitempty"`
	ArtifactID int64  `db:"artifact_id"`
	Alias      string `db:"alias"`
	VersionID  int64  `db:"version_id"`
}

// Lineage links a run to a version it consumed or produced.
type Lineage struct {
	ID        int64     `db:"lineage_id,omitempty"`
	RunID     int64     `db:"run_id"`
	VersionID int64     `db:"version_id"`
	Direction string    `db:"direction"`
	CreatedAt time.Time `db:"created_at"`
}

// ArtifactLatest is an artifact along with its latest version.
type ArtifactLatest struct {
	Artifact Artifact
	Latest   Version
}

// LineageRun is a lineage entry joined with its run.
type LineageRun struct {
	Lineage Lineage
	Run     Run
}
