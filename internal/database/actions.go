package database

import (
	"database/sql"
	"regexp"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/pkg/errors"
	"github.com/upper/db/v4"
)

var (
	// ErrNoSuchRecord indicates that a lookup matched no rows.
	ErrNoSuchRecord = errors.New("no such record")

	// ErrTypeMismatch indicates publishing under an existing name
	// with a different artifact type.
	ErrTypeMismatch = errors.New("artifact type mismatch")
)

// AliasLatest is the alias always pointing to the newest version.
const AliasLatest = "latest"

// versionAlias matches explicit version references such as "v3".
var versionAlias = regexp.MustCompile(`^v(\d+)$`)

// notFoundOr maps db.ErrNoMoreRows to ErrNoSuchRecord.
func notFoundOr(err error, message string) error {
	if errors.Is(err, db.ErrNoMoreRows) {
		return errors.Wrap(ErrNoSuchRecord, message)
	}
	return errors.Wrap(err, message)
}

// CreateRun inserts a new run in the running state.
func (d *Database) CreateRun(project, jobType, uuid string) (*Run, error) {
	run := Run{
		UUID:      uuid,
		Project:   project,
		JobType:   jobType,
		State:     RunStateRunning,
		Config:    "{}",
		Summary:   "{}",
		StartTime: time.Now().UTC(),
	}
	res, err := d.sess.Collection("runs").Insert(run)
	if err != nil {
		return nil, errors.Wrap(err, "creating run")
	}
	run.ID = res.ID().(int64)
	log.Debugf("created run %s (%d)", run.UUID, run.ID)
	return &run, nil
}

// updateRun updates the given columns of run.
func (d *Database) updateRun(run *Run, columns map[string]interface{}) error {
	err := d.sess.Collection("runs").Find(db.Cond{"run_id": run.ID}).Update(columns)
	if err != nil {
		return errors.Wrap(err, "updating run")
	}
	return nil
}

// UpdateRunConfig stores the JSON encoded run configuration.
func (d *Database) UpdateRunConfig(run *Run, config string) error {
	run.Config = config
	return d.updateRun(run, map[string]interface{}{"config": config})
}

// UpdateRunSummary stores the JSON encoded run summary.
func (d *Database) UpdateRunSummary(run *Run, summary string) error {
	run.Summary = summary
	return d.updateRun(run, map[string]interface{}{"summary": summary})
}

// FinishRun marks the run as finished when failure is empty and as
// failed otherwise, and sets its runtime.
func (d *Database) FinishRun(run *Run, failure string) error {
	run.Runtime = time.Now().UTC().Sub(run.StartTime).Seconds()
	run.State = RunStateFinished
	run.Failure = sql.NullString{}
	if failure != "" {
		run.State = RunStateFailed
		run.Failure = sql.NullString{String: failure, Valid: true}
	}
	return d.updateRun(run, map[string]interface{}{
		"state":   run.State,
		"failure": run.Failure,
		"runtime": run.Runtime,
	})
}

// GetRun returns the run with the given UUID.
func (d *Database) GetRun(uuid string) (*Run, error) {
	var run Run
	err := d.sess.Collection("runs").Find(db.Cond{"run_uuid": uuid}).One(&run)
	if err != nil {
		return nil, notFoundOr(err, "getting run")
	}
	return &run, nil
}

// ListRuns returns up to limit runs, most recent first.
func (d *Database) ListRuns(limit int) ([]Run, error) {
	runs := []Run{}
	res := d.sess.Collection("runs").Find().OrderBy("-run_id")
	if limit > 0 {
		res = res.Limit(limit)
	}
	if err := res.All(&runs); err != nil {
		return nil, errors.Wrap(err, "listing runs")
	}
	return runs, nil
}

// GetArtifact returns the artifact with the given name.
func (d *Database) GetArtifact(name string) (*Artifact, error) {
	return getArtifact(d.sess, name)
}

func getArtifact(sess db.Session, name string) (*Artifact, error) {
	var artifact Artifact
	err := sess.Collection("artifacts").Find(db.Cond{"artifact_name": name}).One(&artifact)
	if err != nil {
		return nil, notFoundOr(err, "getting artifact")
	}
	return &artifact, nil
}

func latestVersion(sess db.Session, artifactID int64) (*Version, error) {
	var version Version
	err := sess.Collection("versions").Find(db.Cond{"artifact_id": artifactID}).
		OrderBy("-version_index").One(&version)
	if err != nil {
		return nil, notFoundOr(err, "getting latest version")
	}
	return &version, nil
}

// ResolveVersion returns the version of the named artifact identified
// by alias, which is either an explicit "vN" or a symbolic alias.
func (d *Database) ResolveVersion(name, alias string) (*Artifact, *Version, error) {
	artifact, err := d.GetArtifact(name)
	if err != nil {
		return nil, nil, err
	}
	var version Version
	if m := versionAlias.FindStringSubmatch(alias); m != nil {
		index, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, nil, errors.Wrap(ErrNoSuchRecord, "parsing version index")
		}
		err = d.sess.Collection("versions").Find(db.Cond{
			"artifact_id":   artifact.ID,
			"version_index": index,
		}).One(&version)
		if err != nil {
			return nil, nil, notFoundOr(err, "getting version")
		}
		return artifact, &version, nil
	}
	var entry Alias
	err = d.sess.Collection("aliases").Find(db.Cond{
		"artifact_id": artifact.ID,
		"alias":       alias,
	}).One(&entry)
	if err != nil {
		return nil, nil, notFoundOr(err, "getting alias")
	}
	err = d.sess.Collection("versions").Find(db.Cond{"version_id": entry.VersionID}).One(&version)
	if err != nil {
		return nil, nil, notFoundOr(err, "getting aliased version")
	}
	return artifact, &version, nil
}

// ListVersions returns all the versions of an artifact, oldest first.
func (d *Database) ListVersions(artifactID int64) ([]Version, error) {
	versions := []Version{}
	err := d.sess.Collection("versions").Find(db.Cond{"artifact_id": artifactID}).
		OrderBy("version_index").All(&versions)
	if err != nil {
		return nil, errors.Wrap(err, "listing versions")
	}
	return versions, nil
}

// ListAliases returns the aliases pointing to a version.
func (d *Database) ListAliases(versionID int64) ([]string, error) {
	entries := []Alias{}
	err := d.sess.Collection("aliases").Find(db.Cond{"version_id": versionID}).
		OrderBy("alias").All(&entries)
	if err != nil {
		return nil, errors.Wrap(err, "listing aliases")
	}
	out := []string{}
	for _, entry := range entries {
		out = append(out, entry.Alias)
	}
	return out, nil
}

// ListArtifacts returns every artifact with its latest version.
func (d *Database) ListArtifacts() ([]ArtifactLatest, error) {
	artifacts := []Artifact{}
	if err := d.sess.Collection("artifacts").Find().OrderBy("artifact_name").All(&artifacts); err != nil {
		return nil, errors.Wrap(err, "listing artifacts")
	}
	out := []ArtifactLatest{}
	for _, artifact := range artifacts {
		latest, err := latestVersion(d.sess, artifact.ID)
		if errors.Is(err, ErrNoSuchRecord) {
			log.Warnf("artifact %s has no versions", artifact.Name)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ArtifactLatest{Artifact: artifact, Latest: *latest})
	}
	return out, nil
}

// AddLineage records that run consumed or produced version.
func (d *Database) AddLineage(runID, versionID int64, direction string) error {
	return addLineage(d.sess, runID, versionID, direction)
}

func addLineage(sess db.Session, runID, versionID int64, direction string) error {
	entry := Lineage{
		RunID:     runID,
		VersionID: versionID,
		Direction: direction,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := sess.Collection("lineage").Insert(entry); err != nil {
		return errors.Wrap(err, "adding lineage")
	}
	return nil
}

// ListLineage returns the runs that consumed or produced version.
func (d *Database) ListLineage(versionID int64) ([]LineageRun, error) {
	entries := []Lineage{}
	err := d.sess.Collection("lineage").Find(db.Cond{"version_id": versionID}).
		OrderBy("lineage_id").All(&entries)
	if err != nil {
		return nil, errors.Wrap(err, "listing lineage")
	}
	out := []LineageRun{}
	for _, entry := range entries {
		var run Run
		if err := d.sess.Collection("runs").Find(db.Cond{"run_id": entry.RunID}).One(&run); err != nil {
			return nil, notFoundOr(err, "getting lineage run")
		}
		out = append(out, LineageRun{Lineage: entry, Run: run})
	}
	return out, nil
}

// PublishParams describes a file being published as an artifact version.
type PublishParams struct {
	Name        string
	Type        string
	Description string
	FileName    string
	Digest      string
	Size        int64

	// RunID is the producing run, or zero.
	RunID int64

	// Aliases are set in addition to AliasLatest.
	Aliases []string
}

// PublishResult is the outcome of PublishVersion.
type PublishResult struct {
	Artifact Artifact
	Version  Version

	// Created is false when the content matched the latest
	// version, which was reused.
	Created bool
}

// PublishVersion creates a new version of the named artifact, creating
// the artifact itself if needed, inside a single transaction.
func (d *Database) PublishVersion(p PublishParams) (*PublishResult, error) {
	result := &PublishResult{}
	err := d.sess.Tx(func(tx db.Session) error {
		now := time.Now().UTC()
		artifact, err := getArtifact(tx, p.Name)
		switch {
		case errors.Is(err, ErrNoSuchRecord):
			artifact = &Artifact{Name: p.Name, Type: p.Type, CreatedAt: now}
			res, err := tx.Collection("artifacts").Insert(*artifact)
			if err != nil {
				return errors.Wrap(err, "creating artifact")
			}
			artifact.ID = res.ID().(int64)
		case err != nil:
			return err
		case artifact.Type != p.Type:
			return errors.Wrapf(ErrTypeMismatch, "%s has type %s, not %s",
				artifact.Name, artifact.Type, p.Type)
		}
		result.Artifact = *artifact

		latest, err := latestVersion(tx, artifact.ID)
		if err != nil && !errors.Is(err, ErrNoSuchRecord) {
			return err
		}
		if latest != nil && latest.Digest == p.Digest && latest.FileName == p.FileName {
			result.Version = *latest
		} else {
			version := Version{
				ArtifactID:  artifact.ID,
				Description: p.Description,
				FileName:    p.FileName,
				Digest:      p.Digest,
				Size:        p.Size,
				CreatedAt:   now,
			}
			if latest != nil {
				version.Index = latest.Index + 1
			}
			if p.RunID != 0 {
				version.RunID = sql.NullInt64{Int64: p.RunID, Valid: true}
			}
			res, err := tx.Collection("versions").Insert(version)
			if err != nil {
				return errors.Wrap(err, "creating version")
			}
			version.ID = res.ID().(int64)
			result.Version = version
			result.Created = true
		}

		for _, alias := range append([]string{AliasLatest}, p.Aliases...) {
			if err := setAlias(tx, artifact.ID, alias, result.Version.ID); err != nil {
				return err
			}
		}
		if p.RunID != 0 {
			return addLineage(tx, p.RunID, result.Version.ID, DirectionOutput)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func setAlias(sess db.Session, artifactID int64, alias string, versionID int64) error {
	if versionAlias.MatchString(alias) {
		return errors.Errorf("alias %q clashes with version names", alias)
	}
	res := sess.Collection("aliases").Find(db.Cond{"artifact_id": artifactID, "alias": alias})
	count, err := res.Count()
	if err != nil {
		return errors.Wrap(err, "counting aliases")
	}
	if count > 0 {
		if err := res.Update(map[string]interface{}{"version_id": versionID}); err != nil {
			return errors.Wrap(err, "updating alias")
		}
		return nil
	}
	entry := Alias{ArtifactID: artifactID, Alias: alias, VersionID: versionID}
	if _, err := sess.Collection("aliases").Insert(entry); err != nil {
		return errors.Wrap(err, "creating alias")
	}
	return nil
}
