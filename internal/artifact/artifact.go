// Package artifact implements the versioned artifact store. Contents
// live in a blobstore.FS and metadata, aliases and lineage in the
// sqlite database.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/pricelab/basiccleaning/internal/blobstore"
	"github.com/pricelab/basiccleaning/internal/database"
	"github.com/pricelab/basiccleaning/internal/model"
	"github.com/schollz/progressbar/v3"
)

var (
	// ErrNotFound indicates an invalid or unknown artifact reference.
	ErrNotFound = errors.New("artifact not found")

	// ErrPublish indicates that the store rejected an upload.
	ErrPublish = errors.New("cannot publish artifact")
)

// Version describes an artifact version.
type Version struct {
	ID          int64
	Name        string
	Type        string
	Description string
	Index       int64
	FileName    string
	Digest      string
	Size        int64
	CreatedAt   time.Time
	Aliases     []string
}

// Tag returns the version tag, e.g. "v3".
func (v *Version) Tag() string {
	return fmt.Sprintf("v%d", v.Index)
}

// Ref returns the explicit reference to this version.
func (v *Version) Ref() string {
	return v.Name + ":" + v.Tag()
}

// Config contains the config for New. The zero value is invalid; please,
// make sure you initialize all the fields marked as MANDATORY.
type Config struct {
	// DB is the MANDATORY metadata database.
	DB *database.Database

	// Blobs is the MANDATORY content store.
	Blobs *blobstore.FS

	// ArtifactsDir is the MANDATORY directory where Fetch
	// materializes artifact files.
	ArtifactsDir string

	// Logger is the OPTIONAL logger.
	Logger model.Logger

	// ProgressWriter is the OPTIONAL writer where to draw a
	// progress bar while copying files. Nil disables it.
	ProgressWriter io.Writer
}

// Store is the artifact store.
type Store struct {
	db       *database.Database
	blobs    *blobstore.FS
	dir      string
	logger   model.Logger
	progress io.Writer
}

// New creates a new Store.
func New(config Config) *Store {
	return &Store{
		db:       config.DB,
		blobs:    config.Blobs,
		dir:      config.ArtifactsDir,
		logger:   model.ValidLoggerOrDefault(config.Logger),
		progress: config.ProgressWriter,
	}
}

func (s *Store) newVersion(artifact *database.Artifact, version *database.Version) (*Version, error) {
	aliases, err := s.db.ListAliases(version.ID)
	if err != nil {
		return nil, err
	}
	return &Version{
		ID:          version.ID,
		Name:        artifact.Name,
		Type:        artifact.Type,
		Description: version.Description,
		Index:       version.Index,
		FileName:    version.FileName,
		Digest:      version.Digest,
		Size:        version.Size,
		CreatedAt:   version.CreatedAt,
		Aliases:     aliases,
	}, nil
}

// Resolve returns the version a reference points to.
func (s *Store) Resolve(ctx context.Context, ref string) (*Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	artifact, version, err := s.db.ResolveVersion(r.Name, r.Alias)
	if errors.Is(err, database.ErrNoSuchRecord) {
		return nil, errors.Wrapf(ErrNotFound, "%s", r)
	}
	if err != nil {
		return nil, err
	}
	return s.newVersion(artifact, version)
}

// Download is the result of Fetch.
type Download struct {
	Version *Version

	// Path is the local path of the artifact file.
	Path string
}

// Fetch resolves ref and materializes the artifact file below the
// artifacts directory, returning its local path.
func (s *Store) Fetch(ctx context.Context, ref string) (*Download, error) {
	version, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.dir, version.Name+"-"+version.Tag())
	fpath := filepath.Join(dir, version.FileName)
	if data, err := os.ReadFile(fpath); err == nil && blobstore.Digest(data) == version.Digest {
		s.logger.Debugf("artifact %s already available at %s", version.Ref(), fpath)
		return &Download{Version: version, Path: fpath}, nil
	}
	data, err := s.blobs.Get(version.Digest)
	if err != nil {
		return nil, errors.Wrapf(ErrNotFound, "%s: %s", version.Ref(), err.Error())
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	if err := s.copyFile(fpath, data, "downloading "+version.Ref()); err != nil {
		return nil, err
	}
	s.logger.Debugf("artifact %s available at %s", version.Ref(), fpath)
	return &Download{Version: version, Path: fpath}, nil
}

// copyFile writes data to fpath, drawing a progress bar if configured.
func (s *Store) copyFile(fpath string, data []byte, description string) error {
	fp, err := os.Create(fpath)
	if err != nil {
		return err
	}
	var w io.Writer = fp
	if s.progress != nil {
		bar := progressbar.NewOptions64(
			int64(len(data)),
			progressbar.OptionSetWriter(s.progress),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		w = io.MultiWriter(fp, bar)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}

// PublishRequest describes a file to publish.
type PublishRequest struct {
	// Name is the MANDATORY artifact name.
	Name string

	// Type is the MANDATORY artifact type.
	Type string

	// Description is the OPTIONAL version description.
	Description string

	// Path is the MANDATORY local file to publish.
	Path string

	// RunID is the OPTIONAL producing run.
	RunID int64

	// Aliases are OPTIONAL aliases set in addition to "latest".
	Aliases []string
}

// Publish stores the file at req.Path as a new version of the named
// artifact. When the content matches the latest version, that version
// is reused. Failures are such that errors.Is(err, ErrPublish).
func (s *Store) Publish(ctx context.Context, req PublishRequest) (*Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateName(req.Name); err != nil {
		return nil, errors.Wrap(ErrPublish, err.Error())
	}
	if req.Type == "" {
		return nil, errors.Wrap(ErrPublish, "empty artifact type")
	}
	data, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, errors.Wrap(ErrPublish, err.Error())
	}
	digest, err := s.blobs.Put(data)
	if err != nil {
		return nil, errors.Wrapf(ErrPublish, "storing content: %s", err.Error())
	}
	result, err := s.db.PublishVersion(database.PublishParams{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		FileName:    filepath.Base(req.Path),
		Digest:      digest,
		Size:        int64(len(data)),
		RunID:       req.RunID,
		Aliases:     req.Aliases,
	})
	if err != nil {
		return nil, errors.Wrap(ErrPublish, err.Error())
	}
	version, err := s.newVersion(&result.Artifact, &result.Version)
	if err != nil {
		return nil, errors.Wrap(ErrPublish, err.Error())
	}
	if result.Created {
		s.logger.Infof("published %s (%d bytes)", version.Ref(), version.Size)
	} else {
		s.logger.Infof("content unchanged, reusing %s", version.Ref())
	}
	return version, nil
}

// List returns the latest version of every artifact.
func (s *Store) List(ctx context.Context) ([]*Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := s.db.ListArtifacts()
	if err != nil {
		return nil, err
	}
	out := []*Version{}
	for _, entry := range entries {
		version, err := s.newVersion(&entry.Artifact, &entry.Latest)
		if err != nil {
			return nil, err
		}
		out = append(out, version)
	}
	return out, nil
}

// Versions returns all the versions of the named artifact.
func (s *Store) Versions(ctx context.Context, name string) ([]*Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	artifact, err := s.db.GetArtifact(name)
	if errors.Is(err, database.ErrNoSuchRecord) {
		return nil, errors.Wrapf(ErrNotFound, "%s", name)
	}
	if err != nil {
		return nil, err
	}
	versions, err := s.db.ListVersions(artifact.ID)
	if err != nil {
		return nil, err
	}
	out := []*Version{}
	for idx := range versions {
		version, err := s.newVersion(artifact, &versions[idx])
		if err != nil {
			return nil, err
		}
		out = append(out, version)
	}
	return out, nil
}

// LineageEntry is a run that consumed or produced a version.
type LineageEntry struct {
	Direction string
	RunUUID   string
	JobType   string
	State     string
	StartTime time.Time
}

// Lineage returns the runs that consumed or produced the version.
func (s *Store) Lineage(ctx context.Context, version *Version) ([]LineageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := s.db.ListLineage(version.ID)
	if err != nil {
		return nil, err
	}
	out := []LineageEntry{}
	for _, entry := range entries {
		out = append(out, LineageEntry{
			Direction: entry.Lineage.Direction,
			RunUUID:   entry.Run.UUID,
			JobType:   entry.Run.JobType,
			State:     entry.Run.State,
			StartTime: entry.Run.StartTime,
		})
	}
	return out, nil
}
