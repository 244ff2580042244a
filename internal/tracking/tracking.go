// Package tracking records runs: the configuration they used, the
// artifacts they consumed and produced, and how they ended.
package tracking

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pricelab/basiccleaning/internal/artifact"
	"github.com/pricelab/basiccleaning/internal/database"
	"github.com/pricelab/basiccleaning/internal/model"
)

// ArtifactStore is the part of artifact.Store a Run uses.
type ArtifactStore interface {
	Fetch(ctx context.Context, ref string) (*artifact.Download, error)
	Publish(ctx context.Context, req artifact.PublishRequest) (*artifact.Version, error)
}

var _ ArtifactStore = &artifact.Store{}

// Tracker creates runs. The zero value is invalid; please, make sure
// you initialize all the fields marked as MANDATORY.
type Tracker struct {
	// DB is the MANDATORY database where runs are stored.
	DB *database.Database

	// Store is the MANDATORY artifact store.
	Store ArtifactStore

	// Project is the OPTIONAL project name.
	Project string

	// Logger is the OPTIONAL logger.
	Logger model.Logger
}

// Init opens a new run for the given job type. The caller must call
// Finish when done, including on failure paths.
func (t *Tracker) Init(ctx context.Context, jobType string) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row, err := t.DB.CreateRun(t.Project, jobType, uuid.NewString())
	if err != nil {
		return nil, errors.Wrap(err, "initializing run")
	}
	logger := model.ValidLoggerOrDefault(t.Logger)
	logger.Infof("tracking run %s (%s)", row.UUID, jobType)
	return &Run{
		db:      t.DB,
		store:   t.Store,
		logger:  logger,
		row:     row,
		config:  map[string]interface{}{},
		summary: map[string]interface{}{},
	}, nil
}

// Run is an open run.
type Run struct {
	db      *database.Database
	store   ArtifactStore
	logger  model.Logger
	row     *database.Run
	config  map[string]interface{}
	summary map[string]interface{}

	mu       sync.Mutex
	finished bool
}

// UUID returns the run identifier.
func (r *Run) UUID() string {
	return r.row.UUID
}

// RecordConfig merges values into the run configuration.
func (r *Run) RecordConfig(values map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, value := range values {
		r.config[key] = value
	}
	data, err := json.Marshal(r.config)
	if err != nil {
		return errors.Wrap(err, "encoding run config")
	}
	return r.db.UpdateRunConfig(r.row, string(data))
}

// SetSummary merges key and value into the run summary.
func (r *Run) SetSummary(key string, value interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary[key] = value
	data, err := json.Marshal(r.summary)
	if err != nil {
		return errors.Wrap(err, "encoding run summary")
	}
	return r.db.UpdateRunSummary(r.row, string(data))
}

// UseArtifact fetches ref and records it as an input of the run.
func (r *Run) UseArtifact(ctx context.Context, ref string) (*artifact.Download, error) {
	download, err := r.store.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := r.db.AddLineage(r.row.ID, download.Version.ID, database.DirectionInput); err != nil {
		return nil, err
	}
	r.logger.Debugf("run %s uses %s", r.row.UUID, download.Version.Ref())
	return download, nil
}

// LogArtifact publishes req as an output of the run.
func (r *Run) LogArtifact(ctx context.Context, req artifact.PublishRequest) (*artifact.Version, error) {
	req.RunID = r.row.ID
	return r.store.Publish(ctx, req)
}

// Finish marks the run as finished, or failed when err is not nil. Calling
// Finish more than once is a no-op.
func (r *Run) Finish(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return nil
	}
	r.finished = true
	var failure string
	if err != nil {
		failure = err.Error()
	}
	if err := r.db.FinishRun(r.row, failure); err != nil {
		return errors.Wrap(err, "finishing run")
	}
	r.logger.Debugf("run %s %s after %.3fs", r.row.UUID, r.row.State, r.row.Runtime)
	return nil
}
